package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rezonia/invoicer/internal/logger"
)

// EnvPrefix prefixes every environment override, e.g. INVOICER_SERVER_ADDRESS
const EnvPrefix = "INVOICER"

type Configuration struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Logging   logger.Config   `mapstructure:"logging"`
	Store     StoreConfig     `mapstructure:"store" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	Export    ExportConfig    `mapstructure:"export" validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	Debug        bool          `mapstructure:"debug"`
	DraftTTL     time.Duration `mapstructure:"draft_ttl" validate:"gte=0"`
	// ExportTimeout bounds HTTP export requests only
	ExportTimeout time.Duration `mapstructure:"export_timeout" validate:"gte=0"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite supabase none"`
	Path   string `mapstructure:"path"`
}

type AuthConfig struct {
	Provider  string        `mapstructure:"provider" validate:"oneof=local supabase none"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"gte=0"`
	Issuer    string        `mapstructure:"issuer"`
	// ResetRedirectURL is where password reset mails link to
	ResetRedirectURL string `mapstructure:"reset_redirect_url" validate:"omitempty,url"`
}

type SupabaseConfig struct {
	URL       string `mapstructure:"url" validate:"omitempty,url"`
	Key       string `mapstructure:"key"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type ExportConfig struct {
	Rasterizer        string   `mapstructure:"rasterizer" validate:"oneof=text command"`
	Command           string   `mapstructure:"command"`
	Args              []string `mapstructure:"args"`
	Width             int      `mapstructure:"width" validate:"gt=0"`
	Scale             int      `mapstructure:"scale" validate:"gte=1,lte=4"`
	TrailingBlankPage bool     `mapstructure:"trailing_blank_page"`
}

type StorageConfig struct {
	Driver        string        `mapstructure:"driver" validate:"oneof=none dir s3"`
	Dir           string        `mapstructure:"dir"`
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	Endpoint      string        `mapstructure:"endpoint"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry" validate:"gte=0"`
}

type AnalyticsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SetDefaults registers every key so environment overrides are picked up
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.draft_ttl", 24*time.Hour)
	v.SetDefault("server.export_timeout", 2*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "invoicer.db")

	v.SetDefault("auth.provider", "local")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.issuer", "invoicer")
	v.SetDefault("auth.reset_redirect_url", "")

	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.key", "")
	v.SetDefault("supabase.jwt_secret", "")

	v.SetDefault("export.rasterizer", "text")
	v.SetDefault("export.command", "wkhtmltoimage")
	v.SetDefault("export.args", []string{})
	v.SetDefault("export.width", 896)
	v.SetDefault("export.scale", 2)
	v.SetDefault("export.trailing_blank_page", false)

	v.SetDefault("storage.driver", "none")
	v.SetDefault("storage.dir", "exports")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.key_prefix", "")
	v.SetDefault("storage.presign_expiry", 15*time.Minute)

	v.SetDefault("analytics.enabled", true)
}

// NewViper returns a viper instance with defaults, env overrides and the
// optional config file. An empty file searches the usual locations.
func NewViper(file string) (*viper.Viper, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "loading .env")
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("invoicer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/invoicer")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config file")
		}
	}
	return v, nil
}

// Load reads the configuration from file, the environment and defaults
func Load(file string) (*Configuration, error) {
	v, err := NewViper(file)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes and validates v
func FromViper(v *viper.Viper) (*Configuration, error) {
	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default is the configuration with no file or environment applied
func Default() *Configuration {
	v := viper.New()
	SetDefaults(v)
	var cfg Configuration
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks field rules and the settings each driver depends on
func (c Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	needsSupabase := c.Store.Driver == "supabase" || c.Auth.Provider == "supabase"
	switch {
	case needsSupabase && (c.Supabase.URL == "" || c.Supabase.Key == ""):
		return errors.New("invalid config: supabase.url and supabase.key are required for the supabase driver")
	case c.Store.Driver == "sqlite" && strings.TrimSpace(c.Store.Path) == "":
		return errors.New("invalid config: store.path is required for the sqlite driver")
	case c.Auth.Provider == "local" && c.Store.Driver != "sqlite":
		return errors.New("invalid config: the local auth provider needs the sqlite store")
	case c.Storage.Driver == "dir" && strings.TrimSpace(c.Storage.Dir) == "":
		return errors.New("invalid config: storage.dir is required for the dir driver")
	case c.Storage.Driver == "s3" && c.Storage.Bucket == "":
		return errors.New("invalid config: storage.bucket is required for the s3 driver")
	}
	return nil
}
