// Package app builds the configured collaborators shared by the CLI and the
// HTTP server.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/cockroachdb/errors"
	supa "github.com/nedpals/supabase-go"

	"github.com/rezonia/invoicer/internal/analytics"
	"github.com/rezonia/invoicer/internal/auth"
	"github.com/rezonia/invoicer/internal/config"
	"github.com/rezonia/invoicer/internal/export"
	"github.com/rezonia/invoicer/internal/logger"
	"github.com/rezonia/invoicer/internal/raster"
	"github.com/rezonia/invoicer/internal/server"
	"github.com/rezonia/invoicer/internal/service"
	"github.com/rezonia/invoicer/internal/storage"
	"github.com/rezonia/invoicer/internal/store"
	"github.com/rezonia/invoicer/internal/store/sqlite"
	"github.com/rezonia/invoicer/internal/store/supabase"
	"github.com/rezonia/invoicer/internal/workspace"
)

// App holds the wired dependencies. Gateway, Auth, Invoices and Templates
// are nil when persistence is switched off.
type App struct {
	Config     *config.Configuration
	Logger     *logger.Logger
	Gateway    store.Gateway
	Auth       auth.Provider
	Tracker    analytics.Tracker
	Rasterizer raster.Rasterizer
	Sink       storage.Sink
	Exporter   *export.Exporter
	Invoices   *service.Invoices
	Templates  *service.Templates
	Workspace  *workspace.Workspace

	closers []func() error
}

// New wires every collaborator named by cfg
func New(ctx context.Context, cfg *config.Configuration, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{Config: cfg, Logger: log}

	var recorder analytics.Recorder
	var supabaseClient *supa.Client
	if cfg.Store.Driver == "supabase" || cfg.Auth.Provider == "supabase" {
		supabaseClient = supa.CreateClient(cfg.Supabase.URL, cfg.Supabase.Key)
	}

	var users auth.UserStore
	var templates store.Templates
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.Gateway, recorder, users = db, db, db
		templates = db
		log.Debugw("using sqlite store", "path", cfg.Store.Path)
	case "supabase":
		db := supabase.New(supabaseClient)
		a.Gateway, recorder = db, db
		templates = db
		log.Debugw("using supabase store", "url", cfg.Supabase.URL)
	}

	switch cfg.Auth.Provider {
	case "local":
		if users == nil {
			_ = a.Close()
			return nil, errors.New("local auth needs the sqlite store")
		}
		secret := cfg.Auth.JWTSecret
		if secret == "" {
			generated, err := randomSecret()
			if err != nil {
				_ = a.Close()
				return nil, err
			}
			secret = generated
			log.Warnw("auth.jwt_secret is not set; sessions will not survive a restart")
		}
		a.Auth = auth.NewLocal(users, auth.NewTokens(secret, cfg.Auth.TokenTTL, cfg.Auth.Issuer))
	case "supabase":
		a.Auth = auth.NewSupabase(supabaseClient, cfg.Supabase.JWTSecret)
	}

	a.Tracker = analytics.Nop{}
	if cfg.Analytics.Enabled {
		a.Tracker = analytics.New(recorder, log)
	}

	switch cfg.Export.Rasterizer {
	case "command":
		opts := []raster.CommandOption{
			raster.WithBinary(cfg.Export.Command),
			raster.WithCommandWidth(cfg.Export.Width),
			raster.WithCommandScale(cfg.Export.Scale),
		}
		if len(cfg.Export.Args) > 0 {
			opts = append(opts, raster.WithArgs(cfg.Export.Args...))
		}
		a.Rasterizer = raster.NewCommand(opts...)
	default:
		a.Rasterizer = raster.NewText(raster.WithWidth(cfg.Export.Width), raster.WithScale(cfg.Export.Scale))
	}

	switch cfg.Storage.Driver {
	case "dir":
		dir, err := storage.NewDir(cfg.Storage.Dir)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Sink = dir
	case "s3":
		bucket, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:        cfg.Storage.Bucket,
			Region:        cfg.Storage.Region,
			KeyPrefix:     cfg.Storage.KeyPrefix,
			Endpoint:      cfg.Storage.Endpoint,
			PresignExpiry: cfg.Storage.PresignExpiry,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Sink = bucket
	}

	exportOpts := []export.Option{
		export.WithLogger(log),
		export.WithTracker(a.Tracker),
	}
	if a.Sink != nil {
		exportOpts = append(exportOpts, export.WithSink(a.Sink))
	}
	if cfg.Export.TrailingBlankPage {
		exportOpts = append(exportOpts, export.WithPagination(export.WithTrailingBlankPage()))
	}
	a.Exporter = export.New(a.Rasterizer, exportOpts...)

	if a.Gateway != nil {
		a.Invoices = service.NewInvoices(a.Gateway, service.WithTracker(a.Tracker), service.WithLogger(log))
	}
	if templates != nil {
		a.Templates = service.NewTemplates(templates, log)
	}
	a.Workspace = workspace.New(cfg.Server.DraftTTL)

	return a, nil
}

// Server builds the HTTP API over the wired dependencies
func (a *App) Server() *server.Server {
	opts := []server.Option{
		server.WithLogger(a.Logger),
		server.WithExporter(a.Exporter),
		server.WithWorkspace(a.Workspace),
	}
	if a.Auth != nil {
		opts = append(opts, server.WithAuth(a.Auth))
	}
	if a.Invoices != nil {
		opts = append(opts, server.WithInvoices(a.Invoices))
	}
	if a.Templates != nil {
		opts = append(opts, server.WithTemplates(a.Templates))
	}
	return server.NewServer(&server.Config{
		Address:      a.Config.Server.Address,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		DraftTTL:     a.Config.Server.DraftTTL,
		Debug:        a.Config.Server.Debug,

		ExportTimeout:    a.Config.Server.ExportTimeout,
		ResetRedirectURL: a.Config.Auth.ResetRedirectURL,
	}, opts...)
}

// Close releases the store
func (a *App) Close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = errors.CombineErrors(errs, a.closers[i]())
	}
	a.closers = nil
	return errs
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generating jwt secret")
	}
	return hex.EncodeToString(buf), nil
}
