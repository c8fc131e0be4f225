package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/invoicer/internal/auth"
	"github.com/rezonia/invoicer/internal/export"
	"github.com/rezonia/invoicer/internal/logger"
	"github.com/rezonia/invoicer/internal/raster"
	"github.com/rezonia/invoicer/internal/service"
	"github.com/rezonia/invoicer/internal/workspace"
)

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DraftTTL     time.Duration
	Debug        bool
	// ExportTimeout bounds each export request; zero uses DefaultExportTimeout
	ExportTimeout time.Duration
	// ResetRedirectURL is where password reset links land. Empty uses the
	// request origin plus /auth/reset-password.
	ResetRedirectURL string
}

// Server represents the HTTP API server
type Server struct {
	config    *Config
	router    *gin.Engine
	logger    *logger.Logger
	drafts    *workspace.Workspace
	exporter  *export.Exporter
	auth      auth.Provider
	invoices  *service.Invoices
	templates *service.Templates
	newItemID func() string
}

// Option configures optional server dependencies
type Option func(*Server)

// WithLogger sets the logger used for requests and handler errors
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithExporter replaces the default text rasterizer exporter
func WithExporter(e *export.Exporter) Option {
	return func(s *Server) {
		if e != nil {
			s.exporter = e
		}
	}
}

// WithAuth enables the auth routes and bearer sessions
func WithAuth(p auth.Provider) Option {
	return func(s *Server) {
		s.auth = p
	}
}

// WithInvoices enables the saved invoice routes
func WithInvoices(svc *service.Invoices) Option {
	return func(s *Server) {
		s.invoices = svc
	}
}

// WithTemplates enables the template routes
func WithTemplates(svc *service.Templates) Option {
	return func(s *Server) {
		s.templates = svc
	}
}

// WithWorkspace shares a draft workspace
func WithWorkspace(ws *workspace.Workspace) Option {
	return func(s *Server) {
		if ws != nil {
			s.drafts = ws
		}
	}
}

// NewServer creates a new API server
func NewServer(config *Config, opts ...Option) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:    config,
		router:    gin.New(),
		logger:    logger.NewNop(),
		newItemID: newItemID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.drafts == nil {
		s.drafts = workspace.New(config.DraftTTL)
	}
	if s.exporter == nil {
		s.exporter = export.New(raster.NewText(), export.WithLogger(s.logger))
	}

	s.router.Use(gin.Recovery())
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(ErrorHandler(s.logger))
	s.router.Use(ClientMetadata())
	s.router.Use(Authenticate(s.auth))

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/currencies", s.handleCurrencies)

		// Stateless operations on a posted invoice
		v1.POST("/calculate", s.handleCalculate)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/preview", s.handlePreview)
		v1.POST("/export", s.handleExport)

		// Drafts held in the workspace
		drafts := v1.Group("/drafts")
		drafts.POST("", s.handleCreateDraft)
		drafts.GET("/:id", s.handleGetDraft)
		drafts.PATCH("/:id", s.handlePatchDraft)
		drafts.DELETE("/:id", s.handleDeleteDraft)
		drafts.POST("/:id/items", s.handleAddItem)
		drafts.PATCH("/:id/items/:index", s.handleUpdateItem)
		drafts.DELETE("/:id/items/:index", s.handleRemoveItem)
		drafts.GET("/:id/validate", s.handleValidateDraft)
		drafts.GET("/:id/preview", s.handlePreviewDraft)
		drafts.POST("/:id/export", s.handleExportDraft)

		authGroup := v1.Group("/auth")
		authGroup.POST("/signup", s.handleSignUp)
		authGroup.POST("/signin", s.handleSignIn)
		authGroup.POST("/signout", s.handleSignOut)
		authGroup.GET("/session", s.handleSession)
		authGroup.POST("/reset-password", s.handleResetPassword)

		templates := v1.Group("/templates")
		templates.GET("", s.handleListTemplates)
		templates.POST("", RequireSession(), s.handleSaveTemplate)
		templates.GET("/:id", s.handleGetTemplate)
		templates.POST("/:id/drafts", s.handleDraftFromTemplate)

		invoices := v1.Group("/invoices", RequireSession())
		invoices.GET("", s.handleListInvoices)
		invoices.POST("", s.handleSaveInvoice)
		invoices.GET("/:id", s.handleGetInvoice)
		invoices.DELETE("/:id", s.handleDeleteInvoice)
		invoices.POST("/:id/export", s.handleExportInvoice)
	}
}

// Run starts the HTTP server and shuts it down when ctx is done
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
