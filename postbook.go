// Package postbook turns an imported feed of short posts into a printable
// book. It stores the feed in SQLite, serves an interactive spread preview
// built with Echo, and exports the book as a PDF.
//
// The layout engine itself lives in the layout and book packages; this
// package wires it to storage, media, rendering and HTTP.
package postbook

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eringen/postbook/layout"
	"github.com/eringen/postbook/render"
	"github.com/eringen/postbook/views"
)

// App is the central postbook application. It wires together the store,
// cache, renderers, handlers and middleware.
type App struct {
	Config    *Config
	Constants layout.Constants
	Echo      *echo.Echo
	Store     *Store
	Cache     *BookCache
	Media     *Media
	Log       *zap.Logger

	// Renderer produces export PDFs; Draft is the local fallback.
	Renderer render.Renderer
	Draft    render.Renderer

	exportLimiter *ExportLimiter
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger sets the logger; the default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(a *App) {
		a.Log = log
	}
}

// WithRenderer replaces the renderer chosen from the configuration.
func WithRenderer(r render.Renderer) Option {
	return func(a *App) {
		a.Renderer = r
	}
}

// New creates an App from a validated configuration.
func New(cfg *Config, opts ...Option) (*App, error) {
	c, err := cfg.Constants()
	if err != nil {
		return nil, fmt.Errorf("postbook: %w", err)
	}
	a := &App{
		Config:    cfg,
		Constants: c,
		Echo:      echo.New(),
		Log:       zap.NewNop(),
		Draft:     render.NewDraft(cfg.Render.Concurrency),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Renderer == nil {
		if cfg.Render.ServiceURL != "" {
			a.Renderer = render.NewService(cfg.Render.ServiceURL, cfg.Render.Timeout, cfg.Render.Concurrency)
		} else {
			a.Renderer = a.Draft
		}
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	return a, nil
}

// Open initializes the database, media and cache. Commands that do not
// serve HTTP call Open alone.
func (a *App) Open() error {
	store, err := NewStore(a.Config.Site.DatabasePath)
	if err != nil {
		return fmt.Errorf("postbook: init store: %w", err)
	}
	a.Store = store
	a.Media = NewMedia(a.Config.Site.MediaDir, a.Config.Render.MaxImageWidth, a.Config.Render.JPEGQuality, a.Config.Render.Concurrency)
	a.Cache = NewBookCache(a.Store, a.Media, a.Constants, a.Config.Site.CacheTTL, a.Log)
	return nil
}

// Setup opens the app and installs middleware and routes without
// listening.
func (a *App) Setup() error {
	if a.Config.Site.SessionSecret == "" {
		return fmt.Errorf("postbook: session secret is required")
	}
	if err := a.Open(); err != nil {
		return err
	}
	a.exportLimiter = NewExportLimiter(a.Config.Site.ExportLimit, time.Minute)
	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

// Start sets the app up and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Log.Info("Serving preview", zap.String("addr", a.Config.Site.Addr), zap.String("url", a.Config.Site.URL))
	if err := a.Echo.Start(a.Config.Site.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.StaticFS("/public", embeddedFS)

	e.GET("/", a.handleHome)
	e.GET("/spreads/:n/", a.handleSpread)
	e.GET("/pages/:n/", a.handlePage)
	e.POST("/export/", a.handleExport)

	e.GET("/api/book/", a.handleBookJSON)
	e.POST("/api/import/", a.handleImport)
}

// siteConfig is what every view gets to know about the site.
func (a *App) siteConfig() views.SiteConfig {
	return views.SiteConfig{Name: a.Config.Site.Name, URL: a.Config.Site.URL}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var err error
	if a.exportLimiter != nil {
		a.exportLimiter.Stop()
	}
	if a.Echo != nil {
		err = multierr.Append(err, a.Echo.Close())
	}
	if a.Store != nil {
		err = multierr.Append(err, a.Store.Close())
	}
	return err
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
