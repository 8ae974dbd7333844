package postbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/eringen/postbook/layout"
)

// SiteConfig holds the preview server settings.
type SiteConfig struct {
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url" validate:"required,url"`

	Addr         string `yaml:"addr" validate:"required"`
	DatabasePath string `yaml:"database" validate:"required"`
	MediaDir     string `yaml:"media_dir"`

	SessionSecret string `yaml:"session_secret"` // required to serve
	ImportToken   string `yaml:"import_token"`   // empty disables POST /api/import/
	CookieSecure  bool   `yaml:"cookie_secure"`

	CacheTTL    time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	ExportLimit int           `yaml:"export_limit" validate:"gte=1"` // exports per IP per minute
}

// LayoutConfig selects the page geometry. Constants, when present,
// replace the named preset entirely.
type LayoutConfig struct {
	PageSize  string            `yaml:"page_size"`
	Constants *layout.Constants `yaml:"constants,omitempty"`
}

// RenderConfig controls PDF production.
type RenderConfig struct {
	ServiceURL    string        `yaml:"service_url" validate:"omitempty,url"`
	Timeout       time.Duration `yaml:"timeout" validate:"gte=0"`
	Concurrency   int           `yaml:"concurrency" validate:"min=1,max=64"`
	DraftFallback bool          `yaml:"draft_fallback"`
	MaxImageWidth int           `yaml:"max_image_width" validate:"min=64"`
	JPEGQuality   int           `yaml:"jpeg_quality" validate:"min=40,max=100"`
}

// LoggingConfig controls the console and the optional file log.
type LoggingConfig struct {
	Level     string `yaml:"level" validate:"oneof=none normal debug"`
	File      string `yaml:"file,omitempty" validate:"omitempty,filepath"`
	FileLevel string `yaml:"file_level,omitempty" validate:"omitempty,oneof=normal debug"`
}

// Config is the complete postbook configuration.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Layout  LayoutConfig  `yaml:"layout"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
}

func (c *Config) setDefaults() {
	if c.Site.Name == "" {
		c.Site.Name = "Postbook"
	}
	if c.Site.URL == "" {
		c.Site.URL = "http://localhost:3000"
	}
	if c.Site.Addr == "" {
		c.Site.Addr = ":3000"
	}
	if c.Site.DatabasePath == "" {
		c.Site.DatabasePath = "data/postbook.db"
	}
	if c.Site.MediaDir == "" {
		c.Site.MediaDir = "data/media"
	}
	if c.Site.CacheTTL == 0 {
		c.Site.CacheTTL = 5 * time.Minute
	}
	if c.Site.ExportLimit == 0 {
		c.Site.ExportLimit = 3
	}
	if c.Layout.PageSize == "" {
		c.Layout.PageSize = "trade"
	}
	if c.Render.Timeout == 0 {
		c.Render.Timeout = 2 * time.Minute
	}
	if c.Render.Concurrency == 0 {
		c.Render.Concurrency = 4
	}
	if c.Render.MaxImageWidth == 0 {
		c.Render.MaxImageWidth = 800
	}
	if c.Render.JPEGQuality == 0 {
		c.Render.JPEGQuality = 80
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "normal"
	}
	if c.Logging.File != "" && c.Logging.FileLevel == "" {
		c.Logging.FileLevel = "normal"
	}
}

// applyEnv lets the environment override secrets and deployment paths.
func (c *Config) applyEnv() {
	c.Site.SessionSecret = EnvOr("POSTBOOK_SESSION_SECRET", c.Site.SessionSecret)
	c.Site.ImportToken = EnvOr("POSTBOOK_IMPORT_TOKEN", c.Site.ImportToken)
	c.Site.DatabasePath = EnvOr("POSTBOOK_DATABASE", c.Site.DatabasePath)
	c.Render.ServiceURL = EnvOr("POSTBOOK_RENDER_URL", c.Render.ServiceURL)
}

// Constants returns the page geometry the configuration selects.
func (c *Config) Constants() (layout.Constants, error) {
	if c.Layout.Constants != nil {
		return *c.Layout.Constants, nil
	}
	lc, ok := layout.Preset(c.Layout.PageSize)
	if !ok {
		return layout.Constants{}, fmt.Errorf("unknown page size %q (known: %v)", c.Layout.PageSize, layout.PresetNames())
	}
	return lc, nil
}

// Validate checks field constraints and the page geometry.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			errs := make([]error, 0, len(verrs))
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q (%v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.Join(errs...)
		}
		return err
	}
	lc, err := c.Constants()
	if err != nil {
		return err
	}
	return lc.Check()
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result. An empty path loads the
// defaults alone.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := decodeConfig(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decodeConfig(data []byte, cfg *Config) error {
	// only fields we define are accepted
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode configuration: %w", err)
	}
	return nil
}

// DumpConfig renders cfg as YAML with secrets masked.
func DumpConfig(cfg *Config) ([]byte, error) {
	out := *cfg
	if out.Site.SessionSecret != "" {
		out.Site.SessionSecret = "********"
	}
	if out.Site.ImportToken != "" {
		out.Site.ImportToken = "********"
	}
	if out.Layout.Constants == nil {
		if lc, err := cfg.Constants(); err == nil {
			out.Layout.Constants = &lc
		}
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshal config to yaml: %w", err)
	}
	return data, nil
}
