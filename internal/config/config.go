// Package config loads fmsx settings from an HCL file and the environment.
//
// A file looks like:
//
//	query {
//	  base_url = "http://localhost:9081/"
//	  timeout  = "30s"
//	}
//	explorer {
//	  debounce            = "50ms"
//	  default_total_count = 1000
//	}
//	log {
//	  level = "debug"
//	}
//
// Every block and attribute is optional. Environment variables override the
// file; command line flags override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/agentic-research/fmsx/internal/fileset"
	"github.com/agentic-research/fmsx/internal/graph"
	"github.com/agentic-research/fmsx/internal/logging"
	"github.com/agentic-research/fmsx/internal/state"
	"github.com/agentic-research/fmsx/internal/tree"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvBaseURL   = "FMSX_BASE_URL"
	EnvDB        = "FMSX_DB"
	EnvLogLevel  = "FMSX_LOG_LEVEL"
	EnvLogFormat = "FMSX_LOG_FORMAT"
)

// DefaultBaseURL is the query service a fresh install talks to.
const DefaultBaseURL = "http://localhost:9081/"

// Config is the resolved configuration.
type Config struct {
	Query    Query
	Explorer Explorer
	Layout   tree.Layout
	Log      logging.Config
	Metrics  Metrics
}

type Query struct {
	BaseURL string
	Timeout time.Duration
	// DB selects a local SQLite database instead of the HTTP service.
	DB string
}

type Explorer struct {
	Debounce           time.Duration
	DefaultTotalCount  int
	MaxFiles           int
	DisplayAnnotations int
}

type Metrics struct {
	// Listen is the address of the /metrics endpoint. Empty disables it.
	Listen string
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Query: Query{
			BaseURL: DefaultBaseURL,
			Timeout: 30 * time.Second,
		},
		Explorer: Explorer{
			Debounce:           fileset.DefaultDebounce,
			DefaultTotalCount:  fileset.DefaultTotalCount,
			MaxFiles:           graph.DefaultMaxFiles,
			DisplayAnnotations: state.DefaultDisplayAnnotations,
		},
		Layout: tree.DefaultLayout(),
		Log: logging.Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// DefaultPath is ~/.fmsx/fmsx.hcl.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".fmsx", "fmsx.hcl")
}

// file mirrors the HCL layout. Durations are strings so they can be written
// as "50ms".
type file struct {
	Query    *queryBlock    `hcl:"query,block"`
	Explorer *explorerBlock `hcl:"explorer,block"`
	Layout   *layoutBlock   `hcl:"layout,block"`
	Log      *logBlock      `hcl:"log,block"`
	Metrics  *metricsBlock  `hcl:"metrics,block"`
}

type queryBlock struct {
	BaseURL *string `hcl:"base_url,optional"`
	Timeout *string `hcl:"timeout,optional"`
	DB      *string `hcl:"db,optional"`
}

type explorerBlock struct {
	Debounce           *string `hcl:"debounce,optional"`
	DefaultTotalCount  *int    `hcl:"default_total_count,optional"`
	MaxFiles           *int    `hcl:"max_files,optional"`
	DisplayAnnotations *int    `hcl:"display_annotations,optional"`
}

type layoutBlock struct {
	CollapsedHeight *int `hcl:"collapsed_height,optional"`
	RowHeight       *int `hcl:"row_height,optional"`
	ExpandedHeight  *int `hcl:"expanded_height,optional"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
	Output *string `hcl:"output,optional"`
}

type metricsBlock struct {
	Listen *string `hcl:"listen,optional"`
}

// Load reads path on top of the defaults. An empty path means DefaultPath,
// which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Decode(path, src); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode applies the HCL document src to c. filename is used in diagnostics
// and must end in .hcl.
func (c *Config) Decode(filename string, src []byte) error {
	var f file
	if err := hclsimple.Decode(filename, src, nil, &f); err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}

	if q := f.Query; q != nil {
		setString(&c.Query.BaseURL, q.BaseURL)
		setString(&c.Query.DB, q.DB)
		if err := setDuration(&c.Query.Timeout, q.Timeout, "query.timeout"); err != nil {
			return err
		}
	}
	if e := f.Explorer; e != nil {
		if err := setDuration(&c.Explorer.Debounce, e.Debounce, "explorer.debounce"); err != nil {
			return err
		}
		setInt(&c.Explorer.DefaultTotalCount, e.DefaultTotalCount)
		setInt(&c.Explorer.MaxFiles, e.MaxFiles)
		setInt(&c.Explorer.DisplayAnnotations, e.DisplayAnnotations)
	}
	if l := f.Layout; l != nil {
		setInt(&c.Layout.CollapsedHeight, l.CollapsedHeight)
		setInt(&c.Layout.RowHeight, l.RowHeight)
		setInt(&c.Layout.ExpandedHeight, l.ExpandedHeight)
	}
	if l := f.Log; l != nil {
		setString(&c.Log.Level, l.Level)
		setString(&c.Log.Format, l.Format)
		setString(&c.Log.Output, l.Output)
	}
	if m := f.Metrics; m != nil {
		setString(&c.Metrics.Listen, m.Listen)
	}
	return c.Validate()
}

// ApplyEnv overrides settings from environment variables read via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvBaseURL); v != "" {
		c.Query.BaseURL = v
	}
	if v := getenv(EnvDB); v != "" {
		c.Query.DB = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.Query.Timeout <= 0:
		return fmt.Errorf("query.timeout must be positive")
	case c.Explorer.Debounce < 0:
		return fmt.Errorf("explorer.debounce must not be negative")
	case c.Explorer.DefaultTotalCount <= 0:
		return fmt.Errorf("explorer.default_total_count must be positive")
	case c.Explorer.MaxFiles <= 0:
		return fmt.Errorf("explorer.max_files must be positive")
	case c.Explorer.DisplayAnnotations < 0:
		return fmt.Errorf("explorer.display_annotations must not be negative")
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
