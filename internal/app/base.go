// Package app provides the application layer that orchestrates report
// generation. CLI commands and MCP tools are thin adapters over it so both
// produce identical results.
package app

import (
	"fmt"

	"github.com/josephgoksu/ReportWing/internal/config"
	"github.com/josephgoksu/ReportWing/internal/diagram"
	"github.com/josephgoksu/ReportWing/internal/format"
	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/store"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Context holds shared dependencies for all app services.
type Context struct {
	Settings *config.Settings
	Fs       afero.Fs
	Logger   *zap.Logger
	Metrics  *pipeline.Metrics
	// Store backs the last-good cache and run history. Nil disables both.
	Store *store.SQLiteStore

	gateway  llm.Gateway
	renderer diagram.Renderer
	printer  format.Printer
}

// Option customizes a Context.
type Option func(*Context)

// WithFs replaces the filesystem used for notebooks, prompts and outputs.
func WithFs(fs afero.Fs) Option { return func(c *Context) { c.Fs = fs } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Context) { c.Logger = l } }

// WithStore sets the persistent store instead of opening one from settings.
func WithStore(s *store.SQLiteStore) Option { return func(c *Context) { c.Store = s } }

// WithGateway fixes the LLM gateway instead of building one from settings.
func WithGateway(gw llm.Gateway) Option { return func(c *Context) { c.gateway = gw } }

// WithRenderer fixes the diagram renderer instead of choosing one from settings.
func WithRenderer(r diagram.Renderer) Option { return func(c *Context) { c.renderer = r } }

// WithPrinter sets the PDF printer; without it PDF output uses headless Chrome.
func WithPrinter(p format.Printer) Option { return func(c *Context) { c.printer = p } }

// NewContext creates an app context. Unless a store is supplied, one is
// opened under the configured cache directory when caching is enabled.
func NewContext(settings *config.Settings, opts ...Option) (*Context, error) {
	if settings == nil {
		return nil, fmt.Errorf("app: settings are required")
	}
	c := &Context{Settings: settings, Metrics: pipeline.NewMetrics()}
	for _, opt := range opts {
		opt(c)
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Store == nil && settings.Cache.Enabled && settings.Cache.Dir != "" {
		s, err := store.NewSQLiteStore(settings.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		c.Store = s
	}
	return c, nil
}

// Close releases the store.
func (c *Context) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}
