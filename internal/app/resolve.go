package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/josephgoksu/ReportWing/internal/diagram"
	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/llm/providers"
	"github.com/josephgoksu/ReportWing/prompts"
	"go.uber.org/zap"
)

// Gateway returns the configured gateway. Offline requests never reach a
// provider.
func (c *Context) Gateway(ctx context.Context, offline bool) (llm.Gateway, error) {
	if offline {
		return llm.Offline{}, nil
	}
	if c.gateway != nil {
		return c.gateway, nil
	}
	cfg := c.Settings.Client
	if cfg.Provider == "" {
		cfg.Provider = llm.ProviderOffline
	}
	gw, err := providers.NewGateway(ctx, cfg, prompts.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("create %s gateway: %w", cfg.Provider, err)
	}
	c.Logger.Debug("gateway ready", zap.String("provider", string(cfg.Provider)), zap.String("model", cfg.Model))
	return gw, nil
}

// Renderer returns the diagram renderer writing into outputDir/diagrams.
func (c *Context) Renderer(outputDir string) (diagram.Renderer, error) {
	if c.renderer != nil {
		return c.renderer, nil
	}
	dir := filepath.Join(outputDir, "diagrams")
	cli := diagram.NewCLIRenderer(c.Fs, dir)
	if p := c.Settings.Diagram.MMDCPath; p != "" {
		cli.Binary = p
	}
	chrome := diagram.NewChromeRenderer(c.Fs, dir)

	switch c.Settings.Diagram.Renderer {
	case "", "auto":
		return diagram.Chain{cli, chrome}, nil
	case "mmdc":
		return cli, nil
	case "chromedp":
		return chrome, nil
	case "none":
		return diagram.NoopRenderer{}, nil
	}
	return nil, fmt.Errorf("unsupported diagram renderer: %q", c.Settings.Diagram.Renderer)
}
