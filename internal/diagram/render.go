package diagram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/josephgoksu/ReportWing/internal/utils"
	"github.com/spf13/afero"
)

// ErrUnavailable means no rendering backend could produce an image. Callers
// fall back to textual node and edge lists.
var ErrUnavailable = errors.New("diagram renderer unavailable")

// Artifact is a rendered diagram image.
type Artifact struct {
	Path   string
	Format string
	Bytes  int
}

// Renderer turns a graph into an image artifact.
type Renderer interface {
	Render(ctx context.Context, name string, g Graph) (Artifact, error)
}

// NoopRenderer never renders. It is used in offline runs and tests.
type NoopRenderer struct{}

func (NoopRenderer) Render(context.Context, string, Graph) (Artifact, error) {
	return Artifact{}, ErrUnavailable
}

// CLIRenderer shells out to mermaid-cli (mmdc).
type CLIRenderer struct {
	Binary string
	OutDir string
	Format string // png or svg
	Fs     afero.Fs
}

// NewCLIRenderer returns a renderer that writes into outDir.
func NewCLIRenderer(fs afero.Fs, outDir string) *CLIRenderer {
	return &CLIRenderer{Binary: "mmdc", OutDir: outDir, Format: "png", Fs: fs}
}

func (r *CLIRenderer) Render(ctx context.Context, name string, g Graph) (Artifact, error) {
	bin, err := exec.LookPath(r.Binary)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %s not found", ErrUnavailable, r.Binary)
	}

	// mmdc needs real files, so the source goes through the OS temp dir even
	// when the output fs is in-memory.
	tmp, err := os.MkdirTemp("", "reportwing-mmd-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer os.RemoveAll(tmp)

	src := filepath.Join(tmp, "diagram.mmd")
	out := filepath.Join(tmp, "diagram."+r.Format)
	if err := os.WriteFile(src, []byte(g.Mermaid()), 0o644); err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-i", src, "-o", out, "-b", "white")
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Artifact{}, fmt.Errorf("%w: mmdc: %v: %s", ErrUnavailable, err, utils.Truncate(stderr.String(), 200))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return writeArtifact(r.Fs, r.OutDir, name, r.Format, data)
}

func writeArtifact(fs afero.Fs, dir, name, format string, data []byte) (Artifact, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create diagram dir: %w", err)
	}
	path := filepath.Join(dir, utils.Slug(name)+"."+format)
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write diagram: %w", err)
	}
	return Artifact{Path: path, Format: format, Bytes: len(data)}, nil
}

// Chain tries renderers in order and returns the first artifact produced.
type Chain []Renderer

func (c Chain) Render(ctx context.Context, name string, g Graph) (Artifact, error) {
	var errs []error
	for _, r := range c {
		a, err := r.Render(ctx, name, g)
		if err == nil {
			return a, nil
		}
		if ctx.Err() != nil {
			return Artifact{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Artifact{}, ErrUnavailable
	}
	return Artifact{}, fmt.Errorf("%w: %v", ErrUnavailable, errors.Join(errs...))
}
