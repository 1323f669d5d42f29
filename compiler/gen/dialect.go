package gen

import (
	"context"
	"log/slog"

	"github.com/dave/jennifer/jen"
)

// Artifact is one rendered output file.
type Artifact struct {
	// Path is relative to the target directory.
	Path string
	Data []byte
}

// Renderer turns the compiled output into artifacts. Renderers read the
// shared Output concurrently and must not modify it.
type Renderer interface {
	// Name returns the renderer name, e.g. "tables".
	Name() string
	// Render returns the artifacts for the compiled output of h.
	Render(ctx context.Context, h Helper) ([]*Artifact, error)
}

// Helper provides renderers with the compiled output and shared
// configuration. *JenniferGenerator implements Helper.
type Helper interface {
	// Graph returns the resolved class hierarchy.
	Graph() *Graph
	// Output returns the compiled descriptors.
	Output() *Output
	// Config returns the generation config.
	Config() *Config
	// PackageName returns the Go package name for generated source files.
	PackageName() string
	// NewFile returns a Jennifer file in PackageName with the configured header.
	NewFile() *jen.File
	// Logger returns the logger.
	Logger() *slog.Logger
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc struct {
	ID string
	Fn func(context.Context, Helper) ([]*Artifact, error)
}

// Name returns f.ID.
func (f RendererFunc) Name() string { return f.ID }

// Render calls f.Fn.
func (f RendererFunc) Render(ctx context.Context, h Helper) ([]*Artifact, error) {
	return f.Fn(ctx, h)
}
