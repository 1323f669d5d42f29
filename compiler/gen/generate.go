package gen

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
)

// JenniferGenerator compiles a graph and runs the configured renderers.
// Compilation is single-threaded; renderers run in parallel over the
// immutable output, into memory, and nothing is written unless all of
// them succeed.
type JenniferGenerator struct {
	graph     *Graph
	out       *Output
	workers   int
	outDir    string
	pkg       string
	renderers []Renderer

	mu      sync.Mutex
	metrics *WriterMetrics
}

// NewJenniferGenerator creates a generator writing to outDir. The package
// name, renderers and worker count default to the graph config.
//
// Example:
//
//	g, err := gen.NewGraph(cfg, schema)
//	if err != nil {
//		return err
//	}
//	err = gen.NewJenniferGenerator(g, "attributes").
//		WithRenderers(golang.NewTables()).
//		Generate(ctx)
func NewJenniferGenerator(g *Graph, outDir string) *JenniferGenerator {
	gen := &JenniferGenerator{
		graph:   g,
		workers: runtime.GOMAXPROCS(0),
		outDir:  outDir,
		pkg:     DefaultPackage,
		metrics: &WriterMetrics{},
	}
	if c := g.Config; c != nil {
		gen.WithWorkers(c.Workers)
		gen.WithPackage(c.Package)
		gen.renderers = append(gen.renderers, c.Renderers...)
	}
	return gen
}

// WithWorkers sets the number of parallel renderers.
func (g *JenniferGenerator) WithWorkers(n int) *JenniferGenerator {
	if n > 0 {
		g.workers = n
	}
	return g
}

// WithPackage sets the output package name.
func (g *JenniferGenerator) WithPackage(pkg string) *JenniferGenerator {
	if pkg != "" {
		g.pkg = pkg
	}
	return g
}

// WithRenderers adds renderers.
func (g *JenniferGenerator) WithRenderers(rs ...Renderer) *JenniferGenerator {
	g.renderers = append(g.renderers, rs...)
	return g
}

// Graph implements Helper.
func (g *JenniferGenerator) Graph() *Graph { return g.graph }

// Output implements Helper. It is nil until Compile or Generate ran.
func (g *JenniferGenerator) Output() *Output { return g.out }

// Config implements Helper.
func (g *JenniferGenerator) Config() *Config { return g.graph.Config }

// PackageName implements Helper.
func (g *JenniferGenerator) PackageName() string { return g.pkg }

// Logger implements Helper.
func (g *JenniferGenerator) Logger() *slog.Logger { return g.graph.logger() }

// NewFile implements Helper.
func (g *JenniferGenerator) NewFile() *jen.File {
	f := jen.NewFile(g.pkg)
	header := DefaultHeader
	if c := g.graph.Config; c != nil && c.Header != "" {
		header = c.Header
	}
	f.HeaderComment(header)
	f.ImportName(RuntimePackage, "pkcs11")
	return f
}

// Metrics returns the write metrics of the last Generate call.
func (g *JenniferGenerator) Metrics() WriterMetrics {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.metrics
}

// Compile compiles the graph; see Compile.
func (g *JenniferGenerator) Compile() (*Output, error) {
	out, err := Compile(g.graph)
	if err != nil {
		return nil, err
	}
	g.out = out
	return out, nil
}

// Render compiles the graph if needed and runs every renderer, returning
// the artifacts in renderer order. Two artifacts with the same path fail.
func (g *JenniferGenerator) Render(ctx context.Context) ([]*Artifact, error) {
	if len(g.renderers) == 0 {
		return nil, NewConfigError("Renderers", nil, "no renderers configured")
	}
	if g.out == nil {
		if _, err := g.Compile(); err != nil {
			return nil, err
		}
	}
	results := make([][]*Artifact, len(g.renderers))
	errg, ctx := errgroup.WithContext(ctx)
	errg.SetLimit(g.workers)
	for i, r := range g.renderers {
		errg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			as, err := r.Render(ctx, g)
			if err != nil {
				if IsGenerationError(err) {
					return err
				}
				return NewGenerationError(r.Name(), "", "render failed", err)
			}
			g.Logger().Debug("rendered", "renderer", r.Name(), "artifacts", len(as), "elapsed", time.Since(start))
			results[i] = as
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}
	var (
		all   []*Artifact
		owner = make(map[string]string)
	)
	for i, as := range results {
		name := g.renderers[i].Name()
		for _, a := range as {
			if prev, ok := owner[a.Path]; ok {
				return nil, NewGenerationError(name, a.Path, "path already produced by renderer "+prev, nil)
			}
			owner[a.Path] = name
			all = append(all, a)
		}
	}
	return all, nil
}

// Generate compiles, renders and writes all artifacts to the output
// directory. On error no artifact is written.
func (g *JenniferGenerator) Generate(ctx context.Context) error {
	if g.outDir == "" {
		return NewConfigError("Target", nil, "missing target directory")
	}
	artifacts, err := g.Render(ctx)
	if err != nil {
		return err
	}
	w := NewArtifactWriter(g.outDir)
	if err := w.Write(artifacts); err != nil {
		return err
	}
	g.mu.Lock()
	*g.metrics = *w.Metrics()
	g.mu.Unlock()
	g.Logger().Info("generated", "dir", g.outDir, "files", w.Metrics().FilesWritten, "bytes", w.Metrics().TotalBytes)
	return nil
}

// Generate runs the config hooks around a JenniferGenerator writing to
// the config target.
func Generate(ctx context.Context, g *Graph) error {
	if g.Config == nil || g.Config.Target == "" {
		return NewConfigError("Target", nil, "missing target directory in config")
	}
	var generator Generator = GenerateFunc(func(g *Graph) error {
		return NewJenniferGenerator(g, g.Config.Target).Generate(ctx)
	})
	for i := len(g.Config.Hooks) - 1; i >= 0; i-- {
		generator = g.Config.Hooks[i](generator)
	}
	return generator.Generate(g)
}
