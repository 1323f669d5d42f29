// Package compiler wires the schema loader, the resolver and the
// renderers into the pkcs11gen pipeline.
//
//	err := compiler.Generate(ctx, "attributes.yaml",
//		gen.WithRegistryFiles("pkcs11t.h"),
//		gen.WithTarget("internal/attributes"),
//	)
package compiler

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
	"github.com/DiamondKeySecurity/pkcs11/compiler/gen/catalog"
	"github.com/DiamondKeySecurity/pkcs11/compiler/gen/golang"
	"github.com/DiamondKeySecurity/pkcs11/compiler/gen/snapshot"
	"github.com/DiamondKeySecurity/pkcs11/compiler/load"
)

var renderers = map[string]func() gen.Renderer{
	"tables":   func() gen.Renderer { return golang.NewTables() },
	"dynamic":  func() gen.Renderer { return golang.NewDynamic() },
	"snapshot": func() gen.Renderer { return snapshot.New() },
	"catalog":  func() gen.Renderer { return catalog.New() },
}

// DefaultRenderers are used when no renderer is configured.
var DefaultRenderers = []string{"tables", "dynamic"}

// RendererNames returns the names accepted by Renderers, sorted.
func RendererNames() []string {
	return slices.Sorted(maps.Keys(renderers))
}

// Renderers returns new renderers by name.
func Renderers(names ...string) ([]gen.Renderer, error) {
	rs := make([]gen.Renderer, 0, len(names))
	for _, name := range names {
		newRenderer, ok := renderers[name]
		if !ok {
			return nil, gen.NewConfigError("Renderers", name,
				fmt.Sprintf("unknown renderer, expected one of %s", strings.Join(RendererNames(), ", ")))
		}
		rs = append(rs, newRenderer())
	}
	return rs, nil
}

// LoadGraph loads the schema file at path and resolves it under a config
// built from opts.
func LoadGraph(path string, opts ...gen.Option) (*gen.Graph, error) {
	cfg, err := gen.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	schema, err := load.LoadSchema(path)
	if err != nil {
		return nil, gen.NewSchemaError("", "", "", err)
	}
	g, err := gen.NewGraph(cfg, schema)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Debug("resolved schema", "path", path, "classes", len(g.Classes))
	return g, nil
}

// Generate runs the whole pipeline on the schema file at path. Nothing
// is written unless every stage succeeds. Without configured renderers,
// the DefaultRenderers run.
func Generate(ctx context.Context, path string, opts ...gen.Option) error {
	g, err := LoadGraph(path, opts...)
	if err != nil {
		return err
	}
	if len(g.Config.Renderers) == 0 {
		rs, err := Renderers(DefaultRenderers...)
		if err != nil {
			return err
		}
		if err := g.Config.Apply(gen.WithRenderers(rs...)); err != nil {
			return err
		}
	}
	return gen.Generate(ctx, g)
}
