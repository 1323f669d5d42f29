// Package golang renders compiled attribute descriptors as Go source.
//
// Usage:
//
//	import (
//	    "github.com/DiamondKeySecurity/pkcs11/compiler/gen"
//	    "github.com/DiamondKeySecurity/pkcs11/compiler/gen/golang"
//	)
//
//	generator := gen.NewJenniferGenerator(graph, outDir)
//	generator.WithRenderers(golang.NewTables(), golang.NewDynamic())
//	generator.Generate(ctx)
//
// Generated code structure:
//
//	{output}/
//	├── attributes.go   # Flags, constants, descriptor tables, KeyTypeMappings
//	└── dynamic.go      # Classes: attribute infos keyed by class and name
package golang

import (
	"context"

	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
)

// Default artifact paths.
const (
	TablesFile  = "attributes.go"
	DynamicFile = "dynamic.go"
)

// Generate writes the tables and dynamic renderings of g to the config
// target, in addition to any renderers already configured.
func Generate(ctx context.Context, g *gen.Graph) error {
	if g.Config == nil || g.Config.Target == "" {
		return gen.NewConfigError("Target", nil, "missing target directory in config")
	}
	return gen.NewJenniferGenerator(g, g.Config.Target).
		WithRenderers(NewTables(), NewDynamic()).
		Generate(ctx)
}
