// Package gen compiles a PKCS#11 attribute schema into descriptor tables.
//
// # Pipeline
//
//	load.Schema (YAML classes)
//	        ↓
//	   NewGraph: inheritance resolved in declaration order
//	        ↓
//	   Compile: flags, constant pool, per-class rows, lookup table
//	        ↓
//	   Renderers (tables, dynamic, snapshot, catalog), run in parallel
//	        ↓
//	   ArtifactWriter: all files or none
//
// # Key Types
//
//   - Graph: the resolved classes, one attribute map per class
//   - FlagRegistry: ordered flags, bit i is 1<<i
//   - Pool: constants deduplicated by canonical rendering
//   - Output: the compiled descriptors shared by every renderer
//   - Renderer: turns an Output into artifacts
//
// # Error Handling
//
// The package uses structured error types:
//
//   - SchemaError: problems in the schema itself
//   - ConfigError: invalid options or missing configuration
//   - GenerationError: renderer or write failures
//   - ValidationError: compiled values that cannot be represented
//
// Example error handling:
//
//	g, err := gen.NewGraph(cfg, schema)
//	if err != nil {
//		if gen.IsSchemaError(err) {
//			// fix the schema
//		}
//		return err
//	}
package gen
