package gen

import (
	"log/slog"
	"runtime"

	"github.com/DiamondKeySecurity/pkcs11/compiler/load"
)

// Defaults applied by NewConfig.
const (
	DefaultHeader   = "Code generated by pkcs11gen. DO NOT EDIT."
	DefaultPackage  = "attributes"
	DefaultCategory = "class"
	DefaultSubtype  = "key_type"
)

// RuntimePackage is the import path of the descriptor types that
// generated Go code instantiates.
const RuntimePackage = "github.com/DiamondKeySecurity/pkcs11"

type (
	// The Config holds the global codegen configuration shared by the
	// resolver, the emitter and every renderer.
	Config struct {
		// Target is the directory the artifacts are written to.
		Target string
		// Package is the Go package name of generated source files.
		Package string
		// Header is the comment written at the top of generated source files.
		Header string
		// Flags is the descriptor flag registry.
		Flags *FlagRegistry
		// Registry resolves attribute identifiers, named constants and
		// scalar widths to numbers.
		Registry *load.Registry
		// Category and Subtype name the two attributes whose fixed values
		// key the lookup table.
		Category, Subtype string
		// Renderers produce the output artifacts.
		Renderers []Renderer
		// Hooks wrap the generator; see Hook.
		Hooks []Hook
		// Workers bounds the number of renderers running in parallel.
		Workers int
		// Logger receives progress and diagnostics.
		Logger *slog.Logger
	}

	// Generator is the interface that wraps the Generate method.
	Generator interface {
		// Generate compiles the graph and writes its artifacts.
		Generate(*Graph) error
	}

	// The GenerateFunc type is an adapter to allow the use of ordinary
	// functions as Generator.
	GenerateFunc func(*Graph) error

	// Hook defines the generate middleware. A Hook can run code before or
	// after the wrapped generator, or replace it.
	//
	//	func Timing(next gen.Generator) gen.Generator {
	//		return gen.GenerateFunc(func(g *gen.Graph) error {
	//			defer func(start time.Time) { log.Println(time.Since(start)) }(time.Now())
	//			return next.Generate(g)
	//		})
	//	}
	Hook func(Generator) Generator
)

// Generate calls f(g).
func (f GenerateFunc) Generate(g *Graph) error {
	return f(g)
}

func defaultConfig() *Config {
	return &Config{
		Package:  DefaultPackage,
		Header:   DefaultHeader,
		Flags:    DefaultFlagRegistry(),
		Category: DefaultCategory,
		Subtype:  DefaultSubtype,
		Workers:  runtime.GOMAXPROCS(0),
		Logger:   slog.New(slog.DiscardHandler),
	}
}

// logger returns the configured logger or one that discards.
func (c *Config) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// flags returns the configured flag registry or the default one.
func (c *Config) flags() *FlagRegistry {
	if c.Flags == nil {
		return DefaultFlagRegistry()
	}
	return c.Flags
}

// lookupKeys returns the category and subtype attribute names.
func (c *Config) lookupKeys() (string, string) {
	category, subtype := c.Category, c.Subtype
	if category == "" {
		category = DefaultCategory
	}
	if subtype == "" {
		subtype = DefaultSubtype
	}
	return category, subtype
}
