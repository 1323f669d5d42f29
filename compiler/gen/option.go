package gen

import (
	"errors"
	"go/token"
	"log/slog"

	"github.com/DiamondKeySecurity/pkcs11/compiler/load"
)

// Option configures code generation.
type Option func(*Config) error

// WithHeader sets the file header comment.
// The header is added at the top of each generated source file.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithPackage sets the Go package name of generated source files.
func WithPackage(name string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(name) {
			return NewConfigError("Package", name, "package name must be a Go identifier")
		}
		c.Package = name
		return nil
	}
}

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithFlags replaces the flag registry with one built from defs.
// Registering more than MaxFlags flags fails.
func WithFlags(defs ...FlagDef) Option {
	return func(c *Config) error {
		r, err := NewFlagRegistry(defs...)
		if err != nil {
			return err
		}
		c.Flags = r
		return nil
	}
}

// WithRegistry sets the numeric-ID registry.
func WithRegistry(r *load.Registry) Option {
	return func(c *Config) error {
		if r == nil {
			return NewConfigError("Registry", nil, "registry cannot be nil")
		}
		c.Registry = r
		return nil
	}
}

// WithRegistryFiles loads the numeric-ID registry from header files.
// Malformed definitions are skipped and logged at debug level.
func WithRegistryFiles(paths ...string) Option {
	return func(c *Config) error {
		if len(paths) == 0 {
			return NewConfigError("Registry", nil, "no registry files given")
		}
		r, err := load.LoadRegistry(paths...)
		if err != nil {
			return NewConfigError("Registry", paths, err.Error())
		}
		for _, s := range r.Skipped() {
			c.logger().Debug("skipped registry definition", "definition", s)
		}
		c.Registry = r
		return nil
	}
}

// WithLookupKeys sets the category and subtype attributes of the lookup
// table. The defaults are "class" and "key_type".
func WithLookupKeys(category, subtype string) Option {
	return func(c *Config) error {
		switch {
		case category == "" || subtype == "":
			return NewConfigError("LookupKeys", nil, "category and subtype cannot be empty")
		case category == subtype:
			return NewConfigError("LookupKeys", category, "category and subtype must differ")
		}
		c.Category, c.Subtype = category, subtype
		return nil
	}
}

// WithRenderers adds output renderers.
func WithRenderers(renderers ...Renderer) Option {
	return func(c *Config) error {
		for _, r := range renderers {
			if r == nil {
				return NewConfigError("Renderers", nil, "renderer cannot be nil")
			}
		}
		c.Renderers = append(c.Renderers, renderers...)
		return nil
	}
}

// WithHooks adds generation hooks.
// Hooks are called before/after code generation.
func WithHooks(hooks ...Hook) Option {
	return func(c *Config) error {
		c.Hooks = append(c.Hooks, hooks...)
		return nil
	}
}

// WithWorkers bounds the number of renderers running in parallel.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := defaultConfig()
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
