package command

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DiamondKeySecurity/pkcs11/cmd/pkcs11gen/internal/watch"
	"github.com/DiamondKeySecurity/pkcs11/compiler"
	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
)

// GenerateOptions holds the options of the generate and watch commands.
type GenerateOptions struct {
	Target    string
	Package   string
	Header    string
	Renderers []string
	Workers   int
	Category  string
	Subtype   string
	Watch     bool
}

func (o *GenerateOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.Target, "out", "o", "", "Output directory")
	f.StringVar(&o.Package, "package", gen.DefaultPackage, "Go package name of the generated source")
	f.StringVar(&o.Header, "header", gen.DefaultHeader, "Header comment of the generated source")
	f.StringSliceVar(&o.Renderers, "renderer", compiler.DefaultRenderers, "Renderers to run, any of: "+strings.Join(compiler.RendererNames(), ", "))
	f.IntVar(&o.Workers, "workers", 0, "Maximum number of renderers running in parallel (0 means GOMAXPROCS)")
	f.StringVar(&o.Category, "category", gen.DefaultCategory, "Attribute whose fixed value is the lookup category")
	f.StringVar(&o.Subtype, "subtype", gen.DefaultSubtype, "Attribute whose fixed value is the lookup subtype")
	_ = cmd.MarkFlagRequired("out")
}

func (o *GenerateOptions) options(cli *CLI) ([]gen.Option, error) {
	rs, err := compiler.Renderers(o.Renderers...)
	if err != nil {
		return nil, err
	}
	opts := append(cli.options(),
		gen.WithTarget(o.Target),
		gen.WithPackage(o.Package),
		gen.WithHeader(o.Header),
		gen.WithRenderers(rs...),
		gen.WithLookupKeys(o.Category, o.Subtype),
	)
	if o.Workers > 0 {
		opts = append(opts, gen.WithWorkers(o.Workers))
	}
	return opts, nil
}

func (o *GenerateOptions) run(ctx context.Context, cli *CLI, schema string) error {
	generate := func(ctx context.Context) error {
		// Rebuilt on every run to pick up registry changes.
		opts, err := o.options(cli)
		if err != nil {
			return err
		}
		return compiler.Generate(ctx, schema, opts...)
	}
	if !o.Watch {
		return generate(ctx)
	}
	w := &watch.Watcher{
		Files:  append([]string{schema}, cli.registries...),
		Run:    generate,
		Logger: cli.Logger,
	}
	return w.Watch(ctx)
}

// NewGenerateCommand returns the generate command.
func NewGenerateCommand(cli *CLI) *cobra.Command {
	o := &GenerateOptions{}
	cmd := &cobra.Command{
		Use:   "generate <schema>",
		Short: "Generate descriptor tables from a schema",
		Long: Highlight("pkcs11gen generate <schema>") + "\n\n" +
			"Compile the schema and write the artifacts of the selected renderers\n" +
			"to the output directory. Nothing is written if any stage fails.\n",
		Example: "  pkcs11gen generate -r pkcs11t.h -o internal/attributes attributes.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), cli, args[0])
		},
	}
	o.bind(cmd)
	cmd.Flags().BoolVarP(&o.Watch, "watch", "w", false, "Regenerate whenever the schema or a registry file changes")
	return cmd
}

// NewWatchCommand returns the watch command, a shorthand for generate --watch.
func NewWatchCommand(cli *CLI) *cobra.Command {
	o := &GenerateOptions{Watch: true}
	cmd := &cobra.Command{
		Use:     "watch <schema>",
		Short:   "Regenerate descriptor tables whenever the inputs change",
		Example: "  pkcs11gen watch -r pkcs11t.h -o internal/attributes attributes.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), cli, args[0])
		},
	}
	o.bind(cmd)
	return cmd
}
