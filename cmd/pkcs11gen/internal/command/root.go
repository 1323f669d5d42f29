// Package command implements the pkcs11gen subcommands.
package command

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/DiamondKeySecurity/pkcs11/cmd/pkcs11gen/internal/view"
	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
)

// CLI holds the state shared by all subcommands.
type CLI struct {
	Stdout, Stderr io.Writer
	Logger         *slog.Logger

	registries []string
	logFormat  string
	debug      bool
}

// Highlight colors the given text like headings.
func Highlight(format string, a ...any) string {
	return color.RGB(50, 108, 229).Sprintf(format, a...)
}

// NewRootCommand returns the pkcs11gen command tree.
func NewRootCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkcs11gen",
		Short: "Compile PKCS#11 attribute schemas into descriptor tables",
		Long: Highlight("Usage: pkcs11gen [global options] <subcommand> [args]") + "\n\n" +
			"pkcs11gen resolves an attribute schema along its class hierarchy and\n" +
			"emits one descriptor table per concrete object class, plus a lookup\n" +
			"table keyed by the fixed class and key type values.\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			format, err := view.ParseLogFormat(cli.logFormat)
			if err != nil {
				return err
			}
			level := slog.LevelInfo
			if cli.debug || strings.EqualFold(os.Getenv("PKCS11GEN_LOG"), "debug") {
				level = slog.LevelDebug
			}
			cli.Logger = view.NewLogger(cli.Stderr, format, level)
			return nil
		},
	}
	cmd.SetOut(cli.Stdout)
	cmd.SetErr(cli.Stderr)
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringSliceVarP(&cli.registries, "registry", "r", nil, "C header files defining the numeric IDs (repeatable)")
	cmd.PersistentFlags().StringVar(&cli.logFormat, "log-format", string(view.LogFormatHuman), "Log format. One of: (human | json)")
	cmd.PersistentFlags().BoolVar(&cli.debug, "debug", false, "Set log level to debug")
	cmd.AddCommand(
		NewGenerateCommand(cli),
		NewWatchCommand(cli),
		NewInspectCommand(cli),
	)
	return cmd
}

// options returns the config options shared by all subcommands.
func (cli *CLI) options() []gen.Option {
	logger := cli.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := []gen.Option{gen.WithLogger(logger)}
	if len(cli.registries) > 0 {
		opts = append(opts, gen.WithRegistryFiles(cli.registries...))
	}
	return opts
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color.NoColor = true
	}
	cli := &CLI{Stdout: stdout, Stderr: stderr}
	root := NewRootCommand(cli)
	root.SetArgs(args)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		io.WriteString(stderr, color.RedString("Error: ")+err.Error()+"\n")
		return 1
	}
	return 0
}
