package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	serrors "github.com/vango-dev/vstore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╦┌─┐┌┬┐┌─┐┬─┐┌─┐
  ╚╗╔╝└─┐ │ │ │├┬┘├┤
   ╚╝ └─┘ ┴ └─┘┴└─└─┘
`

// globalFlags are shared by every command that opens a store.
type globalFlags struct {
	configPath string
	logLevel   string
	driver     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		serrors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "vstore",
		Short: "Inspect and edit a persistent reactive store",
		Long: `vstore operates on a store described by a definition file
(vstore.yaml, vstore.yml or vstore.json).

It reads and writes fields through the same persistence and
history rules an application uses, and can serve a live
inspector with Prometheus metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Definition file (default: nearest vstore.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flags.driver, "driver", "", "Override the storage driver")

	rootCmd.AddCommand(
		fieldsCmd(flags),
		getCmd(flags),
		setCmd(flags),
		saveCmd(flags),
		undoCmd(flags),
		redoCmd(flags),
		historyCmd(flags),
		serveCmd(flags),
		watchCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// printBanner prints the ASCII art banner.
func printBanner(cmd *cobra.Command) {
	fmt.Fprint(cmd.OutOrStdout(), banner)
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
