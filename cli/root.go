// Package cli implements the pdfstamp command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// osExit is replaced in tests.
var osExit = os.Exit

// GlobalFlags are shared by all commands.
type GlobalFlags struct {
	ConfigFile string
	LogLevel   string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "pdfstamp",
		Short: "Stamp signature images onto PDF documents",
		Long: `pdfstamp places a signature image on a PDF page using coordinates
relative to the page, appends the drawing as an incremental update and
records content hashes of the document before and after signing.

Run "pdfstamp serve" to start the HTTP signing service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "Configuration file (default ./pdfstamp.conf)")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newServeCommand(flags),
		newStampCommand(),
		newHashCommand(),
		newVerifyCommand(),
		newInspectCommand(),
	)
	return root
}

// Execute runs the command line with os.Args and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}
