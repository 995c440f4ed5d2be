// Package cli implements reportctl, the offline companion tool: it runs the
// valuation pipeline over local JSON files without a running server, which is
// how valuers lint evidence batches and preview compilations.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "dev"

// NewRootCmd builds the reportctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Offline tooling for the valuation report pipeline",
		Long:          "reportctl runs the report assembly pipeline over local JSON files:\nevidence linting, comparable selection, section classification,\ncontradiction checking, and full report compilation.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newEvidenceCmd())
	root.AddCommand(newCompileCmd())
	return root
}
