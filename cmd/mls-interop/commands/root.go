// Package commands implements the mls-interop command tree, the harness side
// of cross-implementation test-vector exchange.
package commands

import (
	"github.com/spf13/cobra"
)

func Execute() error {
	root := &cobra.Command{
		Use:           "mls-interop",
		Short:         "Generate and check MLS interop test vectors",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(treeMathCmd(), checkCmd(), suitesCmd())
	return root.Execute()
}
