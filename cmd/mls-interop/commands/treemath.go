package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mls "mlscore"
)

func treeMathCmd() *cobra.Command {
	var leaves []uint

	cmd := &cobra.Command{
		Use:   "tree-math [file]",
		Short: "Generate or check tree-math test vectors",
		Long: "With no file, generates vectors for the requested leaf counts " +
			"and writes them to stdout. With a file, recomputes every derived " +
			"field and reports the first mismatch.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				vectors := make([]mls.TreeMathTestVector, len(leaves))
				for i, n := range leaves {
					vectors[i].Generate(mls.LeafCount(n))
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(vectors)
			}

			var vectors []mls.TreeMathTestVector
			if err := loadVectorFile(args[0], &vectors); err != nil {
				return err
			}
			for i := range vectors {
				if err := vectors[i].Verify(); err != nil {
					return fmt.Errorf("vector %d: %v", i, err)
				}
			}
			fmt.Printf("%d tree-math vectors ok\n", len(vectors))
			return nil
		},
	}

	cmd.Flags().UintSliceVar(&leaves, "leaves", []uint{1, 2, 3, 4, 5, 8, 16, 32}, "leaf counts to generate")
	return cmd
}

func loadVectorFile(filename string, v interface{}) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
