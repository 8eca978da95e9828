package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	mls "mlscore"
)

// The vector types the runner can load. tree-math additionally supports full
// verification via its own subcommand; the rest are decoded to validate the
// JSON shape against the schema the core publishes.
var vectorTypes = map[string]func() interface{}{
	"tree-math":    func() interface{} { return new([]mls.TreeMathTestVector) },
	"encryption":   func() interface{} { return new([]mls.EncryptionTestVector) },
	"key-schedule": func() interface{} { return new([]mls.KeyScheduleTestVector) },
	"transcript":   func() interface{} { return new([]mls.TranscriptTestVector) },
	"treekem":      func() interface{} { return new([]mls.TreeKEMTestVector) },
	"messages":     func() interface{} { return new([]mls.MessagesTestVector) },
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <type> <file>",
		Short: "Check that a vector file matches the published JSON schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			newVec, ok := vectorTypes[args[0]]
			if !ok {
				return fmt.Errorf("unknown vector type %q", args[0])
			}
			v := newVec()
			if err := loadVectorFile(args[1], v); err != nil {
				return err
			}
			fmt.Printf("%s vectors ok\n", args[0])
			return nil
		},
	}
}

func suitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suites",
		Short: "List the supported ciphersuites",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, cs := range mls.AllSupportedSuites {
				scheme, err := cs.SignatureScheme()
				if err != nil {
					return err
				}
				size, err := cs.SecretSize()
				if err != nil {
					return err
				}
				fmt.Printf("0x%04x %s sig_scheme=0x%04x secret_size=%d\n", uint16(cs), cs, uint16(scheme), size)
			}
			return nil
		},
	}
}
