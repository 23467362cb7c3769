package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keel/internal/ir"
	"keel/internal/irpack"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] module.kir",
	Short: "Print a serialized IR module",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().Bool("digests", false, "print per-function content digests")
	dumpCmd.Flags().Bool("validate", false, "run the validator and report findings")
}

func runDump(cmd *cobra.Command, args []string) error {
	m, err := irpack.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read module: %w", err)
	}
	out := cmd.OutOrStdout()

	if digests, _ := cmd.Flags().GetBool("digests"); digests {
		for _, f := range m.Funcs {
			if f == nil {
				continue
			}
			d, err := irpack.FuncDigest(f)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s  %s\n", d, f.Name)
		}
		return nil
	}

	if validate, _ := cmd.Flags().GetBool("validate"); validate {
		if err := ir.Validate(m); err != nil {
			fmt.Fprintf(os.Stderr, "invalid module:\n%v\n", err)
			return fmt.Errorf("validation failed")
		}
		fmt.Fprintln(out, "module ok")
		return nil
	}

	return ir.DumpModule(out, m)
}
