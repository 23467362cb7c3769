package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keel/internal/diagfmt"
	"keel/internal/driver"
	"keel/internal/irpack"
	"keel/internal/linear"
	"keel/internal/observ"
	"keel/internal/sel"
	"keel/internal/target"
)

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] module.kir",
	Short: "Lower an IR module to linearized machine code",
	Long:  `Lower validates the module, builds per-block selection graphs, decomposes control flow, and prints the linearized result`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLower,
}

func init() {
	lowerCmd.Flags().Int("jobs", 0, "parallel lowering jobs (0 = all cores)")
	lowerCmd.Flags().Bool("stack-protect", false, "insert stack guards in every function")
	lowerCmd.Flags().Bool("graphs", false, "dump selection graphs instead of machine code")
}

func runLower(cmd *cobra.Command, args []string) error {
	td, err := loadTarget(cmd)
	if err != nil {
		return err
	}
	if force, _ := cmd.Flags().GetBool("stack-protect"); force {
		td.Opts.ForceStackProtect = true
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	graphs, _ := cmd.Flags().GetBool("graphs")
	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")

	m, err := irpack.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read module: %w", err)
	}

	timer := observ.NewTimer()
	res, err := driver.LowerModule(cmd.Context(), m, driver.Options{
		Target: td,
		Jobs:   jobs,
		Timer:  timer,
	})
	if err != nil {
		return fmt.Errorf("lowering failed: %w", err)
	}

	popts := diagfmt.PrettyOpts{Color: useColor(cmd, os.Stderr)}
	out := cmd.OutOrStdout()
	for i := range res.Funcs {
		fr := &res.Funcs[i]
		fr.Bag.Sort()
		diagfmt.Pretty(os.Stderr, fr.Bag, popts)
		switch {
		case fr.Err != nil:
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", fr.Err)
		case fr.Invalid:
		case graphs:
			for _, frag := range fr.Lowering.Fragments {
				fmt.Fprintf(out, "# %s\n", frag.Label)
				if err := sel.DumpGraph(out, frag.Graph); err != nil {
					return err
				}
			}
		default:
			if err := linear.Dump(out, fr.Machine); err != nil {
				return err
			}
		}
	}

	if timings {
		fmt.Fprint(os.Stderr, timer.Summary())
	}
	if res.HasErrors() {
		return fmt.Errorf("lowering finished with errors")
	}
	return nil
}

func loadTarget(cmd *cobra.Command) (*target.Desc, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if path == "" {
		return target.Generic64(), nil
	}
	return target.LoadConfig(path)
}
