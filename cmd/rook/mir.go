package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rook/internal/driver"
	"rook/internal/mir"
	"rook/internal/source"
)

var mirCmd = &cobra.Command{
	Use:   "mir <file>",
	Short: "Lower a tree dump to MIR and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxDiag, _ := cmd.Flags().GetInt("max-diagnostics")
		if maxDiag <= 0 {
			maxDiag = 256
		}

		fs := source.NewFileSet()
		res, err := driver.DiagnoseFile(fs, source.NewInterner(), args[0], driver.Options{
			MaxDiagnostics: maxDiag,
			EmitMIR:        true,
		})
		if err != nil {
			return err
		}

		if res.Bag.HasErrors() {
			// Partial MIR still prints: failed regions carry Unreachable
			// terminators and error-typed locals.
			fmt.Fprintf(os.Stderr, "warning: %d diagnostic(s); MIR is partial\n", res.Bag.Len())
		}
		if res.MIR != nil {
			mir.Print(os.Stdout, res.MIR)
			if errs := mir.ValidateModule(res.MIR); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintf(os.Stderr, "mir validate: %v\n", e)
				}
			}
		}
		if res.Bag.HasErrors() {
			os.Exit(1)
		}
		return nil
	},
}
