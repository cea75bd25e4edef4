package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"rook/internal/diag"
	"rook/internal/diagfmt"
	"rook/internal/driver"
	"rook/internal/project"
	"rook/internal/source"
)

var (
	summaryOkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	summaryErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	summaryDimStyle = lipgloss.NewStyle().Faint(true)
)

var checkCmd = &cobra.Command{
	Use:   "check <file-or-dir>",
	Short: "Run name resolution, type inference and pattern analysis",
	Long:  `Check reads parsed tree dumps (` + driver.TreeExt + `) produced by the front-end and reports diagnostics`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Bool("json", false, "emit diagnostics as JSON")
	checkCmd.Flags().Int("jobs", 0, "parallel workers for directory checks (0 = NumCPU)")
	checkCmd.Flags().Bool("no-cache", false, "bypass the diagnostics disk cache")
}

func runCheck(cmd *cobra.Command, args []string) error {
	target := args[0]
	asJSON, _ := cmd.Flags().GetBool("json")
	jobs, _ := cmd.Flags().GetInt("jobs")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	showTimings, _ := cmd.Flags().GetBool("timings")
	maxDiag, _ := cmd.Flags().GetInt("max-diagnostics")

	manifest, err := project.Find(target)
	if err != nil {
		return err
	}
	if maxDiag <= 0 {
		maxDiag = manifest.Build.MaxDiagnostics
	}
	if jobs <= 0 {
		jobs = manifest.Build.Jobs
	}

	opts := driver.Options{
		MaxDiagnostics: maxDiag,
		Timings:        showTimings,
	}
	if !noCache {
		if cache, err := driver.OpenDiskCache("rook"); err == nil {
			opts.Cache = cache
		}
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	var fs *source.FileSet
	var results []*driver.Result

	if info.IsDir() {
		fs, results, err = driver.DiagnoseDir(context.Background(), target, opts, jobs)
		if err != nil {
			return err
		}
	} else {
		fs = source.NewFileSet()
		res, err := driver.DiagnoseFile(fs, source.NewInterner(), target, opts)
		if err != nil {
			return err
		}
		results = []*driver.Result{res}
	}

	merged := diag.NewBag(min(60000, maxDiag*max(1, len(results))))
	for _, r := range results {
		merged.Merge(r.Bag)
	}
	merged.Sort()

	if asJSON {
		if err := diagfmt.WriteJSON(os.Stdout, merged, fs); err != nil {
			return err
		}
	} else {
		diagfmt.Pretty(os.Stdout, merged, fs, diagfmt.PrettyOpts{
			Color:   colorEnabled(cmd),
			Context: true,
		})
		printSummary(cmd, results, merged)
	}

	if showTimings {
		for _, r := range results {
			if r.Timing == nil {
				continue
			}
			fmt.Fprintf(os.Stderr, "%s:\n", r.Path)
			r.Timing.Write(os.Stderr)
		}
	}

	if merged.HasErrors() {
		// Non-zero exit status iff any diagnostic has severity error.
		os.Exit(1)
	}
	return nil
}

func printSummary(cmd *cobra.Command, results []*driver.Result, merged *diag.Bag) {
	errors, warnings, cached := 0, 0, 0
	for _, d := range merged.Items() {
		switch d.Severity {
		case diag.SevError:
			errors++
		case diag.SevWarning:
			warnings++
		}
	}
	for _, r := range results {
		if r.FromCache {
			cached++
		}
	}

	var line string
	if errors == 0 {
		line = summaryOkStyle.Render("ok")
	} else {
		line = summaryErrStyle.Render(fmt.Sprintf("%d error(s)", errors))
	}
	if warnings > 0 {
		line += summaryDimStyle.Render(fmt.Sprintf(", %d warning(s)", warnings))
	}
	line += summaryDimStyle.Render(fmt.Sprintf(" — %d file(s)", len(results)))
	if cached > 0 {
		line += summaryDimStyle.Render(fmt.Sprintf(", %d cached", cached))
	}
	fmt.Println(line)
}
