package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/lint"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/models"
)

// errLintFailed makes the command exit non-zero without printing an error;
// the report has already been printed.
var errLintFailed = errors.New("lint failed")

func newValidateCmd(a *app) *cobra.Command {
	var (
		disable []string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "validate <maintenance-id>",
		Short: "Check the documents of a maintenance",
		Long: `Load the resource, operator and plan documents of a maintenance and run the
lint rules over them. Exits 1 when a document does not load or any rule
reports an error.

Rules:
` + ruleHelp(),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd.Context(), false)
			if err != nil {
				return err
			}
			if err := m.LintEngine().Disable(disable...); err != nil {
				return err
			}

			report, err := m.Lint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ok, perr := printStructured(a.stdout, output, report); ok {
				if perr != nil {
					return perr
				}
			} else {
				printReport(a, report)
			}
			if report.Status == models.LintFailed {
				return errLintFailed
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "rules to skip (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func ruleHelp() string {
	var s string
	for _, r := range lint.DefaultRules() {
		s += fmt.Sprintf("  %-20s %s\n", r.Name, r.Description)
	}
	return s
}

func printReport(a *app, report *models.LintReport) {
	if len(report.Findings) > 0 {
		tw := newTable(a.stdout)
		fmt.Fprintln(tw, "SEVERITY\tRULE\tRESOURCE\tDESCRIPTION")
		for _, f := range report.Findings {
			resource := f.Resource
			if f.Operator != "" {
				resource = f.Operator + ": " + resource
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Severity, f.Rule, resource, f.Description)
		}
		_ = tw.Flush()
		fmt.Fprintln(a.stdout)
	}
	fmt.Fprintf(a.stdout, "%s: %s (%d errors, %d warnings, %d infos)\n",
		report.MaintenanceID, report.Status, report.Errors, report.Warnings, report.Infos)
}
