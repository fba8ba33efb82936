package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/maintenance"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/models"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/strutil"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		operators []string
		stepRange string
		distDir   string
		publish   bool
		output    string
	)
	cmd := &cobra.Command{
		Use:   "render <maintenance-id>",
		Short: "Render the maintenance scripts of a maintenance",
		Long: `Render one script per plan step per operator into the dist directory.

Steps that do not apply to an operator are skipped. A failing step is reported
and the remaining steps are still rendered.

Examples:
  janus render 2024-06-db-upgrade
  janus render 2024-06-db-upgrade --operator alice --steps 0-3,7
  janus render 2024-06-db-upgrade --dist ./out --publish`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := strutil.ExpandRange(stepRange)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			m, err := a.manager(ctx, publish)
			if err != nil {
				return err
			}
			defer a.attachHistory(ctx, m)()

			run, err := m.Render(ctx, args[0], maintenance.RenderOptions{
				Operators: operators,
				Steps:     numbers,
				DistDir:   distDir,
				Publish:   publish,
			})
			if run == nil {
				return err
			}
			if ok, perr := printStructured(a.stdout, output, run); ok {
				if perr != nil {
					return perr
				}
			} else {
				printRun(a, run)
			}
			if err != nil {
				return err
			}
			if run.Failed > 0 {
				return fmt.Errorf("%d of %d steps failed", run.Failed, len(run.Outcomes))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&operators, "operator", nil, "render only these operators (repeatable)")
	cmd.Flags().StringVar(&stepRange, "steps", "", `render only these step numbers, e.g. "0-3,7"`)
	cmd.Flags().StringVar(&distDir, "dist", "", "output directory (default <data_path>/<id>/dist or <dist_path>/<id>)")
	cmd.Flags().BoolVar(&publish, "publish", false, "upload written scripts to the configured publish backend")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func printRun(a *app, run *models.RenderRun) {
	tw := newTable(a.stdout)
	fmt.Fprintln(tw, "OPERATOR\tSTEP\tNAME\tSTATUS\tFILE")
	for _, o := range run.Outcomes {
		file := o.Filename
		if o.Status == models.OutcomeFailed {
			file = o.Error
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", o.Operator, o.StepNo, o.Step, o.Status, file)
	}
	_ = tw.Flush()

	fmt.Fprintf(a.stdout, "\nrun %s: %s (%d written, %d skipped, %d failed) in %s\n",
		run.ID, run.Status, run.Written, run.Skipped, run.Failed, run.DistDir)
	for _, key := range run.Published {
		fmt.Fprintf(a.stdout, "published %s\n", key)
	}
}
