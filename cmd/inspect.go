package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/steps"
)

func newStepsCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "steps [maintenance-id]",
		Short: "List step kinds, or the numbered plan of a maintenance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				defs := steps.Definitions()
				if ok, err := printStructured(a.stdout, output, defs); ok {
					return err
				}
				tw := newTable(a.stdout)
				fmt.Fprintln(tw, "KIND\tZERO\tDESCRIPTION")
				for _, d := range defs {
					fmt.Fprintf(tw, "%s\t%t\t%s\n", d.Kind, d.Zeroable, d.Description)
				}
				return tw.Flush()
			}

			m, err := a.manager(cmd.Context(), false)
			if err != nil {
				return err
			}
			b, err := m.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ok, err := printStructured(a.stdout, output, b.Plan); ok {
				return err
			}
			tw := newTable(a.stdout)
			fmt.Fprintln(tw, "NO\tSTEP\tMODE")
			for i, e := range b.Plan.Entries {
				mode := ""
				if d, _ := steps.Lookup(e.Step); d.Zeroable {
					mode = steps.SuffixResume
					if e.Zero {
						mode = steps.SuffixZero
					}
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", i, e.Step, mode)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func newOperatorsCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "operators <maintenance-id>",
		Short: "List the operators of a maintenance and what they own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd.Context(), false)
			if err != nil {
				return err
			}
			summary, err := m.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ok, err := printStructured(a.stdout, output, summary); ok {
				return err
			}
			tw := newTable(a.stdout)
			fmt.Fprintln(tw, "OPERATOR\tDATABASES\tECS SERVICES\tDEPLOYMENTS\tSTATEFULSETS")
			for _, op := range summary.Operators {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", op.ID, op.Databases, op.ECSServices, op.Deployments, op.StatefulSets)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}
