package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/itwmm/report"
	"github.com/YuminosukeSato/itwmm/texture"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	var spectrum string
	cmd := &cobra.Command{
		Use:   "inspect MODEL",
		Short: "Print the summary of a saved texture model as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(cmd, root, "warn", "console"); err != nil {
				return err
			}
			m, err := texture.Load(args[0])
			if err != nil {
				return err
			}
			js, err := m.SummaryJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(js))

			if spectrum != "" {
				return report.SaveSpectrum(m, spectrum)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&spectrum, "spectrum", "", "Also write the explained variance plot to this file")
	return cmd
}
