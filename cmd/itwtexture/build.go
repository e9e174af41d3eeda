package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/itwmm/config"
	"github.com/YuminosukeSato/itwmm/pipeline"
	"github.com/YuminosukeSato/itwmm/pkg/log"
)

type buildOptions struct {
	configPath string
	spectrum   string
	output     string
	subset     int
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a texture model from a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML build configuration (required)")
	cmd.Flags().StringVar(&opts.spectrum, "spectrum", "", "Write the explained variance plot to this file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Model output path; overrides the config file")
	cmd.Flags().IntVar(&opts.subset, "subset", -1, "Train on the first N samples only; overrides the config file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runBuild(cmd *cobra.Command, root *rootOptions, opts *buildOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.spectrum != "" {
		cfg.Output.SpectrumPath = opts.spectrum
	}
	if opts.output != "" {
		cfg.Output.ModelPath = opts.output
	}
	if opts.subset >= 0 {
		cfg.Dataset.Subset = opts.subset
	}
	if err := setupLogging(cmd, root, cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}

	res, err := pipeline.Run(cmd.Context(), cfg, log.GetLoggerWithName("pipeline"))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "samples:    %d\n", res.Model.NSamples)
	fmt.Fprintf(out, "vertices:   %d x %d channels\n", res.Model.NVertices, res.Model.NChannels)
	fmt.Fprintf(out, "components: %d\n", res.Model.NComponents())
	fmt.Fprintf(out, "model:      %s\n", cfg.Output.ModelPath)
	if cfg.Output.SpectrumPath != "" {
		fmt.Fprintf(out, "spectrum:   %s\n", cfg.Output.SpectrumPath)
	}
	fmt.Fprintf(out, "elapsed:    %s\n", res.Elapsed.Round(time.Millisecond))
	return nil
}
