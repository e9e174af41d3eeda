// Command itwtexture builds and inspects in-the-wild texture models.
//
//	itwtexture build --config itw.yaml [--spectrum spectrum.png]
//	itwtexture inspect itw_texture_model.gob
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/itwmm/pkg/log"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "itwtexture",
		Short: "Build in-the-wild texture models for 3D morphable models",
		Long: `itwtexture learns a robust PCA texture basis from images paired with
3D mesh fits. Each image is cropped and rescaled so its mesh spans a fixed
diagonal, turned into dense features and sampled at every visible vertex.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (json, console, slog); overrides the config file")

	cmd.AddCommand(newBuildCmd(opts), newInspectCmd(opts))
	return cmd
}

// setupLogging installs the process-wide logger, preferring flag values over
// the given defaults.
func setupLogging(cmd *cobra.Command, opts *rootOptions, level, format string) error {
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	if opts.logFormat != "" {
		format = opts.logFormat
	}
	lvl, ok := log.ParseLevel(level)
	if !ok {
		return fmt.Errorf("invalid log level %q", level)
	}
	if format == "" {
		format = "json"
	}
	log.Setup(cmd.ErrOrStderr(), lvl, format)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
