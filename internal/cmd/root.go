package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taleyport",
	Short: "Turn a child's photos into personalised story videos",
	Long: `taleyport drives the story video backend from the terminal.

It walks through three steps: upload a full body photo and a close-up,
generate the narration audio for a story, then generate videos for the
chosen scenes and follow them until every video is ready.

Run 'taleyport wizard' for the interactive flow, or use the individual
commands (upload, audio, video, watch) in scripts and CI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// interrupt.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("home", "", "taleyport home directory (default ~/.taleyport)")
	pf.String("config", "", "config file (default <home>/config.yaml)")
	pf.String("backend-url", "", "story video backend URL (env TALEYPORT_BACKEND_URL)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address while watching")
	pf.Bool("no-color", false, "disable colored output")
	pf.Bool("plain", false, "plain line output instead of interactive views")
}
