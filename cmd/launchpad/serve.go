package main

import (
	"os"

	"github.com/aretw0/launchpad/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP operator API",
	Long: `Starts an HTTP server that runs scripts in the background and lets operators
inspect runs, stream session output, send input and kill sessions.
Stopping the server terminates every session it started.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.ServeOptions{Options: optionsFrom(cmd)}
		opts.Addr, _ = cmd.Flags().GetString("addr")
		opts.Metrics, _ = cmd.Flags().GetBool("metrics")
		return cli.Serve(cmd.Context(), opts, os.Stderr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics at /metrics")
}
