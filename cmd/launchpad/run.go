package main

import (
	"os"

	"github.com/aretw0/launchpad/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [script]",
	Short: "Run a script",
	Long: `Runs a script and streams session output, each line prefixed with its session id.
Without a script argument, the first of start, main, index or <dir name> found
in --dir is used. Daemon scripts keep the command in the foreground until their
sessions exit or it is interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{Options: optionsFrom(cmd), Ref: refArg(args)}
		opts.Params, _ = cmd.Flags().GetStringArray("param")
		opts.JSON, _ = cmd.Flags().GetString("params")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		opts.Detach, _ = cmd.Flags().GetBool("detach")
		return cli.Run(cmd.Context(), opts, os.Stdout, os.Stderr)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayP("param", "p", nil, "Script argument as key=value (repeatable, dotted keys nest)")
	runCmd.Flags().String("params", "", "Script arguments as a JSON object")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print session output")
	runCmd.Flags().Bool("detach", false, "Return when the script finishes, leaving daemon sessions running")
}
