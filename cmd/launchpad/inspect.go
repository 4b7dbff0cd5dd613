package main

import (
	"os"

	"github.com/aretw0/launchpad/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [script]",
	Short: "Check a script and every script it references",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Validate(cmd.Context(), optionsFrom(cmd), refArg(args), os.Stdout)
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe [script]",
	Short: "Describe what a script does",
	Long:  `Prints the script tree as rendered markdown, or as a Mermaid flowchart with --format=mermaid.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return cli.Describe(cmd.Context(), optionsFrom(cmd), refArg(args), format, os.Stdout)
	},
}

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "List the scripts under --dir",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Scripts(cmd.Context(), optionsFrom(cmd), os.Stdout)
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted session records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prune, _ := cmd.Flags().GetBool("prune")
		return cli.Sessions(cmd.Context(), optionsFrom(cmd), prune, os.Stdout)
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the script format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Schema(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, describeCmd, scriptsCmd, sessionsCmd, schemaCmd)

	describeCmd.Flags().String("format", cli.FormatMarkdown, "Output format: markdown or mermaid")
	sessionsCmd.Flags().Bool("prune", false, "Delete records of sessions that are no longer running")
}
