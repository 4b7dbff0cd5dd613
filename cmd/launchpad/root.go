package main

import (
	"fmt"
	"os"
	"time"

	"github.com/aretw0/launchpad/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "launchpad",
	Short: "Launchpad runs declarative shell orchestration scripts",
	Long: `Launchpad drives long-lived shell sessions from JSON or YAML scripts.
Steps feed commands to named sessions and wait for the process to exit or for
its output to match a pattern; scripts can start other scripts.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("dir", ".", "Directory containing the scripts")
	flags.Bool("debug", false, "Log engine activity to stderr")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("config", "", "Shell configuration file (default <dir>/"+cli.ConfigFileName+")")
	flags.String("shell", "", "Program backing every session (overrides the config file)")
	flags.String("store", "", "Persist session records: memory, file or redis")
	flags.String("store-path", "", "Directory for --store=file")
	flags.String("redis-addr", "", "Redis address for --store=redis (default $LAUNCHPAD_REDIS_ADDR or localhost:6379)")
	flags.String("redis-prefix", "", "Key prefix for --store=redis")
	flags.Bool("lock", false, "Serialize runs of the same script across processes (requires --store=redis)")
	flags.Duration("step-timeout", 0, "Abort a step that does not complete in time (0 disables)")
}

// optionsFrom reads the persistent flags.
func optionsFrom(cmd *cobra.Command) cli.Options {
	flags := cmd.Flags()
	opts := cli.Options{}
	opts.Dir, _ = flags.GetString("dir")
	opts.Debug, _ = flags.GetBool("debug")
	opts.LogFormat, _ = flags.GetString("log-format")
	opts.Config, _ = flags.GetString("config")
	opts.Shell, _ = flags.GetString("shell")
	opts.Store, _ = flags.GetString("store")
	opts.StorePath, _ = flags.GetString("store-path")
	opts.RedisAddr, _ = flags.GetString("redis-addr")
	opts.RedisPrefix, _ = flags.GetString("redis-prefix")
	opts.Lock, _ = flags.GetBool("lock")
	var timeout time.Duration
	timeout, _ = flags.GetDuration("step-timeout")
	opts.StepTimeout = timeout
	return opts
}

func refArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
