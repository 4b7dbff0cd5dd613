package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/launchpad/internal/logging"
)

// Store backends accepted by --store.
const (
	StoreNone   = ""
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// ConfigFileName is looked up in the script directory when --config is not set.
const ConfigFileName = "launchpad.yaml"

// Options is the configuration shared by the commands.
type Options struct {
	Dir         string
	Debug       bool
	LogFormat   string // "text" or "json"
	Config      string
	Shell       string
	Store       string
	StorePath   string
	RedisAddr   string
	RedisPrefix string
	Lock        bool
	StepTimeout time.Duration
}

// RunOptions configures the run command.
type RunOptions struct {
	Options
	Ref    string
	Params []string // k=v pairs, values parsed as JSON when possible
	JSON   string   // whole params object
	Quiet  bool
	// Detach returns as soon as the script finishes, leaving daemon sessions to the OS.
	Detach bool
}

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout session output).
func createLogger(opts Options) *slog.Logger {
	if !opts.Debug {
		return logging.NewNop()
	}
	return logging.NewWriter(os.Stderr, slog.LevelDebug, opts.LogFormat == "json")
}

// configPath returns the explicit config or the conventional one in Dir.
func (o Options) configPath() string {
	if o.Config != "" {
		return o.Config
	}
	return filepath.Join(o.Dir, ConfigFileName)
}
