package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/launchpad"
	"github.com/aretw0/launchpad/internal/logging"
	"github.com/aretw0/launchpad/pkg/adapters/file"
	"github.com/aretw0/launchpad/pkg/adapters/memory"
	"github.com/aretw0/launchpad/pkg/adapters/process"
	"github.com/aretw0/launchpad/pkg/adapters/redis"
	"github.com/aretw0/launchpad/pkg/ports"
)

// createEngine initializes a launchpad engine with standard CLI conventions.
func createEngine(opts Options, logger *slog.Logger, extra ...launchpad.Option) (*launchpad.Engine, error) {
	engineOpts := []launchpad.Option{
		launchpad.WithLogger(logger),
		launchpad.WithStepTimeout(opts.StepTimeout),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, launchpad.WithLifecycleHooks(logging.Hooks(logger)))
	}

	shell, err := process.LoadConfig(opts.configPath())
	if err != nil {
		return nil, err
	}
	if opts.Shell != "" {
		shell.Program = opts.Shell
		shell.Args = nil
	}
	engineOpts = append(engineOpts, launchpad.WithShell(shell))

	store, locker, err := createStore(opts)
	if err != nil {
		return nil, err
	}
	if store != nil {
		engineOpts = append(engineOpts, launchpad.WithStore(store))
	}
	if locker != nil {
		engineOpts = append(engineOpts, launchpad.WithLocker(locker))
	}

	engine, err := launchpad.New(opts.Dir, append(engineOpts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// createStore selects the session record backend. A locker is only
// available with redis.
func createStore(opts Options) (ports.SessionStore, ports.DistributedLocker, error) {
	switch opts.Store {
	case StoreNone:
		if opts.Lock {
			return nil, nil, fmt.Errorf("--lock requires --store=%s", StoreRedis)
		}
		return nil, nil, nil
	case StoreMemory:
		return memory.NewStore(), nil, nil
	case StoreFile:
		path := opts.StorePath
		if path == "" {
			path = filepath.Join(opts.Dir, ".launchpad", "sessions")
		}
		return file.NewStore(path), nil, nil
	case StoreRedis:
		addr := opts.RedisAddr
		if addr == "" {
			addr = os.Getenv("LAUNCHPAD_REDIS_ADDR")
		}
		if addr == "" {
			addr = "localhost:6379"
		}
		var storeOpts []redis.Option
		if opts.RedisPrefix != "" {
			storeOpts = append(storeOpts, redis.WithPrefix(opts.RedisPrefix))
		}
		store := redis.New(addr, os.Getenv("LAUNCHPAD_REDIS_PASSWORD"), 0, storeOpts...)
		if !opts.Lock {
			return store, nil, nil
		}
		return store, redis.NewLocker(store.Client(), "launchpad:lock:"), nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want %s, %s or %s)", opts.Store, StoreMemory, StoreFile, StoreRedis)
	}
}

// determineEntryPoint finds the script to run when none is given:
// start, main, index, then a script named after the directory.
func determineEntryPoint(dir string) string {
	candidates := []string{"start", "main", "index", filepath.Base(dir)}
	for _, name := range candidates {
		for _, ext := range []string{".json", ".yaml", ".yml"} {
			if _, err := os.Stat(filepath.Join(dir, name+ext)); err == nil {
				return name
			}
		}
	}
	return "start"
}
