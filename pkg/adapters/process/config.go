package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultGrace is how long Terminate waits after the polite signal before killing the tree.
const DefaultGrace = 3 * time.Second

// ShellConfig selects the program that backs every session.
// The program must read commands from stdin.
type ShellConfig struct {
	Program string            `yaml:"program" json:"program"`
	Args    []string          `yaml:"args" json:"args"`
	Grace   string            `yaml:"grace" json:"grace"`
	Env     map[string]string `yaml:"env" json:"env"`
}

// ConfigFile represents the structure of launchpad.yaml.
type ConfigFile struct {
	Shell ShellConfig `yaml:"shell" json:"shell"`
}

// DefaultShell returns the platform shell.
func DefaultShell() ShellConfig {
	if runtime.GOOS == "windows" {
		return ShellConfig{Program: "cmd.exe", Args: []string{"/Q"}}
	}
	if sh := os.Getenv("LAUNCHPAD_SHELL"); sh != "" {
		return ShellConfig{Program: sh}
	}
	return ShellConfig{Program: "/bin/sh"}
}

// GraceDuration parses Grace, falling back to DefaultGrace.
func (c ShellConfig) GraceDuration() (time.Duration, error) {
	if c.Grace == "" {
		return DefaultGrace, nil
	}
	d, err := time.ParseDuration(c.Grace)
	if err != nil {
		return 0, fmt.Errorf("invalid shell grace %q: %w", c.Grace, err)
	}
	return d, nil
}

// LoadConfig reads a configuration file (YAML or JSON).
// A missing file yields DefaultShell.
func LoadConfig(path string) (ShellConfig, error) {
	cfg := ConfigFile{Shell: DefaultShell()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.Shell, nil
		}
		return ShellConfig{}, fmt.Errorf("failed to read shell config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return ShellConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return ShellConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if cfg.Shell.Program == "" {
		def := DefaultShell()
		cfg.Shell.Program, cfg.Shell.Args = def.Program, def.Args
	}
	if _, err := cfg.Shell.GraceDuration(); err != nil {
		return ShellConfig{}, err
	}
	return cfg.Shell, nil
}
