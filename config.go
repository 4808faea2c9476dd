package lspclient

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ServerConfig describes how to launch a language server process.
type ServerConfig struct {
	// Command is the executable to run.
	Command string `toml:"command"`

	// Args are command-line arguments.
	Args []string `toml:"args"`

	// Env are additional environment variables, merged over the parent
	// environment.
	Env map[string]string `toml:"env"`

	// WorkDir is the working directory for the process. Empty means the
	// parent's working directory.
	WorkDir string `toml:"workdir"`
}

// Validate reports a configuration that cannot launch anything.
func (c ServerConfig) Validate() error {
	if c.Command == "" {
		return fmt.Errorf("server config: command is required")
	}
	return nil
}

// Config maps language IDs to server launch configurations.
type Config struct {
	Servers map[string]ServerConfig `toml:"servers"`
}

// Validate checks every server entry.
func (c *Config) Validate() error {
	for lang, server := range c.Servers {
		if err := server.Validate(); err != nil {
			return fmt.Errorf("server %q: %w", lang, err)
		}
	}
	return nil
}

// LoadConfig loads a TOML config file. A missing file is not an error; the
// provided defaults are returned instead.
//
// File shape:
//
//	[servers.go]
//	command = "gopls"
//	args = ["serve"]
//
//	[servers.python]
//	command = "pyright-langserver"
//	args = ["--stdio"]
func LoadConfig(path string, defaults *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if defaults != nil {
				return defaults, nil
			}
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := new(Config)
	if defaults != nil {
		*cfg = *defaults
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}
