// Package config loads and auto-creates the nimsh configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config mirrors the sections of nimsh.toml. Keys absent from the file keep
// their defaults; the file is created with defaults when it does not exist.
type Config struct {
	History HistoryConfig `toml:"History"`
	Style   StyleConfig   `toml:"Style"`
}

type HistoryConfig struct {
	Persistent bool `toml:"persistent"`
}

type StyleConfig struct {
	Prompt    string `toml:"prompt"`
	ShowTypes bool   `toml:"showTypes"`
	ShowColor bool   `toml:"showColor"`
}

const defaultFileContent = `[History]
persistent = true

[Style]
prompt = "nim> "
showTypes = true
showColor = true
`

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		History: HistoryConfig{Persistent: true},
		Style: StyleConfig{
			Prompt:    "nim> ",
			ShowTypes: true,
			ShowColor: true,
		},
	}
}

// Dir returns the nimsh configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return filepath.Join(base, "nimsh"), nil
}

// DefaultPath returns the default location of nimsh.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nimsh.toml"), nil
}

// HistoryPath returns the location of the persistent history file.
func HistoryPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// Load reads the configuration at path, creating it with defaults first when
// it is missing or when recreate is set. Keys the file does not define fall
// back to their defaults.
func Load(path string, recreate bool) (Config, error) {
	if recreate {
		if err := writeDefault(path); err != nil {
			return Config{}, err
		}
	} else if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeDefault(path); err != nil {
			return Config{}, err
		}
	} else if err != nil {
		return Config{}, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	def := Default()
	if !meta.IsDefined("History", "persistent") {
		cfg.History.Persistent = def.History.Persistent
	}
	if !meta.IsDefined("Style", "prompt") {
		cfg.Style.Prompt = def.Style.Prompt
	}
	if !meta.IsDefined("Style", "showTypes") {
		cfg.Style.ShowTypes = def.Style.ShowTypes
	}
	if !meta.IsDefined("Style", "showColor") {
		cfg.Style.ShowColor = def.Style.ShowColor
	}
	return cfg, nil
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultFileContent), 0o600); err != nil {
		return fmt.Errorf("failed to write config %q: %w", path, err)
	}
	return nil
}
