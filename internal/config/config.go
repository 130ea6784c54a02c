package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional blockio configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Bench    BenchConfig    `toml:"bench"`
	History  HistoryConfig  `toml:"history"`
}

// DefaultsConfig holds persistent flag defaults for transform, create and bench.
type DefaultsConfig struct {
	BlockSize *string `toml:"block_size"`
	BWLimit   *string `toml:"bwlimit"`
	Verify    *bool   `toml:"verify"`
	Checksum  *bool   `toml:"checksum"`
	InPlace   *bool   `toml:"in_place"`
	Lock      *bool   `toml:"lock"`
}

// BenchConfig holds defaults for the bench command.
type BenchConfig struct {
	Backends   []string `toml:"backends"`
	Runs       *int     `toml:"runs"`
	ClearCache *bool    `toml:"clear_cache"`
	Record     *bool    `toml:"record"`
}

// HistoryConfig locates the benchmark history database.
type HistoryConfig struct {
	Path *string `toml:"path"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "blockio", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path. A missing file yields a zero
// Config. Keys the Config does not know are rejected so typos surface.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, &UnknownKeysError{Path: path, Keys: undecoded}
	}
	return cfg, nil
}

// UnknownKeysError reports keys present in the file but not understood.
type UnknownKeysError struct {
	Path string
	Keys []toml.Key
}

func (e *UnknownKeysError) Error() string {
	msg := e.Path + ": unknown keys:"
	for _, k := range e.Keys {
		msg += " " + k.String()
	}
	return msg
}
