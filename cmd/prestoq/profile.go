package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	presto "github.com/prestodb/presto-go-client"
	"github.com/rs/zerolog/log"
)

// fileConfig is the TOML configuration file layout.
type fileConfig struct {
	// DefaultProfile is used when --profile is not given.
	DefaultProfile string `toml:"default_profile"`

	Profiles map[string]profile `toml:"profiles"`
}

// profile is one named connection in the configuration file.
type profile struct {
	Host        string            `toml:"host"`
	Port        int               `toml:"port"`
	User        string            `toml:"user"`
	Source      string            `toml:"source"`
	Catalog     string            `toml:"catalog"`
	Schema      string            `toml:"schema"`
	TimeZone    string            `toml:"timezone"`
	MaxAttempts int               `toml:"max_attempts"`
	Trino       bool              `toml:"trino"`
	Isolation   string            `toml:"isolation"`
	Session     map[string]string `toml:"session"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".prestoq.toml")
}

// loadProfile reads the requested profile from the configuration file. A
// missing file is an error only when a path or profile was requested
// explicitly.
func loadProfile(path, name string) (profile, error) {
	explicit := path != ""
	if path == "" {
		path = defaultConfigPath()
	}
	if path == "" {
		return profile{}, nil
	}

	var file fileConfig
	if _, err := toml.DecodeFile(path, &file); err != nil {
		if os.IsNotExist(err) && !explicit && name == "" {
			return profile{}, nil
		}
		return profile{}, fmt.Errorf("loading config %s: %w", path, err)
	}

	if name == "" {
		name = file.DefaultProfile
	}
	if name == "" {
		return profile{}, nil
	}

	p, ok := file.Profiles[name]
	if !ok {
		return profile{}, fmt.Errorf("profile %q not found in %s", name, path)
	}
	log.Debug().Str("profile", name).Str("config", path).Msg("loaded connection profile")
	return p, nil
}

// buildConfig merges the profile with flag overrides; flags win.
func buildConfig(opts *rootOptions) (presto.Config, error) {
	p, err := loadProfile(opts.configPath, opts.profile)
	if err != nil {
		return presto.Config{}, err
	}

	cfg := presto.Config{
		Host:              p.Host,
		Port:              p.Port,
		User:              p.User,
		Source:            p.Source,
		Catalog:           p.Catalog,
		Schema:            p.Schema,
		TimeZone:          p.TimeZone,
		MaxAttempts:       p.MaxAttempts,
		Trino:             p.Trino,
		SessionProperties: p.Session,
	}
	if p.Isolation != "" {
		level, err := presto.ParseIsolationLevel(p.Isolation)
		if err != nil {
			return presto.Config{}, err
		}
		cfg.IsolationLevel = level
	}

	if opts.host != "" {
		cfg.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Port = opts.port
	}
	if opts.user != "" {
		cfg.User = opts.user
	}
	if opts.source != "" {
		cfg.Source = opts.source
	}
	if opts.catalog != "" {
		cfg.Catalog = opts.catalog
	}
	if opts.schema != "" {
		cfg.Schema = opts.schema
	}
	if opts.timezone != "" {
		cfg.TimeZone = opts.timezone
	}
	if opts.maxAttempts != 0 {
		cfg.MaxAttempts = opts.maxAttempts
	}
	if opts.trino {
		cfg.Trino = true
	}

	if cfg.Host == "" {
		return presto.Config{}, fmt.Errorf("no coordinator host: pass --host or configure a profile")
	}
	return cfg, nil
}
