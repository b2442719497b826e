package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatYAML = "yaml"
	formatDOT  = "dot"
)

// config holds the settings read from weave.yaml and WEAVE_* variables.
type config struct {
	LogLevel string
	Workers  int
	Format   string
}

func defaultConfig() config {
	return config{
		LogLevel: "warn",
		Workers:  0,
		Format:   formatText,
	}
}

// loadConfig reads path, or weave.yaml from the working directory when path
// is empty. A missing default file is not an error.
func loadConfig(path string) (config, error) {
	v := viper.New()

	defaults := defaultConfig()
	v.SetDefault("log.level", defaults.LogLevel)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("format", defaults.Format)

	v.SetEnvPrefix("WEAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("weave")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return config{
		LogLevel: v.GetString("log.level"),
		Workers:  v.GetInt("workers"),
		Format:   v.GetString("format"),
	}, nil
}

func (c config) validate() error {
	switch c.Format {
	case formatText, formatYAML, formatDOT:
	default:
		return fmt.Errorf("unknown format %q (want text, yaml or dot)", c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
