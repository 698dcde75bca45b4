package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the lowbit configuration file (~/.config/lowbit/config.yaml).
type Config struct {
	Capabilities string `yaml:"capabilities"`
	QuantConfig  string `yaml:"quant_config"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string  `yaml:"server_address"`
	RateLimit     float64 `yaml:"rate_limit"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lowbit", "config.yaml")
}

// applyCommonConfig applies config file defaults when the corresponding CLI
// flag was not explicitly set.
func applyCommonConfig(c *cli.Command, cfg Config) {
	if cfg.Capabilities != "" && !c.IsSet("capabilities") && !c.IsSet("caps") {
		capsPath = cfg.Capabilities
	}
	if cfg.QuantConfig != "" && !c.IsSet("quant-config") && !c.IsSet("qc") {
		quantCfgPath = cfg.QuantConfig
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, rateLimit *float64) {
	applyCommonConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.RateLimit > 0 && !c.IsSet("rate-limit") {
		*rateLimit = cfg.RateLimit
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
