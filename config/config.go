// Package config loads the batch driver configuration.
package config

import (
	"fmt"
	"os"

	"msgproc/poseidon"
	"msgproc/watermark"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Policy    watermark.Policy `yaml:"policy" validate:"oneof=0 1"`
	StatePath string           `yaml:"state_path" validate:"required"`
	Workers   int              `yaml:"workers" validate:"min=1,max=256"`
	Ring      RingConfig       `yaml:"ring"`
	Hash      HashConfig       `yaml:"hash"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Log       LogConfig        `yaml:"log"`
}

// RingConfig parameterises the commitment ring R_q with N = 2^LogN.
type RingConfig struct {
	LogN int    `yaml:"log_n" validate:"min=3,max=16"`
	Seed string `yaml:"seed" validate:"required"`
}

// HashConfig selects the Poseidon instance. A params file, when set, takes
// precedence over derivation from Seed.
type HashConfig struct {
	Seed       string `yaml:"seed"`
	ParamsFile string `yaml:"params_file" validate:"required_without=Seed"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace" validate:"required"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a YAML file, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.StatePath == "" {
		c.StatePath = "./data/watermark.json"
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.Ring.LogN == 0 {
		c.Ring.LogN = 4
	}
	if c.Ring.Seed == "" {
		c.Ring.Seed = "msgproc/commitment"
	}
	if c.Hash.Seed == "" && c.Hash.ParamsFile == "" {
		c.Hash.Seed = "msgproc/poseidon"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "msgproc"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// HashParams loads the Poseidon parameters named by the config.
func (c *Config) HashParams() (*poseidon.Params, error) {
	if c.Hash.ParamsFile != "" {
		return poseidon.LoadParamsFromFile(c.Hash.ParamsFile)
	}
	p, err := poseidon.DefaultParams([]byte(c.Hash.Seed))
	if err != nil {
		return nil, fmt.Errorf("derive hash params: %w", err)
	}
	return p, nil
}
