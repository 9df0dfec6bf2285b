package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration. Flags override file values.
type Config struct {
	Schema          string `yaml:"schema"`
	KeySchema       string `yaml:"key_schema"`
	Writer          string `yaml:"writer"`
	Registry        string `yaml:"registry"`
	Topic           string `yaml:"topic"`
	NamespacePrefix string `yaml:"namespace_prefix"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// override replaces fields of c with the non-empty fields of o.
func (c *Config) override(o Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Schema, o.Schema)
	set(&c.KeySchema, o.KeySchema)
	set(&c.Writer, o.Writer)
	set(&c.Registry, o.Registry)
	set(&c.Topic, o.Topic)
	set(&c.NamespacePrefix, o.NamespacePrefix)
}
