// Package config loads the YAML process configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Caps struct {
	Intake      int `yaml:"intake"`
	Chat        int `yaml:"chat"`
	Sop         int `yaml:"sop"`
	Entitlement int `yaml:"entitlement"`
	Royalty     int `yaml:"royalty"`
}

type Kafka struct {
	Bootstrap     string `yaml:"bootstrap"`
	GroupID       string `yaml:"groupId"`
	IntakeTopic   string `yaml:"intakeTopic"`
	PurchaseTopic string `yaml:"purchaseTopic"`
	// FeedSink selects purchase event sinks: file|kafka|both|off.
	FeedSink string `yaml:"feedSink"`
}

type Config struct {
	HTTPAddr string `yaml:"httpAddr"`
	DataDir  string `yaml:"dataDir"`
	// Backend selects the durable mirror: file|pebble.
	Backend string `yaml:"backend"`
	FeedDir string `yaml:"feedDir"`
	Caps    Caps   `yaml:"caps"`
	Kafka   Kafka  `yaml:"kafka"`
}

func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		DataDir:  "./data",
		Backend:  "file",
		FeedDir:  "./feed",
		Caps: Caps{
			Intake:      200,
			Chat:        200,
			Sop:         500,
			Entitlement: 5000,
			Royalty:     5000,
		},
		Kafka: Kafka{
			GroupID:       "growbase",
			IntakeTopic:   "growbase.telemetry",
			PurchaseTopic: "growbase.purchases",
			FeedSink:      "file",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Backend {
	case "", "file", "pebble":
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.Kafka.FeedSink {
	case "", "off", "file", "kafka", "both":
	default:
		return fmt.Errorf("config: unknown feedSink %q", c.Kafka.FeedSink)
	}
	for name, n := range map[string]int{
		"intake":      c.Caps.Intake,
		"chat":        c.Caps.Chat,
		"sop":         c.Caps.Sop,
		"entitlement": c.Caps.Entitlement,
		"royalty":     c.Caps.Royalty,
	} {
		if n <= 0 {
			return fmt.Errorf("config: cap %s must be positive", name)
		}
	}
	return nil
}
