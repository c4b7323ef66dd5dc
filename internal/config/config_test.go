package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Backend != "file" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Caps.Intake != 200 || cfg.Caps.Entitlement != 5000 {
		t.Fatalf("unexpected default caps: %+v", cfg.Caps)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
httpAddr: ":9999"
backend: pebble
caps:
  sop: 1000
kafka:
  bootstrap: "localhost:9092"
  feedSink: both
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.Backend != "pebble" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Caps.Sop != 1000 {
		t.Fatalf("cap override not applied: %+v", cfg.Caps)
	}
	if cfg.Caps.Intake != 200 {
		t.Fatalf("untouched defaults must survive: %+v", cfg.Caps)
	}
	if cfg.Kafka.FeedSink != "both" || cfg.Kafka.Bootstrap != "localhost:9092" {
		t.Fatalf("kafka overrides not applied: %+v", cfg.Kafka)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad backend":  "backend: etcd\n",
		"bad feedSink": "kafka:\n  feedSink: carrier-pigeon\n",
		"bad cap":      "caps:\n  chat: 0\n",
		"bad yaml":     "caps: [unclosed\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("explicit missing config file should fail")
	}
}
