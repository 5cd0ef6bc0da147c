package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/cortezlab/pimetrics/collectors"
	"github.com/cortezlab/pimetrics/metric"
)

var configYaml = `
server:
  port: 9102
  readTimeout: 5s
interval: 30s
timeout: 10s
collectors:
  - type: thermal
    opt:
      sensorPath: /tmp/fake_zone
  - type: netprobe
    interval: 1m
    opt:
      targets:
        - 8.8.8.8
        - 1.1.1.1
      timeout: 3s
  - type: census
    opt:
      keywords:
        - inference
        - tflite
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Writing config fixture: %v.", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, configYaml))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v.", err)
	}

	if expected, got := 9102, cfg.Server.Port; expected != got {
		t.Errorf("Expected port %d, got %d.", expected, got)
	}
	if expected, got := 30*time.Second, cfg.Interval.Duration; expected != got {
		t.Errorf("Expected interval %s, got %s.", expected, got)
	}
	if expected, got := 3, len(cfg.Collectors); expected != got {
		t.Fatalf("Expected %d collectors, got %d.", expected, got)
	}
	if expected, got := time.Minute, cfg.Collectors[1].Interval.Duration; expected != got {
		t.Errorf("Expected netprobe interval %s, got %s.", expected, got)
	}
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v.", err)
	}
	if len(cfg.Collectors) == 0 {
		t.Error("Expected default collector set, got none.")
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "interval: notaduration\ncollectors:\n  - type: thermal\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for invalid duration, got nil.")
	}
}

func TestLoadConfigRejectsNegativeInterval(t *testing.T) {
	path := writeConfig(t, "interval: -5s\ncollectors:\n  - type: thermal\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for negative interval, got nil.")
	}
}

func TestLoadConfigRejectsEmptyCollectorList(t *testing.T) {
	path := writeConfig(t, "interval: 30s\ncollectors: []\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for empty collector list, got nil.")
	}
}

func TestNewCollectorFactory(t *testing.T) {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(configYaml), cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v.", err)
	}

	reg := metric.NewRegistry()
	names := []string{}
	for _, cc := range cfg.Collectors {
		c, err := newCollector(reg, cc)
		if err != nil {
			t.Fatalf("newCollector(%q) failed: %v.", cc.Type, err)
		}
		names = append(names, c.Name())
	}

	if names[0] != "thermal" || names[1] != "netprobe" || names[2] != "census" {
		t.Errorf("Unexpected collector names %v.", names)
	}
}

func TestNewCollectorUnknownType(t *testing.T) {
	reg := metric.NewRegistry()
	if _, err := newCollector(reg, CollectorConfig{Type: "quantum"}); err == nil {
		t.Error("Expected error for unknown collector type, got nil.")
	}
}

func TestNewCollectorOptDefaults(t *testing.T) {
	reg := metric.NewRegistry()
	c, err := newCollector(reg, CollectorConfig{Type: "census"})
	if err != nil {
		t.Fatalf("newCollector failed: %v.", err)
	}
	if _, ok := c.(*collectors.Census); !ok {
		t.Fatalf("Expected a Census collector, got %T.", c)
	}
}

func TestDuplicateCollectorTypeFailsRegistration(t *testing.T) {
	reg := metric.NewRegistry()
	if _, err := newCollector(reg, CollectorConfig{Type: "thermal"}); err != nil {
		t.Fatalf("First thermal collector failed: %v.", err)
	}
	if _, err := newCollector(reg, CollectorConfig{Type: "thermal"}); err == nil {
		t.Error("Expected duplicate metric registration error, got nil.")
	}
}
