package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/cortezlab/pimetrics/collectors"
	"github.com/cortezlab/pimetrics/metric"
	"github.com/cortezlab/pimetrics/server"
)

// Duration wraps time.Duration so intervals can be written as "30s" or
// "1m" in the config file.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %v", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// RawMessage defers unmarshaling of a config subtree until the collector
// type is known, so each collector can define its own opt shape.
type RawMessage struct {
	unmarshal func(interface{}) error
}

func (msg *RawMessage) UnmarshalYAML(unmarshal func(interface{}) error) error {
	msg.unmarshal = unmarshal
	return nil
}

func (msg *RawMessage) Unmarshal(v interface{}) error {
	if msg.unmarshal == nil {
		// opt block absent, defaults apply
		return nil
	}
	return msg.unmarshal(v)
}

// CollectorConfig selects one collector and its cadence. Opt is parsed by
// the collector named in Type.
type CollectorConfig struct {
	Type     string     `yaml:"type"`
	Interval Duration   `yaml:"interval"`
	Timeout  Duration   `yaml:"timeout"`
	Opt      RawMessage `yaml:"opt"`
}

// ServerConfig is the listener part of the config file.
type ServerConfig struct {
	Address         string   `yaml:"address"`
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// Config is the top-level config file.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Interval   Duration          `yaml:"interval"`
	Timeout    Duration          `yaml:"timeout"`
	Collectors []CollectorConfig `yaml:"collectors"`
}

// DefaultConfig enables every host-level collector on a 30 second cadence,
// probing the usual public resolver and counting inference processes. The
// inference duration collector is opt-in since it needs instrumented
// callers to produce data.
func DefaultConfig() *Config {
	return &Config{
		Interval: Duration{30 * time.Second},
		Collectors: []CollectorConfig{
			{Type: "thermal"},
			{Type: "throttle"},
			{Type: "system"},
			{Type: "netprobe"},
			{Type: "census"},
		},
	}
}

// LoadConfig reads and parses path. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %v", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %v", path, err)
	}
	if len(cfg.Collectors) == 0 {
		return nil, fmt.Errorf("config %s enables no collectors", path)
	}
	if cfg.Interval.Duration < 0 || cfg.Timeout.Duration < 0 {
		return nil, fmt.Errorf("config %s: intervals must be positive", path)
	}
	for _, cc := range cfg.Collectors {
		if cc.Interval.Duration < 0 || cc.Timeout.Duration < 0 {
			return nil, fmt.Errorf("config %s: collector %q interval must be positive", path, cc.Type)
		}
	}
	return cfg, nil
}

// ServerConfig mapped onto the server package's type, zero fields falling
// back to its defaults.
func (c *Config) serverConfig() *server.Config {
	sc := server.DefaultConfig()
	if c.Server.Address != "" {
		sc.Address = c.Server.Address
	}
	if c.Server.Port != 0 {
		sc.Port = c.Server.Port
	}
	if d := c.Server.ReadTimeout.Duration; d > 0 {
		sc.ReadTimeout = d
	}
	if d := c.Server.WriteTimeout.Duration; d > 0 {
		sc.WriteTimeout = d
	}
	if d := c.Server.IdleTimeout.Duration; d > 0 {
		sc.IdleTimeout = d
	}
	if d := c.Server.ShutdownTimeout.Duration; d > 0 {
		sc.ShutdownTimeout = d
	}
	return sc
}

// netProbeConfig mirrors collectors.NetProbeOpts with a parseable timeout.
type netProbeConfig struct {
	Targets    []string `yaml:"targets"`
	Timeout    Duration `yaml:"timeout"`
	Privileged bool     `yaml:"privileged"`
}

// newCollector builds the collector named by cc.Type with its metrics
// registered on reg. Every collector type signs in here.
func newCollector(reg *metric.Registry, cc CollectorConfig) (collectors.Collector, error) {
	switch cc.Type {
	case "thermal":
		opt := collectors.ThermalOpts{}
		if err := cc.Opt.Unmarshal(&opt); err != nil {
			return nil, err
		}
		return collectors.NewThermal(reg, opt)
	case "throttle":
		opt := collectors.ThrottleOpts{}
		if err := cc.Opt.Unmarshal(&opt); err != nil {
			return nil, err
		}
		return collectors.NewThrottle(reg, opt)
	case "system":
		return collectors.NewSystem(reg)
	case "netprobe":
		npc := netProbeConfig{Targets: []string{"8.8.8.8"}}
		if err := cc.Opt.Unmarshal(&npc); err != nil {
			return nil, err
		}
		return collectors.NewNetProbe(reg, collectors.NetProbeOpts{
			Targets:    npc.Targets,
			Timeout:    npc.Timeout.Duration,
			Privileged: npc.Privileged,
		})
	case "census":
		opt := collectors.CensusOpts{Keywords: []string{"inference"}}
		if err := cc.Opt.Unmarshal(&opt); err != nil {
			return nil, err
		}
		return collectors.NewCensus(reg, opt)
	case "inference":
		opt := collectors.InferenceOpts{}
		if err := cc.Opt.Unmarshal(&opt); err != nil {
			return nil, err
		}
		return collectors.NewInference(reg, opt)
	default:
		return nil, fmt.Errorf("unrecognized collector type %q", cc.Type)
	}
}
