// Package config loads the sensor list and poll settings from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plantsense/miflora-go/pkg/miflora"
	"github.com/plantsense/miflora-go/pkg/poller"
)

type Config struct {
	Sensors  []SensorConfig `yaml:"sensors"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
	Poll     PollConfig     `yaml:"poll"`
}

type SensorConfig struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"` // optional human-readable label
}

type TimeoutConfig struct {
	ConnectMs int `yaml:"connect_ms"`
	WriteMs   int `yaml:"write_ms"`
	ReadMs    int `yaml:"read_ms"`
}

type PollConfig struct {
	Retries         *int `yaml:"retries"` // nil selects the default
	RetryIntervalMs int  `yaml:"retry_interval_ms"`
	IntervalMs      int  `yaml:"interval_ms"` // 0 = poll once and exit
}

// Load reads and validates path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %s", path, err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %s", path, err)
	}
	return &cfg, nil
}

// Validate checks configuration correctness without mutating it.
func Validate(cfg *Config) error {
	seen := make(map[miflora.Address]string)
	for i, sensor := range cfg.Sensors {
		addr, err := miflora.ParseAddress(sensor.Address)
		if err != nil {
			return fmt.Errorf("sensor %d: %s", i, err)
		}
		if prev, ok := seen[addr]; ok {
			return fmt.Errorf("sensor %d: address %s already configured as %q", i, addr, prev)
		}
		seen[addr] = sensor.Name
	}
	for _, v := range []struct {
		name  string
		value int
	}{
		{"timeouts.connect_ms", cfg.Timeouts.ConnectMs},
		{"timeouts.write_ms", cfg.Timeouts.WriteMs},
		{"timeouts.read_ms", cfg.Timeouts.ReadMs},
		{"poll.retry_interval_ms", cfg.Poll.RetryIntervalMs},
		{"poll.interval_ms", cfg.Poll.IntervalMs},
	} {
		if v.value < 0 {
			return fmt.Errorf("%s must not be negative", v.name)
		}
	}
	if cfg.Poll.Retries != nil && *cfg.Poll.Retries < 0 {
		return fmt.Errorf("poll.retries must not be negative")
	}
	return nil
}

// Addresses returns the configured sensors in file order. The config must
// have passed Validate.
func (c *Config) Addresses() []miflora.Address {
	addrs := make([]miflora.Address, 0, len(c.Sensors))
	for _, sensor := range c.Sensors {
		addr, err := miflora.ParseAddress(sensor.Address)
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

// Names maps addresses to their configured labels, omitting unnamed sensors.
func (c *Config) Names() map[miflora.Address]string {
	names := make(map[miflora.Address]string)
	for _, sensor := range c.Sensors {
		if sensor.Name == "" {
			continue
		}
		if addr, err := miflora.ParseAddress(sensor.Address); err == nil {
			names[addr] = sensor.Name
		}
	}
	return names
}

// PollerConfig translates the file settings into a poller configuration,
// applying defaults for unset values.
func (c *Config) PollerConfig() poller.Config {
	cfg := poller.Config{
		Timeouts: miflora.Timeouts{
			Connect: time.Duration(c.Timeouts.ConnectMs) * time.Millisecond,
			Write:   time.Duration(c.Timeouts.WriteMs) * time.Millisecond,
			Read:    time.Duration(c.Timeouts.ReadMs) * time.Millisecond,
		},
		Retries:       poller.DefaultRetries,
		RetryInterval: time.Duration(c.Poll.RetryIntervalMs) * time.Millisecond,
	}
	if c.Poll.Retries != nil {
		cfg.Retries = *c.Poll.Retries
	}
	return cfg
}

// Interval returns the cyclic polling period, or zero for a single cycle.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Poll.IntervalMs) * time.Millisecond
}
