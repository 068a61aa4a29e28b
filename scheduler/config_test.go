package scheduler

import (
	"errors"
	"os"
	"path"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agents = 0
	cfg.Alpha = 0
	cfg.Epsilon = 1.5
	cfg.Delivery = "multicast"
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Validate = %v", err)
	}
	for _, field := range []string{"agents", "alpha", "epsilon", "delivery"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"alpha one", func(c *Config) { c.Alpha = 1 }, true},
		{"gamma zero", func(c *Config) { c.Gamma = 0 }, true},
		{"gamma above one", func(c *Config) { c.Gamma = 1.01 }, false},
		{"epsilon zero", func(c *Config) { c.Epsilon = 0 }, true},
		{"no states", func(c *Config) { c.States = 0 }, false},
		{"no actions", func(c *Config) { c.Actions = 0 }, false},
		{"zero episodes", func(c *Config) { c.Episodes = 0 }, false},
		{"one episode", func(c *Config) { c.Episodes = 1 }, true},
		{"zero capacity", func(c *Config) { c.BusCapacity = 0 }, false},
		{"softmax cold", func(c *Config) { c.Policy = "softmax"; c.Temperature = 0 }, false},
		{"unknown policy", func(c *Config) { c.Policy = "dqn" }, false},
		{"negative timeout", func(c *Config) { c.SendTimeout = -time.Second }, false},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.modify(&cfg)
		if err := cfg.Validate(); (err == nil) != tt.valid {
			t.Errorf("%s: Validate = %v", tt.name, err)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"run.yaml": "agents: 3\nepsilon: 0.2\ndelivery: broadcast\nsend_timeout: 2s\n",
		"run.toml": "agents = 3\nepsilon = 0.2\ndelivery = \"broadcast\"\nsend_timeout = \"2s\"\n",
	}
	for name, content := range files {
		file := path.Join(dir, name)
		if err := os.WriteFile(file, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadConfig(file)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if cfg.Agents != 3 || cfg.Epsilon != 0.2 || cfg.Delivery != "broadcast" || cfg.SendTimeout != 2*time.Second {
			t.Errorf("%s: %+v", name, cfg)
		}
		// untouched values keep their defaults
		if cfg.Episodes != 1000 || cfg.States != 100 {
			t.Errorf("%s: defaults lost: %+v", name, cfg)
		}
	}

	bad := path.Join(dir, "run.ini")
	os.WriteFile(bad, []byte("agents=3"), 0644)
	if _, err := LoadConfig(bad); err == nil {
		t.Error("LoadConfig accepted an .ini file")
	}
}
