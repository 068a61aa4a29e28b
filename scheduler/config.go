package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/zeu5/dist-qlearning/bus"
	"github.com/zeu5/dist-qlearning/policies"
	"gopkg.in/yaml.v2"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config of a learning run
type Config struct {
	Agents   int     `json:"agents" yaml:"agents" toml:"agents"`
	Episodes int     `json:"episodes" yaml:"episodes" toml:"episodes"`
	Alpha    float64 `json:"alpha" yaml:"alpha" toml:"alpha"`
	Gamma    float64 `json:"gamma" yaml:"gamma" toml:"gamma"`
	Epsilon  float64 `json:"epsilon" yaml:"epsilon" toml:"epsilon"`
	States   int     `json:"states" yaml:"states" toml:"states"`
	Actions  int     `json:"actions" yaml:"actions" toml:"actions"`

	BusCapacity   int           `json:"bus_capacity" yaml:"bus_capacity" toml:"bus_capacity"`
	InboxCapacity int           `json:"inbox_capacity" yaml:"inbox_capacity" toml:"inbox_capacity"`
	Delivery      string        `json:"delivery" yaml:"delivery" toml:"delivery"`
	SendTimeout   time.Duration `json:"send_timeout" yaml:"send_timeout" toml:"send_timeout"`

	Seed        int64   `json:"seed" yaml:"seed" toml:"seed"`
	CurveWindow int     `json:"curve_window" yaml:"curve_window" toml:"curve_window"`
	Policy      string  `json:"policy" yaml:"policy" toml:"policy"`
	Temperature float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
}

func DefaultConfig() Config {
	return Config{
		Agents:      10,
		Episodes:    1000,
		Alpha:       0.1,
		Gamma:       0.9,
		Epsilon:     0.1,
		States:      100,
		Actions:     4,
		BusCapacity: 100,
		Delivery:    string(bus.DeliverQueue),
		CurveWindow: 50,
		Policy:      policies.EpsilonGreedy,
		Temperature: 1,
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate returns every violated bound, joined
func (c Config) Validate() error {
	errs := make([]error, 0)
	if c.Agents < 1 {
		errs = append(errs, invalid("agents must be >= 1, got %d", c.Agents))
	}
	if c.Episodes < 1 {
		errs = append(errs, invalid("episodes must be >= 1, got %d", c.Episodes))
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		errs = append(errs, invalid("alpha must be in (0, 1], got %v", c.Alpha))
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		errs = append(errs, invalid("gamma must be in [0, 1], got %v", c.Gamma))
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		errs = append(errs, invalid("epsilon must be in [0, 1], got %v", c.Epsilon))
	}
	if c.States < 1 {
		errs = append(errs, invalid("states must be >= 1, got %d", c.States))
	}
	if c.Actions < 1 {
		errs = append(errs, invalid("actions must be >= 1, got %d", c.Actions))
	}
	if c.BusCapacity < 1 {
		errs = append(errs, invalid("bus_capacity must be >= 1, got %d", c.BusCapacity))
	}
	if c.InboxCapacity < 0 {
		errs = append(errs, invalid("inbox_capacity must be >= 0, got %d", c.InboxCapacity))
	}
	if c.SendTimeout < 0 {
		errs = append(errs, invalid("send_timeout must be >= 0, got %v", c.SendTimeout))
	}
	if c.CurveWindow < 0 {
		errs = append(errs, invalid("curve_window must be >= 0, got %d", c.CurveWindow))
	}
	if _, err := bus.ParseDelivery(c.Delivery); err != nil {
		errs = append(errs, invalid("%v", err))
	}
	switch c.Policy {
	case "", policies.EpsilonGreedy, policies.Random:
	case policies.SoftMax:
		if c.Temperature <= 0 {
			errs = append(errs, invalid("temperature must be > 0, got %v", c.Temperature))
		}
	default:
		errs = append(errs, invalid("unknown policy %q", c.Policy))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a yaml, toml or json file on top of DefaultConfig
func LoadConfig(filePath string) (Config, error) {
	cfg := DefaultConfig()
	bs, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(path.Ext(filePath)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bs, &cfg)
	case ".toml":
		_, err = toml.Decode(string(bs), &cfg)
	case ".json":
		err = json.Unmarshal(bs, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return cfg, nil
}

// PolicyParams are the learning parameters handed to the policy constructor
func (c Config) PolicyParams() policies.Params {
	return policies.Params{
		States:      c.States,
		Actions:     c.Actions,
		Alpha:       c.Alpha,
		Gamma:       c.Gamma,
		Epsilon:     c.Epsilon,
		Temperature: c.Temperature,
	}
}

func (c Config) busConfig() bus.Config {
	return bus.Config{
		Capacity:    c.BusCapacity,
		SendTimeout: c.SendTimeout,
	}
}
