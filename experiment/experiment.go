package experiment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"sort"
	"strconv"

	"github.com/zeu5/dist-qlearning/scheduler"
	"github.com/zeu5/dist-qlearning/types"
	"github.com/zeu5/dist-qlearning/util"
)

// Experiment is one named learning setup: a scheduler configuration and
// the environment every agent of the run solves
type Experiment struct {
	Name        string
	Config      scheduler.Config
	Environment types.Environment
	Options     []scheduler.Option
}

// NewExperiment creates a new experiment instance
func NewExperiment(name string, config scheduler.Config, env types.Environment, opts ...scheduler.Option) *Experiment {
	return &Experiment{
		Name:        name,
		Config:      config,
		Environment: env,
		Options:     opts,
	}
}

// Run executes one scheduler run. Seeds are shifted by the run index so that
// runs differ from each other but stay reproducible.
func (e *Experiment) Run(ctx context.Context, run int, logger *log.Logger) (*scheduler.Result, error) {
	cfg := e.Config
	cfg.Seed += int64(run) * int64(cfg.Agents)
	opts := append([]scheduler.Option{scheduler.WithLogger(logger)}, e.Options...)
	s, err := scheduler.New(cfg, e.Environment, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}

// Generic Dataset that contains information after processing the results
type DataSet interface{}

// Analyzer compresses the result of a run to a DataSet
type Analyzer interface {
	// Run index, experiment name, result of the run
	Analyze(int, string, *scheduler.Result)
	// Resulting dataset
	DataSet() DataSet
	// Reset the analyzer
	Reset()
}

// Comparator differentiates between different datasets with associated names
// run, experiment names, datasets
type Comparator func(int, []string, []DataSet)

func NoopComparator() Comparator {
	return func(_ int, _ []string, _ []DataSet) {}
}

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs       int    // number of runs
	RecordPath string // path to store the results

	// record the full result of every run as json
	RecordResults bool

	Logger *log.Logger
}

// Comparison contains the different experiments to compare
// The results obtained from the experiments are analyzed
// The analyzed datasets are then compared
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]Analyzer
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
	logger      *log.Logger
}

// NewComparison creates a comparison instance
func NewComparison(config *ComparisonConfig) *Comparison {
	if config.Runs <= 0 {
		config.Runs = 1
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[comparison] ", log.LstdFlags)
	}
	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]Analyzer),
		comparators: make(map[string]Comparator),
		cConfig:     config,
		logger:      logger,
	}
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer Analyzer, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

// Add experiments to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// Run the comparison. Agent failures inside a run are logged and the run is
// still analyzed, only cancellation and invalid experiments stop the comparison.
func (c *Comparison) Run(ctx context.Context) error {
	if err := c.recordConfig(); err != nil {
		return err
	}

	for run := 0; run < c.cConfig.Runs; run++ {
		c.logger.Printf("run %d/%d", run+1, c.cConfig.Runs)
		datasets := make(map[string][]DataSet)
		for name := range c.analyzers {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}

		names := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.Run(ctx, run, c.logger)
			if res == nil {
				return fmt.Errorf("experiment %s: %w", e.Name, err)
			}
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return ctx.Err()
				}
				c.logger.Printf("experiment %s: %d/%d agents completed: %v", e.Name, res.Completed(), len(res.Agents), err)
			}
			if c.cConfig.RecordResults {
				c.recordResult(e.Name, run, res)
			}
			for name, a := range c.analyzers {
				a.Analyze(run, e.Name, res)
				datasets[name][i] = a.DataSet()
				a.Reset()
			}
			names[i] = e.Name
		}
		for name, comp := range c.comparators {
			comp(run, names, datasets[name])
		}
	}
	return nil
}

func (c *Comparison) recordResult(name string, run int, res *scheduler.Result) {
	if c.cConfig.RecordPath == "" {
		return
	}
	file := path.Join(c.cConfig.RecordPath, "results", name+"_"+strconv.Itoa(run)+".json")
	if err := util.WriteJSON(file, res); err != nil {
		c.logger.Printf("recording result of %s: %v", name, err)
	}
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	if c.cConfig.RecordPath == "" {
		return nil
	}
	out := make(map[string]interface{})
	out["runs"] = c.cConfig.Runs
	out["record_results"] = c.cConfig.RecordResults

	experiments := make(map[string]scheduler.Config)
	for _, e := range c.Experiments {
		experiments[e.Name] = e.Config
	}
	out["experiments"] = experiments

	analyzers := make([]string, 0, len(c.analyzers))
	for name := range c.analyzers {
		analyzers = append(analyzers, name)
	}
	sort.Strings(analyzers)
	out["analyzers"] = analyzers

	return util.WriteJSON(path.Join(c.cConfig.RecordPath, "comparison_config.json"), out)
}
