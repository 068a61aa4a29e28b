package benchmarks

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"

	"github.com/spf13/cobra"
	"github.com/zeu5/dist-qlearning/experiment"
	"github.com/zeu5/dist-qlearning/policies"
)

// Compare runs the configured agents under different exploration policies
func Compare(ctx context.Context, epsilons []float64) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	env, cfg, err := getEnvironment(envName, config)
	if err != nil {
		return err
	}

	c := experiment.NewComparison(&experiment.ComparisonConfig{
		Runs:          runs,
		RecordPath:    saveFile,
		RecordResults: saveFile != "",
		Logger:        logger,
	})
	c.AddAnalysis("summary", experiment.NewFinalRewardAnalyzer(), experiment.SummaryLogger(logger))
	if saveFile != "" {
		c.AddAnalysis("curve_png", experiment.NewRewardCurveAnalyzer(), experiment.RewardCurvePlotter(path.Join(saveFile, "plots")))
		c.AddAnalysis("curve_html", experiment.NewRewardCurveAnalyzer(), experiment.RewardCurveChart(path.Join(saveFile, "charts")))
	}

	for _, eps := range epsilons {
		expCfg := cfg
		expCfg.Policy = policies.EpsilonGreedy
		expCfg.Epsilon = eps
		c.AddExperiment(experiment.NewExperiment(fmt.Sprintf("egreedy-%g", eps), expCfg, env))
	}
	softmax := cfg
	softmax.Policy = policies.SoftMax
	c.AddExperiment(experiment.NewExperiment(fmt.Sprintf("softmax-%g", cfg.Temperature), softmax, env))

	random := cfg
	random.Policy = policies.Random
	c.AddExperiment(experiment.NewExperiment("random", random, env))

	if saveFile != "" {
		stop := startProfiling(logger)
		defer stop()
	}
	return c.Run(ctx)
}

func CompareCommand() *cobra.Command {
	var epsilons []float64
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare exploration policies over several runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptContext()
			defer cancel()
			return Compare(ctx, epsilons)
		},
	}
	cmd.Flags().Float64SliceVar(&epsilons, "epsilons", []float64{0.05, 0.1, 0.3}, "Exploration rates of the epsilon greedy experiments")
	return cmd
}
