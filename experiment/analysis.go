package experiment

import (
	"github.com/zeu5/dist-qlearning/scheduler"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CurveDataSet is the reward curve of a run averaged over its agents
type CurveDataSet struct {
	Window int
	Mean   []float64
	StdDev []float64
}

// RewardCurveAnalyzer averages the per-agent reward curves point by point.
// Agents that stopped early only contribute to the points they reached.
type RewardCurveAnalyzer struct {
	dataSet *CurveDataSet
}

var _ Analyzer = &RewardCurveAnalyzer{}

func NewRewardCurveAnalyzer() *RewardCurveAnalyzer {
	return &RewardCurveAnalyzer{}
}

func (r *RewardCurveAnalyzer) Analyze(_ int, _ string, res *scheduler.Result) {
	ds := &CurveDataSet{
		Window: res.Config.CurveWindow,
		Mean:   make([]float64, 0),
		StdDev: make([]float64, 0),
	}
	for i := 0; ; i++ {
		points := make([]float64, 0, len(res.Agents))
		for _, a := range res.Agents {
			if a.Curve != nil && i < a.Curve.Len() {
				points = append(points, a.Curve.Points[i])
			}
		}
		if len(points) == 0 {
			break
		}
		mean, std := stat.MeanStdDev(points, nil)
		if len(points) == 1 {
			std = 0
		}
		ds.Mean = append(ds.Mean, mean)
		ds.StdDev = append(ds.StdDev, std)
	}
	r.dataSet = ds
}

func (r *RewardCurveAnalyzer) DataSet() DataSet {
	return r.dataSet
}

func (r *RewardCurveAnalyzer) Reset() {
	r.dataSet = nil
}

// RewardSummary describes the total reward of the agents of a run
type RewardSummary struct {
	Agents    int
	Completed int
	Mean      float64
	StdDev    float64
	Min       float64
	Max       float64
	// mailbox deliveries per sent transition, above 1 in broadcast mode
	DeliveriesPerTransition float64
}

// FinalRewardAnalyzer summarizes the total reward collected by each agent
type FinalRewardAnalyzer struct {
	summary *RewardSummary
}

var _ Analyzer = &FinalRewardAnalyzer{}

func NewFinalRewardAnalyzer() *FinalRewardAnalyzer {
	return &FinalRewardAnalyzer{}
}

func (f *FinalRewardAnalyzer) Analyze(_ int, _ string, res *scheduler.Result) {
	summary := &RewardSummary{
		Agents:    len(res.Agents),
		Completed: res.Completed(),
	}
	if len(res.Agents) > 0 {
		totals := make([]float64, len(res.Agents))
		for i, a := range res.Agents {
			totals[i] = a.TotalReward
		}
		summary.Mean, summary.StdDev = stat.MeanStdDev(totals, nil)
		if len(totals) == 1 {
			summary.StdDev = 0
		}
		summary.Min = floats.Min(totals)
		summary.Max = floats.Max(totals)
	}
	if res.Bus.Sent > 0 {
		summary.DeliveriesPerTransition = float64(res.Bus.Delivered) / float64(res.Bus.Sent)
	}
	f.summary = summary
}

func (f *FinalRewardAnalyzer) DataSet() DataSet {
	return f.summary
}

func (f *FinalRewardAnalyzer) Reset() {
	f.summary = nil
}
