package experiment

import (
	"fmt"
	"log"
	"os"
	"path"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/zeu5/dist-qlearning/util"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// RewardCurvePlotter saves one png per run with the mean curve of every experiment
func RewardCurvePlotter(plotPath string) Comparator {
	if err := util.EnsureDir(plotPath); err != nil {
		log.Printf("creating %s: %v", plotPath, err)
	}
	return func(run int, names []string, ds []DataSet) {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Mean reward per window"
		for i := 0; i < len(names); i++ {
			curve, ok := ds[i].(*CurveDataSet)
			if !ok || curve == nil || len(curve.Mean) == 0 {
				continue
			}
			points := make(plotter.XYs, len(curve.Mean))
			for j, v := range curve.Mean {
				points[j] = plotter.XY{
					X: float64((j + 1) * curve.Window),
					Y: v,
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
		}
		if err := p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_reward.png")); err != nil {
			log.Printf("saving reward plot: %v", err)
		}
	}
}

// RewardCurveChart renders one interactive html page per run
func RewardCurveChart(plotPath string) Comparator {
	if err := util.EnsureDir(plotPath); err != nil {
		log.Printf("creating %s: %v", plotPath, err)
	}
	return func(run int, names []string, ds []DataSet) {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{
				Title: fmt.Sprintf("Reward, run %d", run),
			}),
			charts.WithInitializationOpts(opts.Initialization{
				Theme: "shine",
			}),
		)

		numPoints := 0
		window := 1
		for _, d := range ds {
			if curve, ok := d.(*CurveDataSet); ok && curve != nil && len(curve.Mean) > numPoints {
				numPoints = len(curve.Mean)
				window = curve.Window
			}
		}
		steps := make([]string, numPoints)
		for i := range steps {
			steps[i] = strconv.Itoa((i + 1) * window)
		}
		line.SetXAxis(steps)

		for i, name := range names {
			curve, ok := ds[i].(*CurveDataSet)
			if !ok || curve == nil {
				continue
			}
			items := make([]opts.LineData, 0, len(curve.Mean))
			for _, v := range curve.Mean {
				items = append(items, opts.LineData{Value: v})
			}
			line.AddSeries(name, items)
		}

		page := components.NewPage()
		page.AddCharts(line)
		f, err := os.Create(path.Join(plotPath, strconv.Itoa(run)+"_reward.html"))
		if err != nil {
			log.Printf("saving reward chart: %v", err)
			return
		}
		defer f.Close()
		if err := page.Render(f); err != nil {
			log.Printf("rendering reward chart: %v", err)
		}
	}
}

// SummaryLogger prints the reward summary of every experiment
func SummaryLogger(logger *log.Logger) Comparator {
	if logger == nil {
		logger = log.Default()
	}
	return func(run int, names []string, ds []DataSet) {
		for i, name := range names {
			s, ok := ds[i].(*RewardSummary)
			if !ok || s == nil {
				continue
			}
			logger.Printf("run %d %-20s reward %8.2f ± %-7.2f [%6.1f, %6.1f] completed %d/%d deliveries/transition %.2f",
				run, name, s.Mean, s.StdDev, s.Min, s.Max, s.Completed, s.Agents, s.DeliveriesPerTransition)
		}
	}
}
