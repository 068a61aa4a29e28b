package grid

import (
	"context"
	"sync"

	"github.com/zeu5/dist-qlearning/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// VisitCounter counts the cells entered by all agents. It is meant to be
// attached to the transition bus as a sink.
type VisitCounter struct {
	mu     sync.Mutex
	env    *Environment
	Visits [][]int
}

func NewVisitCounter(env *Environment) *VisitCounter {
	visits := make([][]int, env.Height)
	for i := range visits {
		visits[i] = make([]int, env.Width)
	}
	return &VisitCounter{
		env:    env,
		Visits: visits,
	}
}

func (v *VisitCounter) Write(_ context.Context, t types.Transition) error {
	pos := v.env.Position(t.NextState)
	v.mu.Lock()
	v.Visits[pos.I][pos.J] += 1
	v.mu.Unlock()
	return nil
}

func (v *VisitCounter) Close() error {
	return nil
}

// DataSet returns a snapshot of the counts
func (v *VisitCounter) DataSet() *VisitDataSet {
	v.mu.Lock()
	defer v.mu.Unlock()
	visits := make([][]int, len(v.Visits))
	for i, row := range v.Visits {
		visits[i] = append([]int(nil), row...)
	}
	return &VisitDataSet{
		Visits: visits,
		Height: v.env.Height,
		Width:  v.env.Width,
	}
}

type VisitDataSet struct {
	Visits [][]int
	Height int
	Width  int
}

var _ plotter.GridXYZ = &VisitDataSet{}

func (g *VisitDataSet) Dims() (int, int) {
	return g.Width, g.Height
}

func (g *VisitDataSet) Z(j, i int) float64 {
	return float64(g.Visits[i][j])
}

func (g *VisitDataSet) X(j int) float64 {
	return float64(j)
}

func (g *VisitDataSet) Y(i int) float64 {
	return float64(i)
}

func (g *VisitDataSet) Total() int {
	total := 0
	for _, row := range g.Visits {
		for _, count := range row {
			total += count
		}
	}
	return total
}

// SaveHeatMap draws the visit counts to a PNG file
func (g *VisitDataSet) SaveHeatMap(title, file string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "j"
	p.Y.Label.Text = "i"
	p.Add(plotter.NewHeatMap(g, palette.Heat(20, 1)))
	return p.Save(6*vg.Inch, 6*vg.Inch, file)
}
