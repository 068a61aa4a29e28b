package policies

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// QTable is a dense state-action value table indexed by [state][action].
// All entries start at zero.
type QTable struct {
	states  int
	actions int
	table   *mat.Dense
}

func NewQTable(states, actions int) *QTable {
	return &QTable{
		states:  states,
		actions: actions,
		table:   mat.NewDense(states, actions, nil),
	}
}

func (q *QTable) Dims() (int, int) {
	return q.states, q.actions
}

func (q *QTable) Get(state, action int) float64 {
	return q.table.At(state, action)
}

func (q *QTable) Set(state, action int, val float64) {
	q.table.Set(state, action, val)
}

// Max returns the largest value in the row of state
func (q *QTable) Max(state int) float64 {
	return floats.Max(q.table.RawRowView(state))
}

// ArgMax returns the lowest action index achieving the largest value in the row of state
func (q *QTable) ArgMax(state int) int {
	return floats.MaxIdx(q.table.RawRowView(state))
}

// Row returns a copy of the values of state
func (q *QTable) Row(state int) []float64 {
	row := make([]float64, q.actions)
	copy(row, q.table.RawRowView(state))
	return row
}

// Values returns a copy of the whole table
func (q *QTable) Values() [][]float64 {
	out := make([][]float64, q.states)
	for s := 0; s < q.states; s++ {
		out[s] = q.Row(s)
	}
	return out
}

func (q *QTable) Reset() {
	q.table.Zero()
}
