package grid

import (
	"fmt"

	"github.com/zeu5/dist-qlearning/types"
)

// Movements, in action index order
const (
	NoMovement = iota
	MovementUp
	MovementDown
	MovementLeft
	MovementRight
	NumMovements
)

var movementNames = []string{"Nothing", "Up", "Down", "Left", "Right"}

func MovementName(action int) string {
	if action < 0 || action >= NumMovements {
		return "Unknown"
	}
	return movementNames[action]
}

// Environment is a Height x Width grid where state i*Width+j is the cell
// (i, j). Moving into the goal cell is rewarded with 1, walls keep the agent
// in place.
type Environment struct {
	Height int
	Width  int
	Goal   Position
}

var _ types.Environment = &Environment{}

// NewEnvironment creates a grid with the goal in the far corner
func NewEnvironment(height, width int) *Environment {
	return &Environment{
		Height: height,
		Width:  width,
		Goal:   Position{I: height - 1, J: width - 1},
	}
}

func (g *Environment) NumStates() int {
	return g.Height * g.Width
}

func (g *Environment) NumActions() int {
	return NumMovements
}

func (g *Environment) Step(_ *types.StepContext, state, action int) (int, float64) {
	cur := g.Position(state)
	newPos := cur
	switch action {
	case NoMovement:
	case MovementUp:
		newPos.I = min(g.Height-1, cur.I+1)
	case MovementDown:
		newPos.I = max(0, cur.I-1)
	case MovementLeft:
		newPos.J = max(0, cur.J-1)
	case MovementRight:
		newPos.J = min(g.Width-1, cur.J+1)
	}
	reward := 0.0
	if newPos.Eq(g.Goal) {
		reward = 1.0
	}
	return g.State(newPos), reward
}

// Position returns the cell of a state index
func (g *Environment) Position(state int) Position {
	return Position{I: state / g.Width, J: state % g.Width}
}

// State returns the index of a cell
func (g *Environment) State(p Position) int {
	return p.I*g.Width + p.J
}

type Position struct {
	I int
	J int
}

func (p Position) Hash() string {
	return fmt.Sprintf("(%d, %d)", p.I, p.J)
}

func (p Position) Eq(other Position) bool {
	return p.I == other.I && p.J == other.J
}
