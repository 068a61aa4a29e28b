package benchmarks

import (
	"fmt"

	"github.com/zeu5/dist-qlearning/chain"
	"github.com/zeu5/dist-qlearning/grid"
	"github.com/zeu5/dist-qlearning/scheduler"
	"github.com/zeu5/dist-qlearning/types"
)

// getEnvironment builds the environment selected on the command line. The
// grid fixes the number of states and actions of the config.
func getEnvironment(name string, cfg scheduler.Config) (types.Environment, scheduler.Config, error) {
	switch name {
	case "chain", "":
		return chain.NewEnvironment(cfg.States), cfg, nil
	case "slippery":
		return chain.NewSlippery(cfg.States, slip), cfg, nil
	case "grid":
		g := grid.NewEnvironment(gridHeight, gridWidth)
		cfg.States = g.NumStates()
		cfg.Actions = g.NumActions()
		return g, cfg, nil
	}
	return nil, cfg, fmt.Errorf("unknown environment %q", name)
}
