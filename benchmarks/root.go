package benchmarks

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zeu5/dist-qlearning/scheduler"
)

var (
	config      = scheduler.DefaultConfig()
	configFile  string
	saveFile    string
	runs        int
	envName     string
	slip        float64
	gridHeight  int
	gridWidth   int
	inspectAddr string
	cpuprofile  string
	memprofile  string
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:          "qlearn",
		Short:        "Decentralized tabular Q-learning over a shared transition bus",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfigFile(cmd.Root().PersistentFlags())
		},
	}
	flags := rootCommand.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Load the run configuration from a yaml, toml or json file, flags override it")
	flags.IntVarP(&config.Agents, "agents", "n", config.Agents, "Number of agents")
	flags.IntVarP(&config.Episodes, "episodes", "e", config.Episodes, "Number of episodes per agent")
	flags.Float64Var(&config.Alpha, "alpha", config.Alpha, "Learning rate")
	flags.Float64Var(&config.Gamma, "gamma", config.Gamma, "Discount factor")
	flags.Float64Var(&config.Epsilon, "epsilon", config.Epsilon, "Exploration rate")
	flags.IntVar(&config.States, "states", config.States, "Number of states (ignored by the grid environment)")
	flags.IntVar(&config.Actions, "actions", config.Actions, "Number of actions (ignored by the grid environment)")
	flags.IntVar(&config.BusCapacity, "bus-capacity", config.BusCapacity, "Capacity of the transition bus")
	flags.IntVar(&config.InboxCapacity, "inbox-capacity", config.InboxCapacity, "Capacity of each agent mailbox, 0 uses the bus capacity")
	flags.StringVar(&config.Delivery, "delivery", config.Delivery, "How transitions reach other agents: queue, broadcast or none")
	flags.DurationVar(&config.SendTimeout, "send-timeout", config.SendTimeout, "Maximum wait for space on the bus, 0 waits forever")
	flags.Int64Var(&config.Seed, "seed", config.Seed, "Base seed, agent i uses seed+i")
	flags.IntVar(&config.CurveWindow, "curve-window", config.CurveWindow, "Episodes per reward curve point")
	flags.StringVar(&config.Policy, "policy", config.Policy, "Policy of the agents: egreedy, softmax or random")
	flags.Float64Var(&config.Temperature, "temperature", config.Temperature, "Softmax temperature")

	flags.StringVarP(&saveFile, "save", "s", "", "Save the result data in the specified folder")
	flags.IntVar(&runs, "runs", 1, "Number of experiment runs")
	flags.StringVar(&envName, "env", "chain", "Environment: chain, slippery or grid")
	flags.Float64Var(&slip, "slip", 0.2, "Probability of staying in place in the slippery chain")
	flags.IntVar(&gridHeight, "height", 10, "Height of the grid")
	flags.IntVar(&gridWidth, "width", 10, "Width of the grid")
	flags.StringVar(&inspectAddr, "inspect-addr", "", "Serve the results over http on this address")
	flags.StringVar(&cpuprofile, "cpuprofile", "", "Write a cpu profile to this file in the save folder")
	flags.StringVar(&memprofile, "memprofile", "", "Write a memory profile to this file in the save folder")

	// adding the subcommands here
	rootCommand.AddCommand(RunCommand())
	rootCommand.AddCommand(CompareCommand())
	rootCommand.AddCommand(ServeCommand())
	return rootCommand
}

// loadConfigFile replaces the defaults with the config file and then
// re-applies the persistent flags set on the command line
func loadConfigFile(flags *pflag.FlagSet) error {
	if configFile == "" {
		return nil
	}
	restore := make([]func() error, 0)
	flags.VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		value := f.Value
		if sv, ok := value.(pflag.SliceValue); ok {
			items := sv.GetSlice()
			restore = append(restore, func() error { return sv.Replace(items) })
			return
		}
		str := value.String()
		restore = append(restore, func() error { return value.Set(str) })
	})
	loaded, err := scheduler.LoadConfig(configFile)
	if err != nil {
		return err
	}
	config = loaded
	for _, r := range restore {
		if err := r(); err != nil {
			return err
		}
	}
	return nil
}

// interruptContext is canceled on the first interrupt
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
