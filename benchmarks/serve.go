package benchmarks

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/zeu5/dist-qlearning/inspect"
	"github.com/zeu5/dist-qlearning/scheduler"
)

func loadResult(file string) (*scheduler.Result, error) {
	bs, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	res := &scheduler.Result{}
	if err := json.Unmarshal(bs, res); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	return res, nil
}

func ServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve RESULT_FILE",
		Short: "Serve a saved result over http",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := loadResult(args[0])
			if err != nil {
				return err
			}
			addr := inspectAddr
			if addr == "" {
				addr = "127.0.0.1:8080"
			}
			store := inspect.NewStore()
			store.Set(res)

			ctx, cancel := interruptContext()
			defer cancel()
			return inspect.NewServer(addr, store, nil, log.New(os.Stderr, "[inspect] ", log.LstdFlags)).Start(ctx)
		},
	}
}
