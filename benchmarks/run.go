package benchmarks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/zeu5/dist-qlearning/bus"
	"github.com/zeu5/dist-qlearning/grid"
	"github.com/zeu5/dist-qlearning/inspect"
	"github.com/zeu5/dist-qlearning/scheduler"
	"github.com/zeu5/dist-qlearning/util"
	"golang.org/x/sync/errgroup"
)

// sink flags of the run command
type sinkFlags struct {
	jsonl       string
	redisAddr   string
	redisStream string
	redisMaxLen int64
	mqttBroker  string
	mqttPrefix  string
	mqttQoS     int
}

func (f *sinkFlags) build(ctx context.Context) ([]bus.Sink, error) {
	sinks := make([]bus.Sink, 0)
	if f.jsonl != "" {
		s, err := bus.NewJSONLSink(f.jsonl)
		if err != nil {
			return sinks, fmt.Errorf("jsonl sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	if f.redisAddr != "" {
		s, err := bus.NewRedisSink(ctx, f.redisAddr, f.redisStream, f.redisMaxLen)
		if err != nil {
			return sinks, fmt.Errorf("redis sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	if f.mqttBroker != "" {
		s, err := bus.NewMQTTSink(f.mqttBroker, "qlearn-"+uuid.NewString(), f.mqttPrefix, byte(f.mqttQoS))
		if err != nil {
			return sinks, fmt.Errorf("mqtt sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func closeSinks(logger *log.Logger, sinks []bus.Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			logger.Printf("closing sink %T: %v", s, err)
		}
	}
}

// RunLearning executes a single scheduler run and prints its summary. When
// an inspection address is set the results are served until ctx is done.
func RunLearning(ctx context.Context, sf *sinkFlags, progress bool) (*scheduler.Result, error) {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	env, cfg, err := getEnvironment(envName, config)
	if err != nil {
		return nil, err
	}

	sinks, err := sf.build(ctx)
	if err != nil {
		closeSinks(logger, sinks)
		return nil, err
	}
	var visits *grid.VisitCounter
	if g, ok := env.(*grid.Environment); ok {
		visits = grid.NewVisitCounter(g)
		sinks = append(sinks, visits)
	}
	store := inspect.NewStore()
	var hub *inspect.Hub
	if inspectAddr != "" {
		hub = inspect.NewHub(log.New(os.Stderr, "[inspect] ", log.LstdFlags))
		sinks = append(sinks, hub)
	}

	opts := []scheduler.Option{scheduler.WithLogger(logger), scheduler.WithSinks(sinks...)}
	if progress {
		opts = append(opts, scheduler.WithProgress(time.Second))
	}
	s, err := scheduler.New(cfg, env, opts...)
	if err != nil {
		closeSinks(logger, sinks)
		return nil, err
	}

	if saveFile != "" {
		if err := util.EnsureDir(saveFile); err != nil {
			closeSinks(logger, sinks)
			return nil, err
		}
		stop := startProfiling(logger)
		defer stop()
	}

	g, gCtx := errgroup.WithContext(ctx)
	if inspectAddr != "" {
		server := inspect.NewServer(inspectAddr, store, hub, log.New(os.Stderr, "[inspect] ", log.LstdFlags))
		g.Go(func() error {
			return server.Start(gCtx)
		})
	}

	var result *scheduler.Result
	g.Go(func() error {
		res, err := s.Run(gCtx)
		if res == nil {
			return err
		}
		result = res
		store.Set(res)
		printSummary(os.Stdout, res, true)
		if err != nil {
			logger.Printf("%d agents did not complete", len(res.Agents)-res.Completed())
		}
		if err := saveResult(res, visits); err != nil {
			logger.Printf("saving results: %v", err)
		}
		if inspectAddr != "" {
			logger.Printf("serving results on %s, interrupt to stop", inspectAddr)
		}
		// agent failures are reported in the summary, they do not stop the server
		return nil
	})
	err = g.Wait()
	if errors.Is(err, context.Canceled) && result != nil {
		err = nil
	}
	return result, err
}

func saveResult(res *scheduler.Result, visits *grid.VisitCounter) error {
	if saveFile == "" {
		return nil
	}
	if err := util.WriteJSON(path.Join(saveFile, "result.json"), res); err != nil {
		return err
	}
	if visits != nil {
		return visits.DataSet().SaveHeatMap("Visits", path.Join(saveFile, "visits.png"))
	}
	return nil
}

func RunCommand() *cobra.Command {
	sf := &sinkFlags{}
	var progress bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agents once and print the outcome of every agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptContext()
			defer cancel()
			res, err := RunLearning(ctx, sf, progress)
			if err != nil {
				return err
			}
			return res.Err()
		},
	}
	cmd.Flags().BoolVar(&progress, "progress", false, "Show the live progress of every agent")
	cmd.Flags().StringVar(&sf.jsonl, "jsonl", "", "Append every transition to this file")
	cmd.Flags().StringVar(&sf.redisAddr, "redis-addr", "", "Add every transition to a redis stream on this server")
	cmd.Flags().StringVar(&sf.redisStream, "redis-stream", "qlearn:transitions", "Name of the redis stream")
	cmd.Flags().Int64Var(&sf.redisMaxLen, "redis-maxlen", 100000, "Approximate maximum length of the redis stream, 0 is unbounded")
	cmd.Flags().StringVar(&sf.mqttBroker, "mqtt-broker", "", "Publish every transition to this mqtt broker (tcp://host:port)")
	cmd.Flags().StringVar(&sf.mqttPrefix, "mqtt-prefix", "qlearn", "Prefix of the per agent mqtt topics")
	cmd.Flags().IntVar(&sf.mqttQoS, "mqtt-qos", 0, "QoS of the mqtt messages")
	return cmd
}
