package bus

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/zeu5/dist-qlearning/types"
)

// RedisSink adds every transition to a capped Redis stream
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ Sink = &RedisSink{}

// NewRedisSink connects to addr and checks the server is reachable
func NewRedisSink(ctx context.Context, addr, stream string, maxLen int64) (*RedisSink, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		cli.Close()
		return nil, err
	}
	return NewRedisSinkWithClient(cli, stream, maxLen), nil
}

func NewRedisSinkWithClient(cli *redis.Client, stream string, maxLen int64) *RedisSink {
	return &RedisSink{
		client: cli,
		stream: stream,
		maxLen: maxLen,
	}
}

func (r *RedisSink) Write(ctx context.Context, t types.Transition) error {
	return r.client.XAdd(ctx, r.xAddArgs(t)).Err()
}

func (r *RedisSink) xAddArgs(t types.Transition) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: r.maxLen > 0,
		Values: transitionValues(t),
	}
}

func transitionValues(t types.Transition) map[string]interface{} {
	return map[string]interface{}{
		"agent":      t.AgentID,
		"episode":    t.Episode,
		"state":      t.State,
		"action":     t.Action,
		"reward":     t.Reward,
		"next_state": t.NextState,
	}
}

func (r *RedisSink) Close() error {
	return r.client.Close()
}
