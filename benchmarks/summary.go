package benchmarks

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"
	"github.com/zeu5/dist-qlearning/scheduler"
	"github.com/zeu5/dist-qlearning/types"
)

// printSummary writes one line per agent followed by the bus counters
func printSummary(w io.Writer, res *scheduler.Result, colors bool) {
	au := aurora.NewAurora(colors)
	fmt.Fprintf(w, "Run %s (%s)\n", au.Bold(res.RunID), res.Duration)
	for _, a := range res.Agents {
		var status aurora.Value
		switch a.Status {
		case types.StatusCompleted:
			status = au.Green(a.Status)
		case types.StatusCanceled:
			status = au.Yellow(a.Status)
		default:
			status = au.Red(a.Status)
		}
		fmt.Fprintf(w, "  agent %3d %-10s episodes %6d reward %8.1f received %6d", a.ID, status, a.Episodes, a.TotalReward, a.Received)
		if a.Error != "" {
			fmt.Fprintf(w, " %s", au.Red(a.Error))
		}
		fmt.Fprintln(w)
	}
	b := res.Bus
	fmt.Fprintf(w, "Bus: sent %d received %d delivered %d dropped %d send failures %d sink errors %d\n",
		b.Sent, b.Received, b.Delivered, au.Yellow(b.Dropped), b.SendFailures, b.SinkErrors)
	fmt.Fprintf(w, "Completed %s/%d, mean reward %.2f\n", au.Cyan(res.Completed()), len(res.Agents), res.MeanReward())
}
