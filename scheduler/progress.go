package scheduler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gosuri/uilive"
)

// ProgressSource is anything able to snapshot its workers
type ProgressSource interface {
	Progress() []AgentProgress
}

// ProgressPrinter redraws one line per agent in place
type ProgressPrinter struct {
	source   ProgressSource
	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
	done     chan struct{}

	writer *uilive.Writer
}

func NewProgressPrinter(ctx context.Context, source ProgressSource, interval time.Duration) *ProgressPrinter {
	printerCtx, cancel := context.WithCancel(ctx)
	return &ProgressPrinter{
		source:   source,
		ctx:      printerCtx,
		cancel:   cancel,
		interval: interval,
		done:     make(chan struct{}),
		writer:   uilive.New(),
	}
}

// SetOutput redirects the printer, stdout by default
func (p *ProgressPrinter) SetOutput(w io.Writer) {
	p.writer.Out = w
}

func (p *ProgressPrinter) Start() {
	p.writer.Start()
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.ctx.Done():
				p.print()
				p.writer.Stop()
				return
			case <-ticker.C:
				p.print()
			}
		}
	}()
}

// Stop prints the final state and waits for the printer to exit
func (p *ProgressPrinter) Stop() {
	p.cancel()
	<-p.done
}

func (p *ProgressPrinter) print() {
	snapshot := p.source.Progress()
	if len(snapshot) == 0 {
		return
	}
	b := new(strings.Builder)
	for _, a := range snapshot {
		b.WriteString(FormatProgress(a, 30))
		b.WriteString("\n")
	}
	fmt.Fprint(p.writer, b.String())
}

// FormatProgress renders a fixed width bar for one agent
func FormatProgress(a AgentProgress, width int) string {
	filled := 0
	if a.Episodes > 0 {
		filled = a.Episode * width / a.Episodes
	}
	return fmt.Sprintf("agent %3d [%s%s] %d/%d %s",
		a.ID,
		strings.Repeat("#", filled),
		strings.Repeat(" ", width-filled),
		a.Episode,
		a.Episodes,
		a.Status,
	)
}
