package watcher

import (
	"context"
	"slices"
	"time"

	"github.com/ritzau/codegraph/pkg/logging"
)

// Debouncer batches rapid change events so a burst of writes from one save
// triggers a single reload
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. A batch is emitted once no
// event arrived for quietPeriod, or maxWait after its first event.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

// run processes events and applies debouncing logic
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet   = stoppedTimer()
		maxWait = stoppedTimer()
		pending []string
	)

	// flush reports whether the batch could be delivered
	flush := func() bool {
		quiet.Stop()
		maxWait.Stop()
		if len(pending) == 0 {
			return true
		}

		slices.Sort(pending)
		batch := ChangeEvent{Paths: slices.Compact(pending), Timestamp: time.Now()}
		pending = nil
		logging.Debug("flushing accumulated changes", "paths", len(batch.Paths))

		select {
		case d.output <- batch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			if len(pending) == 0 {
				maxWait.Reset(d.maxWait)
			}
			pending = append(pending, event.Paths...)
			quiet.Reset(d.quietPeriod)

		case <-quiet.C:
			if !flush() {
				return
			}

		case <-maxWait.C:
			if !flush() {
				return
			}
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
