package extractor

import (
	"context"
	"errors"
)

// EventKind identifies a notification sent by a background extraction
type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventResult
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "extract-start"
	case EventProgress:
		return "extract-progress"
	case EventResult:
		return "extract-result"
	case EventFailed:
		return "extract-error"
	default:
		return "unknown"
	}
}

// Event is one notification from a background extraction.
// Progress is set for EventProgress, Result for EventResult and Err for EventFailed.
type Event struct {
	Kind     EventKind
	Progress float64
	Result   *Result
	Err      error
}

// errAbandoned stops a scan whose receiver has gone away
var errAbandoned = errors.New("extraction abandoned")

// Start validates the options, snapshots them and runs the scan on a new
// goroutine. The returned channel delivers EventStarted, any number of
// EventProgress and then exactly one EventResult or EventFailed before it
// is closed.
//
// The scan itself cannot be cancelled. Cancelling ctx abandons the worker:
// it stops delivering events, drops the in-flight computation and closes the
// channel without a terminal event.
func Start(ctx context.Context, opts *Options) (<-chan Event, error) {
	grid, err := opts.Validate()
	if err != nil {
		return nil, err
	}

	snapshot := opts.snapshot()
	events := make(chan Event)

	go func() {
		defer close(events)

		send := func(e Event) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case events <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(Event{Kind: EventStarted}) {
			return
		}

		res, err := run(snapshot, grid, func(p float64) bool {
			return send(Event{Kind: EventProgress, Progress: p})
		})
		switch {
		case errors.Is(err, errAbandoned):
			return
		case err != nil:
			send(Event{Kind: EventFailed, Err: err})
		default:
			send(Event{Kind: EventResult, Result: res})
		}
	}()

	return events, nil
}
