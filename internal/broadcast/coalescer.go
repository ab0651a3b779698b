// Package broadcast turns bursts of vote signals into a bounded stream of
// snapshot publishes.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/toonvote/toonvote/internal/domain"
	"github.com/toonvote/toonvote/internal/metrics"
)

const (
	signalQueueSize = 1024
	publishTimeout  = 5 * time.Second
)

// SnapshotSource produces the page that gets broadcast.
type SnapshotSource interface {
	TopSnapshot(ctx context.Context, size int) (domain.Page[domain.ProposalView], error)
}

// Coalescer collapses bursts of vote signals into single snapshot
// publishes. Each cycle drains every pending signal, so a thousand votes
// landing together cost one snapshot computation, not a thousand. Signals
// are intents, not deltas: dropping one under backpressure loses nothing,
// because the next publish carries absolute state.
type Coalescer struct {
	source      SnapshotSource
	publisher   domain.SnapshotPublisher
	clock       clockwork.Clock
	pageSize    int
	minInterval time.Duration

	signals  chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New starts the coalescer's publish loop. minInterval of zero publishes as
// soon as a drain cycle completes; a positive value additionally rate-limits
// publishes to one per interval.
func New(source SnapshotSource, publisher domain.SnapshotPublisher, clock clockwork.Clock, pageSize int, minInterval time.Duration) *Coalescer {
	c := &Coalescer{
		source:      source,
		publisher:   publisher,
		clock:       clock,
		pageSize:    pageSize,
		minInterval: minInterval,
		signals:     make(chan struct{}, signalQueueSize),
		done:        make(chan struct{}),
	}
	go c.run()
	return c
}

// Signal requests a broadcast. It never blocks; with a signal already
// queued the snapshot that drains it covers this one too.
func (c *Coalescer) Signal() {
	select {
	case c.signals <- struct{}{}:
		metrics.BroadcastSignalsTotal.WithLabelValues("accepted").Inc()
	default:
		metrics.BroadcastSignalsTotal.WithLabelValues("dropped").Inc()
	}
}

// Stop terminates the publish loop. Pending signals are discarded.
func (c *Coalescer) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *Coalescer) run() {
	for {
		select {
		case <-c.done:
			return
		case <-c.signals:
		}

		coalesced := 1 + c.drain()

		if c.minInterval > 0 {
			select {
			case <-c.done:
				return
			case <-c.clock.After(c.minInterval):
			}
			// Signals that arrived during the wait ride along for free.
			coalesced += c.drain()
		}

		c.publish(coalesced)
	}
}

// drain empties the signal queue and reports how many signals it absorbed.
func (c *Coalescer) drain() int {
	n := 0
	for {
		select {
		case <-c.signals:
			n++
		default:
			return n
		}
	}
}

func (c *Coalescer) publish(coalesced int) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	page, err := c.source.TopSnapshot(ctx, c.pageSize)
	if err != nil {
		slog.Error("Failed to compute broadcast snapshot", "error", err)
		return
	}

	if err := c.publisher.PublishSnapshot(ctx, page); err != nil {
		slog.Error("Failed to publish broadcast snapshot", "error", err)
		return
	}

	metrics.BroadcastPublishesTotal.Inc()
	metrics.BroadcastCoalescedSignals.Observe(float64(coalesced))
	slog.Debug("Published snapshot", "coalesced_signals", coalesced)
}
