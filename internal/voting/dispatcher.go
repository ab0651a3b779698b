package voting

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/toonvote/toonvote/internal/domain"
	"github.com/toonvote/toonvote/internal/logging"
	"github.com/toonvote/toonvote/internal/metrics"
)

const (
	outcomeQueueSize  = 1024
	compensateTimeout = 5 * time.Second
)

// BroadcastTrigger is notified after every successful vote operation.
type BroadcastTrigger interface {
	Signal()
}

// Dispatcher consumes vote outcomes on a background worker. Successes
// trigger a broadcast; failures compensate the speculative cache flag that
// the rolled-back operation left behind. Enqueueing never blocks: when the
// queue is saturated the outcome is dropped and counted, and the cache
// stays inconsistent until the next warmup.
type Dispatcher struct {
	cache   domain.VoteCache
	trigger BroadcastTrigger

	outcomes chan domain.Outcome
	stopOnce sync.Once
	done     chan struct{}
}

func NewDispatcher(cache domain.VoteCache, trigger BroadcastTrigger) *Dispatcher {
	d := &Dispatcher{
		cache:    cache,
		trigger:  trigger,
		outcomes: make(chan domain.Outcome, outcomeQueueSize),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch enqueues an outcome for asynchronous handling.
func (d *Dispatcher) Dispatch(outcome domain.Outcome) {
	select {
	case d.outcomes <- outcome:
	default:
		metrics.OutcomesDroppedTotal.Inc()
		slog.Warn("Outcome queue saturated, dropping outcome",
			"proposal_id", outcome.ProposalID, "kind", string(outcome.Kind))
	}
}

// Stop drains nothing; queued outcomes are abandoned. Compensation is
// best-effort and warmup restores consistency on the next start.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.done) })
}

func (d *Dispatcher) run() {
	for {
		select {
		case <-d.done:
			return
		case outcome := <-d.outcomes:
			d.handle(outcome)
		}
	}
}

func (d *Dispatcher) handle(outcome domain.Outcome) {
	if outcome.Kind == domain.VoteSucceeded {
		d.trigger.Signal()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), compensateTimeout)
	defer cancel()

	var err error
	switch outcome.Reason {
	case domain.ReasonVoteFailed:
		err = d.cache.UnmarkVoted(ctx, outcome.UserID, outcome.ProposalID)
	case domain.ReasonCancelFailed:
		err = d.cache.MarkVoted(ctx, outcome.UserID, outcome.ProposalID)
	default:
		slog.Error("Outcome with unknown failure reason",
			"proposal_id", outcome.ProposalID, "reason", string(outcome.Reason))
		return
	}

	logger := logging.WithProposal(outcome.ProposalID)
	if err != nil {
		logger.Error("Cache compensation failed",
			"user_id", outcome.UserID.String(),
			"reason", string(outcome.Reason),
			"error", err)
		return
	}
	metrics.VoteCompensationsTotal.WithLabelValues(string(outcome.Reason)).Inc()
	logger.Info("Compensated cache write left by rolled-back operation",
		"reason", string(outcome.Reason))
}
