package voting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/toonvote/toonvote/internal/domain"
	"github.com/toonvote/toonvote/internal/metrics"
)

// resultRecomputer re-derives a proposal's stored result from the cache.
type resultRecomputer interface {
	RecomputeResult(ctx context.Context, proposalID int64) (int64, error)
}

// Warmup rebuilds the derived cache state from the vote ledger. It runs
// before the server accepts traffic; a failed warmup aborts startup because
// a cold cache would serve zero counts and let users double-vote past the
// fast path.
type Warmup struct {
	ledger  domain.VoteLedger
	cache   domain.VoteCache
	results resultRecomputer
	clock   clockwork.Clock
}

func NewWarmup(ledger domain.VoteLedger, cache domain.VoteCache, results resultRecomputer, clock clockwork.Clock) *Warmup {
	return &Warmup{ledger: ledger, cache: cache, results: results, clock: clock}
}

// Run replays every vote row into the cache: one voted flag per vote, and
// absolute counters per proposal. Both counter keys of every seen proposal
// are written, so a stale non-zero counter from a previous run cannot
// survive with no votes behind it. Each proposal's stored result is then
// recomputed from the restored counters, healing drift left by any
// partially applied vote cycle.
func (w *Warmup) Run(ctx context.Context) error {
	start := w.clock.Now()

	votes, err := w.ledger.ListAllVotes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load votes for warmup: %w", err)
	}

	counts := make(map[int64]map[domain.VoteType]int64)
	for _, v := range votes {
		if err := w.cache.MarkVoted(ctx, v.UserID, v.ProposalID); err != nil {
			return fmt.Errorf("failed to restore vote flag: %w", err)
		}
		if counts[v.ProposalID] == nil {
			counts[v.ProposalID] = make(map[domain.VoteType]int64)
		}
		counts[v.ProposalID][v.Type]++
	}

	for proposalID, byType := range counts {
		for _, voteType := range domain.VoteTypes() {
			if err := w.cache.SetCount(ctx, proposalID, voteType, byType[voteType]); err != nil {
				return fmt.Errorf("failed to restore vote count: %w", err)
			}
		}
		if _, err := w.results.RecomputeResult(ctx, proposalID); err != nil {
			return fmt.Errorf("failed to restore proposal result: %w", err)
		}
	}

	elapsed := w.clock.Since(start)
	metrics.WarmupDuration.Set(elapsed.Seconds())
	metrics.WarmupVotesLoaded.Set(float64(len(votes)))
	slog.Info("Cache warmup complete",
		"votes", len(votes), "proposals", len(counts), "duration", elapsed)
	return nil
}
