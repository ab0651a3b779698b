package voting

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toonvote/toonvote/internal/domain"
)

func TestWarmup_RebuildsCountsAndResults(t *testing.T) {
	proposals := newFakeProposalRepo()
	ledger := newFakeLedger()
	cache := newFakeCache()
	registry := NewRegistry(proposals, cache)
	ctx := context.Background()

	p1 := proposals.add(domain.Proposal{TargetWebtoonID: 100, CandidateWebtoonID: 200})
	p2 := proposals.add(domain.Proposal{TargetWebtoonID: 100, CandidateWebtoonID: 201, Result: 42})

	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	ledger.seed(alice, p1.ID, domain.VoteAgree)
	ledger.seed(bob, p1.ID, domain.VoteAgree)
	ledger.seed(carol, p1.ID, domain.VoteDisagree)
	ledger.seed(alice, p2.ID, domain.VoteDisagree)

	// Stale counter from a previous run that must be overwritten.
	require.NoError(t, cache.SetCount(ctx, p1.ID, domain.VoteAgree, 99))
	require.NoError(t, cache.SetCount(ctx, p2.ID, domain.VoteAgree, 42))

	w := NewWarmup(ledger, cache, registry, clockwork.NewFakeClock())
	require.NoError(t, w.Run(ctx))

	assert.Equal(t, int64(2), cache.count(p1.ID, domain.VoteAgree))
	assert.Equal(t, int64(1), cache.count(p1.ID, domain.VoteDisagree))
	assert.Equal(t, int64(0), cache.count(p2.ID, domain.VoteAgree))
	assert.Equal(t, int64(1), cache.count(p2.ID, domain.VoteDisagree))

	assert.True(t, cache.voted(alice, p1.ID))
	assert.True(t, cache.voted(bob, p1.ID))
	assert.True(t, cache.voted(carol, p1.ID))
	assert.True(t, cache.voted(alice, p2.ID))
	assert.False(t, cache.voted(bob, p2.ID))

	// Stored results re-derived from the restored counters.
	stored, err := proposals.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Result)
	stored, err = proposals.GetByID(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), stored.Result)
}

func TestWarmup_EmptyLedger(t *testing.T) {
	cache := newFakeCache()
	registry := NewRegistry(newFakeProposalRepo(), cache)
	w := NewWarmup(newFakeLedger(), cache, registry, clockwork.NewFakeClock())
	require.NoError(t, w.Run(context.Background()))
}

func TestWarmup_CacheFailureAborts(t *testing.T) {
	ledger := newFakeLedger()
	ledger.seed(uuid.New(), 1, domain.VoteAgree)

	cache := newFakeCache()
	cache.markErr = errors.New("connection refused")
	registry := NewRegistry(newFakeProposalRepo(), cache)

	w := NewWarmup(ledger, cache, registry, clockwork.NewFakeClock())
	require.Error(t, w.Run(context.Background()))
}

func TestWarmup_ResultRecomputeFailureAborts(t *testing.T) {
	ledger := newFakeLedger()
	ledger.seed(uuid.New(), 7, domain.VoteAgree)

	cache := newFakeCache()
	// The vote references a proposal the store does not know, so the
	// result write fails and the warmup must not report success.
	registry := NewRegistry(newFakeProposalRepo(), cache)

	w := NewWarmup(ledger, cache, registry, clockwork.NewFakeClock())
	err := w.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrProposalNotFound)
}
