package voting

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toonvote/toonvote/internal/domain"
)

func TestCreateProposal(t *testing.T) {
	proposals := newFakeProposalRepo()
	r := NewRegistry(proposals, newFakeCache())
	ctx := context.Background()

	p, err := r.CreateProposal(ctx, uuid.New(), 100, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.TargetWebtoonID)
	assert.Equal(t, int64(200), p.CandidateWebtoonID)

	_, err = r.CreateProposal(ctx, uuid.New(), 100, 200)
	assert.ErrorIs(t, err, domain.ErrDuplicateProposal)
}

func TestDeleteProposal_Creator(t *testing.T) {
	proposals := newFakeProposalRepo()
	cache := newFakeCache()
	r := NewRegistry(proposals, cache)
	ctx := context.Background()

	creator := uuid.New()
	p, err := r.CreateProposal(ctx, creator, 100, 200)
	require.NoError(t, err)

	require.NoError(t, r.DeleteProposal(ctx, creator, p.ID))

	_, err = proposals.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProposalNotFound)
	assert.Contains(t, cache.cleared, p.ID)
}

func TestDeleteProposal_NonCreatorIsNoOp(t *testing.T) {
	proposals := newFakeProposalRepo()
	cache := newFakeCache()
	r := NewRegistry(proposals, cache)
	ctx := context.Background()

	p, err := r.CreateProposal(ctx, uuid.New(), 100, 200)
	require.NoError(t, err)

	require.NoError(t, r.DeleteProposal(ctx, uuid.New(), p.ID))

	_, err = proposals.GetByID(ctx, p.ID)
	assert.NoError(t, err)
	assert.Empty(t, cache.cleared)
}

func TestDeleteProposal_NotFound(t *testing.T) {
	r := NewRegistry(newFakeProposalRepo(), newFakeCache())
	err := r.DeleteProposal(context.Background(), uuid.New(), 9999)
	assert.ErrorIs(t, err, domain.ErrProposalNotFound)
}

func TestList_EnrichesWithCacheCounts(t *testing.T) {
	proposals := newFakeProposalRepo()
	cache := newFakeCache()
	r := NewRegistry(proposals, cache)
	ctx := context.Background()

	p1 := proposals.add(domain.Proposal{TargetWebtoonID: 100, CandidateWebtoonID: 201, Result: 5})
	p2 := proposals.add(domain.Proposal{TargetWebtoonID: 100, CandidateWebtoonID: 202, Result: 9})
	proposals.add(domain.Proposal{TargetWebtoonID: 777, CandidateWebtoonID: 203})

	require.NoError(t, cache.SetCount(ctx, p1.ID, domain.VoteAgree, 6))
	require.NoError(t, cache.SetCount(ctx, p1.ID, domain.VoteDisagree, 1))
	require.NoError(t, cache.SetCount(ctx, p2.ID, domain.VoteAgree, 9))

	page, err := r.List(ctx, 100, 0, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)

	// Ordered by result descending.
	assert.Equal(t, p2.ID, page.Items[0].ID)
	assert.Equal(t, int64(9), page.Items[0].AgreeCount)
	assert.Equal(t, int64(0), page.Items[0].DisagreeCount)
	assert.Equal(t, p1.ID, page.Items[1].ID)
	assert.Equal(t, int64(6), page.Items[1].AgreeCount)
	assert.Equal(t, int64(1), page.Items[1].DisagreeCount)
}

func TestList_Pagination(t *testing.T) {
	proposals := newFakeProposalRepo()
	r := NewRegistry(proposals, newFakeCache())
	ctx := context.Background()

	for i := range 5 {
		proposals.add(domain.Proposal{TargetWebtoonID: 100, CandidateWebtoonID: int64(200 + i)})
	}

	page, err := r.List(ctx, 100, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 1, page.Page)

	last, err := r.List(ctx, 100, 2, 2)
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
}

func TestTopSnapshot(t *testing.T) {
	proposals := newFakeProposalRepo()
	r := NewRegistry(proposals, newFakeCache())

	proposals.add(domain.Proposal{TargetWebtoonID: 100, CandidateWebtoonID: 201, Result: 1})
	proposals.add(domain.Proposal{TargetWebtoonID: 101, CandidateWebtoonID: 202, Result: 8})
	proposals.add(domain.Proposal{TargetWebtoonID: 102, CandidateWebtoonID: 203, Result: 3})

	page, err := r.TopSnapshot(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(8), page.Items[0].Result)
	assert.Equal(t, int64(3), page.Items[1].Result)
}

func TestRecomputeResult(t *testing.T) {
	proposals := newFakeProposalRepo()
	cache := newFakeCache()
	r := NewRegistry(proposals, cache)
	ctx := context.Background()

	p := proposals.add(domain.Proposal{TargetWebtoonID: 100, CandidateWebtoonID: 200})
	require.NoError(t, cache.SetCount(ctx, p.ID, domain.VoteAgree, 3))
	require.NoError(t, cache.SetCount(ctx, p.ID, domain.VoteDisagree, 1))

	result, err := r.RecomputeResult(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result)

	stored, err := proposals.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Result)
}

func TestList_CacheUnavailable(t *testing.T) {
	proposals := newFakeProposalRepo()
	cache := newFakeCache()
	r := NewRegistry(proposals, cache)

	proposals.add(domain.Proposal{TargetWebtoonID: 100, CandidateWebtoonID: 200})
	cache.getErr = domain.ErrCacheUnavailable

	_, err := r.List(context.Background(), 100, 0, 10)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}
