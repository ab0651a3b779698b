package voting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/toonvote/toonvote/internal/domain"
	"github.com/toonvote/toonvote/internal/logging"
)

// Registry manages similarity proposals: creation with duplicate
// protection, deletion with cache cleanup, and listing enriched with live
// cache counts.
type Registry struct {
	proposals domain.ProposalRepository
	cache     domain.VoteCache
	// listGroup collapses concurrent identical list computations during
	// vote storms, when every broadcast cycle re-reads the same page.
	listGroup singleflight.Group
}

func NewRegistry(proposals domain.ProposalRepository, cache domain.VoteCache) *Registry {
	return &Registry{proposals: proposals, cache: cache}
}

// CreateProposal registers a new similarity claim. The pair check is a UX
// fast path; a concurrent duplicate that slips past it is caught by the
// storage constraint and surfaces as the same error.
func (r *Registry) CreateProposal(ctx context.Context, creatorID uuid.UUID, targetID, candidateID int64) (*domain.Proposal, error) {
	exists, err := r.proposals.ExistsByPair(ctx, targetID, candidateID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateProposal
	}

	return r.proposals.Create(ctx, creatorID, targetID, candidateID)
}

// DeleteProposal removes a proposal, its votes (cascaded by the store),
// and every cache entry tied to it. Ownership is enforced by the
// surrounding CRUD layer; a mismatched requester is a silent no-op.
func (r *Registry) DeleteProposal(ctx context.Context, requesterID uuid.UUID, proposalID int64) error {
	p, err := r.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return err
	}
	if p.CreatorID != requesterID {
		logging.WithProposal(proposalID).Warn("Ignoring proposal delete from non-creator",
			"requester_id", requesterID.String())
		return nil
	}

	if err := r.proposals.Delete(ctx, proposalID); err != nil {
		return err
	}

	if err := r.cache.ClearProposal(ctx, proposalID); err != nil {
		// Rows are already gone; stale cache keys are rebuilt (or dropped)
		// by the next warmup.
		logging.WithProposal(proposalID).Warn("Failed to clear cache for deleted proposal",
			"error", err)
	}
	return nil
}

// List returns one page of proposals for a target webtoon, each view
// carrying live agree/disagree counts read from the cache.
func (r *Registry) List(ctx context.Context, targetID int64, page, size int) (domain.Page[domain.ProposalView], error) {
	key := fmt.Sprintf("%d:%d:%d", targetID, page, size)
	v, err, _ := r.listGroup.Do(key, func() (any, error) {
		proposals, total, err := r.proposals.ListByTarget(ctx, targetID, page, size)
		if err != nil {
			return nil, err
		}

		views, err := r.enrich(ctx, proposals)
		if err != nil {
			return nil, err
		}

		return domain.Page[domain.ProposalView]{
			Items: views,
			Page:  page,
			Size:  size,
			Total: total,
		}, nil
	})
	if err != nil {
		return domain.Page[domain.ProposalView]{}, err
	}
	return v.(domain.Page[domain.ProposalView]), nil
}

// TopSnapshot returns the highest-ranked proposals across all targets,
// used as the broadcast payload.
func (r *Registry) TopSnapshot(ctx context.Context, size int) (domain.Page[domain.ProposalView], error) {
	proposals, err := r.proposals.ListTop(ctx, size)
	if err != nil {
		return domain.Page[domain.ProposalView]{}, err
	}

	views, err := r.enrich(ctx, proposals)
	if err != nil {
		return domain.Page[domain.ProposalView]{}, err
	}

	return domain.Page[domain.ProposalView]{
		Items: views,
		Page:  0,
		Size:  size,
		Total: int64(len(views)),
	}, nil
}

// RecomputeResult reads both cache counters and writes
// result = agree - disagree back to the authoritative store. The
// coordinator syncs the result inline within its vote transaction; this
// entry point serves callers outside that transaction, like the warmup
// healing stored results after rebuilding the counters.
func (r *Registry) RecomputeResult(ctx context.Context, proposalID int64) (int64, error) {
	agree, disagree, err := readCounts(ctx, r.cache, proposalID)
	if err != nil {
		return 0, err
	}

	result := agree - disagree
	if err := r.proposals.UpdateResult(ctx, proposalID, result); err != nil {
		return 0, err
	}
	return result, nil
}

func (r *Registry) enrich(ctx context.Context, proposals []domain.Proposal) ([]domain.ProposalView, error) {
	views := make([]domain.ProposalView, 0, len(proposals))
	for _, p := range proposals {
		agree, disagree, err := readCounts(ctx, r.cache, p.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, domain.ProposalView{
			ID:                 p.ID,
			CandidateWebtoonID: p.CandidateWebtoonID,
			AgreeCount:         agree,
			DisagreeCount:      disagree,
			Result:             p.Result,
		})
	}
	return views, nil
}

// readCounts loads both counters for a proposal from the cache.
func readCounts(ctx context.Context, cache domain.VoteCache, proposalID int64) (agree, disagree int64, err error) {
	agree, err = cache.GetCount(ctx, proposalID, domain.VoteAgree)
	if err != nil {
		return 0, 0, err
	}
	disagree, err = cache.GetCount(ctx, proposalID, domain.VoteDisagree)
	if err != nil {
		return 0, 0, err
	}
	return agree, disagree, nil
}
