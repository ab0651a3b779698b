package voting

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/toonvote/toonvote/internal/domain"
	"github.com/toonvote/toonvote/internal/logging"
	"github.com/toonvote/toonvote/internal/metrics"
)

// Coordinator runs the vote and cancel state machines. Cache mutations run
// inside the transaction callback: a cache failure aborts the ledger write,
// and the failure outcome handed to the sink afterwards compensates
// whatever mutation already landed before the rollback.
type Coordinator struct {
	proposals domain.ProposalRepository
	ledger    domain.VoteLedger
	cache     domain.VoteCache
	sink      domain.OutcomeSink
}

func NewCoordinator(
	proposals domain.ProposalRepository,
	ledger domain.VoteLedger,
	cache domain.VoteCache,
	sink domain.OutcomeSink,
) *Coordinator {
	return &Coordinator{proposals: proposals, ledger: ledger, cache: cache, sink: sink}
}

// Vote casts userID's vote on a proposal. The cache duplicate check is a
// fast path only; the ledger's unique constraint decides races, and its
// violation surfaces as ErrAlreadyVoted just like the fast path.
func (c *Coordinator) Vote(ctx context.Context, userID uuid.UUID, proposalID int64, voteType domain.VoteType) error {
	if _, err := c.proposals.GetByID(ctx, proposalID); err != nil {
		return err
	}

	voted, err := c.cache.HasVoted(ctx, userID, proposalID)
	if err != nil {
		// Advisory check only. The constraint below still catches
		// duplicates, so a degraded cache must not block voting.
		logging.WithUser(userID.String()).Warn("Vote fast-path check unavailable, falling through to ledger",
			"proposal_id", proposalID, "error", err)
	} else if voted {
		metrics.VotesTotal.WithLabelValues(string(voteType), "duplicate").Inc()
		return domain.ErrAlreadyVoted
	}

	err = c.ledger.InTx(ctx, func(tx domain.LedgerTx) error {
		if _, err := tx.InsertVote(ctx, userID, proposalID, voteType); err != nil {
			return err
		}
		if err := c.cache.MarkVoted(ctx, userID, proposalID); err != nil {
			return err
		}
		if err := c.cache.IncrCount(ctx, proposalID, voteType); err != nil {
			return err
		}
		return c.syncResult(ctx, tx, proposalID)
	})
	if err != nil {
		metrics.VotesTotal.WithLabelValues(string(voteType), "failure").Inc()
		c.sink.Dispatch(domain.Outcome{
			ProposalID: proposalID,
			UserID:     userID,
			Kind:       domain.VoteFailed,
			Reason:     domain.ReasonVoteFailed,
		})
		if errors.Is(err, domain.ErrDuplicateVote) {
			return domain.ErrAlreadyVoted
		}
		return err
	}

	metrics.VotesTotal.WithLabelValues(string(voteType), "success").Inc()
	c.sink.Dispatch(domain.Outcome{
		ProposalID: proposalID,
		UserID:     userID,
		Kind:       domain.VoteSucceeded,
	})
	return nil
}

// Cancel withdraws userID's vote. The flag clear and decrement ride inside
// the delete transaction; a rolled-back delete produces a cancel-failure
// outcome that restores the cleared flag.
func (c *Coordinator) Cancel(ctx context.Context, userID uuid.UUID, proposalID int64) error {
	if _, err := c.proposals.GetByID(ctx, proposalID); err != nil {
		return err
	}

	var voteType domain.VoteType
	err := c.ledger.InTx(ctx, func(tx domain.LedgerTx) error {
		var err error
		voteType, err = tx.DeleteVote(ctx, userID, proposalID)
		if err != nil {
			return err
		}
		if err := c.cache.UnmarkVoted(ctx, userID, proposalID); err != nil {
			return err
		}
		if err := c.cache.DecrCount(ctx, proposalID, voteType); err != nil {
			return err
		}
		return c.syncResult(ctx, tx, proposalID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrVoteNotFound) {
			// Nothing to compensate: the flag was already supposed to be
			// absent for a user without a vote.
			metrics.VotesTotal.WithLabelValues("cancel", "not_found").Inc()
			return err
		}
		metrics.VotesTotal.WithLabelValues("cancel", "failure").Inc()
		c.sink.Dispatch(domain.Outcome{
			ProposalID: proposalID,
			UserID:     userID,
			Kind:       domain.VoteFailed,
			Reason:     domain.ReasonCancelFailed,
		})
		return err
	}

	metrics.VotesTotal.WithLabelValues("cancel", "success").Inc()
	c.sink.Dispatch(domain.Outcome{
		ProposalID: proposalID,
		UserID:     userID,
		Kind:       domain.VoteSucceeded,
	})
	return nil
}

// Status reports the vote userID has cast on a proposal, or nil if none.
func (c *Coordinator) Status(ctx context.Context, userID uuid.UUID, proposalID int64) (*domain.Vote, error) {
	if _, err := c.proposals.GetByID(ctx, proposalID); err != nil {
		return nil, err
	}

	vote, err := c.ledger.GetVote(ctx, userID, proposalID)
	if errors.Is(err, domain.ErrVoteNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return vote, nil
}

// syncResult recomputes agree-disagree from the cache and writes it into
// the proposal row within the surrounding transaction.
func (c *Coordinator) syncResult(ctx context.Context, tx domain.LedgerTx, proposalID int64) error {
	agree, disagree, err := readCounts(ctx, c.cache, proposalID)
	if err != nil {
		return err
	}
	return tx.SetProposalResult(ctx, proposalID, agree-disagree)
}
