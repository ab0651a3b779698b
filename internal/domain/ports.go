package domain

import (
	"context"

	"github.com/google/uuid"
)

// ProposalRepository is the authoritative store for proposals.
type ProposalRepository interface {
	Create(ctx context.Context, creatorID uuid.UUID, targetID, candidateID int64) (*Proposal, error)
	GetByID(ctx context.Context, proposalID int64) (*Proposal, error)
	// ExistsByPair is the duplicate pre-check; the unique constraint on
	// the pair remains the real guard against races.
	ExistsByPair(ctx context.Context, targetID, candidateID int64) (bool, error)
	// Delete removes a proposal; its votes cascade in the same statement.
	Delete(ctx context.Context, proposalID int64) error
	// ListByTarget returns one page ordered by result DESC, id DESC, plus
	// the total number of proposals for the target.
	ListByTarget(ctx context.Context, targetID int64, page, size int) ([]Proposal, int64, error)
	// ListTop returns the highest-ranked proposals across all targets,
	// ordered by result DESC, id DESC.
	ListTop(ctx context.Context, size int) ([]Proposal, error)
	UpdateResult(ctx context.Context, proposalID, result int64) error
}

// LedgerTx is the transaction-scoped slice of the vote ledger. Everything
// called through it commits or rolls back atomically.
type LedgerTx interface {
	InsertVote(ctx context.Context, userID uuid.UUID, proposalID int64, voteType VoteType) (int64, error)
	// DeleteVote removes the user's vote and reports its type so the
	// matching cache counter can be decremented.
	DeleteVote(ctx context.Context, userID uuid.UUID, proposalID int64) (VoteType, error)
	SetProposalResult(ctx context.Context, proposalID, result int64) error
}

// VoteLedger is the authoritative store for individual votes. The
// (userID, proposalID) uniqueness constraint lives here, not in
// application logic.
type VoteLedger interface {
	// InTx runs fn within one transaction against the authoritative store.
	// fn's error rolls the transaction back and is returned unchanged.
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
	GetVote(ctx context.Context, userID uuid.UUID, proposalID int64) (*Vote, error)
	ListAllVotes(ctx context.Context) ([]Vote, error)
}

// VoteCache is the fast aggregate store: per-proposal counters and
// per-user voted flags. All state is derived and reconstructible.
type VoteCache interface {
	IncrCount(ctx context.Context, proposalID int64, voteType VoteType) error
	DecrCount(ctx context.Context, proposalID int64, voteType VoteType) error
	GetCount(ctx context.Context, proposalID int64, voteType VoteType) (int64, error)
	SetCount(ctx context.Context, proposalID int64, voteType VoteType, value int64) error
	MarkVoted(ctx context.Context, userID uuid.UUID, proposalID int64) error
	HasVoted(ctx context.Context, userID uuid.UUID, proposalID int64) (bool, error)
	UnmarkVoted(ctx context.Context, userID uuid.UUID, proposalID int64) error
	ClearProposal(ctx context.Context, proposalID int64) error
}

// SnapshotPublisher publishes a snapshot page onto the pub/sub bus.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, page Page[ProposalView]) error
}

// OutcomeSink receives vote outcomes after their transaction terminates.
// Enqueueing must never block the caller.
type OutcomeSink interface {
	Dispatch(outcome Outcome)
}
