package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// VoteType is the closed set of judgments a user can cast on a proposal.
type VoteType string

const (
	VoteAgree    VoteType = "agree"
	VoteDisagree VoteType = "disagree"
)

// VoteTypes returns every valid vote type. Cache key cleanup iterates this
// so no counter key is ever left behind.
func VoteTypes() []VoteType {
	return []VoteType{VoteAgree, VoteDisagree}
}

// ParseVoteType converts a wire-level string into a VoteType.
// Invalid strings fail fast instead of being dispatched dynamically.
func ParseVoteType(s string) (VoteType, error) {
	switch VoteType(s) {
	case VoteAgree:
		return VoteAgree, nil
	case VoteDisagree:
		return VoteDisagree, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVoteType, s)
	}
}

// Proposal is a user-submitted claim that the candidate webtoon is similar
// to the target webtoon. Result is a denormalized agree-disagree difference,
// recomputed from the cache after every vote; it may briefly lag.
type Proposal struct {
	ID                 int64
	TargetWebtoonID    int64
	CandidateWebtoonID int64
	CreatorID          uuid.UUID
	Result             int64
}

// Vote is one user's judgment on a proposal. Uniqueness on
// (UserID, ProposalID) is enforced by the ledger's storage constraint.
type Vote struct {
	ID         int64
	UserID     uuid.UUID
	ProposalID int64
	Type       VoteType
}

// ProposalView is a proposal enriched with live cache counts for listing
// and broadcasting.
type ProposalView struct {
	ID                 int64 `json:"id"`
	CandidateWebtoonID int64 `json:"candidateWebtoonId"`
	AgreeCount         int64 `json:"agreeCount"`
	DisagreeCount      int64 `json:"disagreeCount"`
	Result             int64 `json:"result"`
}

// Page is one page of a larger result set.
type Page[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

// OutcomeKind marks whether a vote operation's authoritative write
// committed or rolled back.
type OutcomeKind string

const (
	VoteSucceeded OutcomeKind = "vote_success"
	VoteFailed    OutcomeKind = "vote_failure"
)

// FailureReason distinguishes which cache mutation must be compensated.
type FailureReason string

const (
	ReasonVoteFailed   FailureReason = "vote_failure"
	ReasonCancelFailed FailureReason = "vote_cancel_failure"
)

// Outcome is the ephemeral signal emitted once a vote or cancel operation
// reaches its terminal transaction state. Success outcomes feed the
// broadcast coalescer; failure outcomes drive cache compensation.
type Outcome struct {
	ProposalID int64
	UserID     uuid.UUID
	Kind       OutcomeKind
	Reason     FailureReason
}
