package domain

import "errors"

var (
	ErrProposalNotFound  = errors.New("proposal not found")
	ErrVoteNotFound      = errors.New("vote not found")
	ErrDuplicateProposal = errors.New("proposal already exists for webtoon pair")
	ErrDuplicateVote     = errors.New("vote already exists")
	ErrAlreadyVoted      = errors.New("user already voted")
	ErrInvalidVoteType   = errors.New("invalid vote type")
	ErrCacheUnavailable  = errors.New("vote cache unavailable")
)
