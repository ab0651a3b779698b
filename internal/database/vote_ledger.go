package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toonvote/toonvote/internal/domain"
)

// VoteLedger implements domain.VoteLedger backed by PostgreSQL. The unique
// constraint on (user_id, proposal_id) totally orders concurrent vote
// attempts: at most one insert wins.
type VoteLedger struct {
	pool      *pgxpool.Pool
	proposals *ProposalRepo
}

func NewVoteLedger(pool *pgxpool.Pool) *VoteLedger {
	return &VoteLedger{pool: pool, proposals: NewProposalRepo(pool)}
}

// InTx runs fn within one transaction. An error from fn rolls everything
// back and is returned to the caller unchanged.
func (l *VoteLedger) InTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&ledgerTx{tx: tx, proposals: l.proposals.WithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (l *VoteLedger) GetVote(ctx context.Context, userID uuid.UUID, proposalID int64) (*domain.Vote, error) {
	var v domain.Vote
	err := l.pool.QueryRow(ctx, `
		SELECT id, user_id, proposal_id, vote_type
		FROM votes
		WHERE user_id = $1 AND proposal_id = $2`,
		userID, proposalID).Scan(&v.ID, &v.UserID, &v.ProposalID, &v.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrVoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return &v, nil
}

// ListAllVotes streams every vote row; used only by cache warmup.
func (l *VoteLedger) ListAllVotes(ctx context.Context) ([]domain.Vote, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, user_id, proposal_id, vote_type FROM votes`)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.ID, &v.UserID, &v.ProposalID, &v.Type); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read votes: %w", err)
	}
	return votes, nil
}

// ledgerTx is the transaction-scoped ledger handed to InTx callbacks.
type ledgerTx struct {
	tx        pgx.Tx
	proposals *ProposalRepo
}

func (t *ledgerTx) InsertVote(ctx context.Context, userID uuid.UUID, proposalID int64, voteType domain.VoteType) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO votes (user_id, proposal_id, vote_type)
		VALUES ($1, $2, $3)
		RETURNING id`,
		userID, proposalID, voteType).Scan(&id)
	if isUniqueViolation(err) {
		return 0, domain.ErrDuplicateVote
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert vote: %w", err)
	}
	return id, nil
}

func (t *ledgerTx) DeleteVote(ctx context.Context, userID uuid.UUID, proposalID int64) (domain.VoteType, error) {
	var voteType domain.VoteType
	err := t.tx.QueryRow(ctx, `
		DELETE FROM votes
		WHERE user_id = $1 AND proposal_id = $2
		RETURNING vote_type`,
		userID, proposalID).Scan(&voteType)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrVoteNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to delete vote: %w", err)
	}
	return voteType, nil
}

func (t *ledgerTx) SetProposalResult(ctx context.Context, proposalID, result int64) error {
	return t.proposals.UpdateResult(ctx, proposalID, result)
}
