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

// proposalColumns must match the Scan order in scanProposal.
const proposalColumns = `id, target_webtoon_id, candidate_webtoon_id, creator_id, result`

// ProposalRepo implements domain.ProposalRepository backed by PostgreSQL.
type ProposalRepo struct {
	db Querier
}

// NewProposalRepo creates a ProposalRepo bound to the shared pool.
func NewProposalRepo(pool *pgxpool.Pool) *ProposalRepo {
	return &ProposalRepo{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ProposalRepo) WithTx(tx pgx.Tx) *ProposalRepo {
	return &ProposalRepo{db: tx}
}

func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	var p domain.Proposal
	err := row.Scan(&p.ID, &p.TargetWebtoonID, &p.CandidateWebtoonID, &p.CreatorID, &p.Result)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a proposal. The unique constraint on the webtoon pair is
// the real guard against concurrent duplicate submissions.
func (r *ProposalRepo) Create(ctx context.Context, creatorID uuid.UUID, targetID, candidateID int64) (*domain.Proposal, error) {
	p, err := scanProposal(r.db.QueryRow(ctx, `
		INSERT INTO proposals (target_webtoon_id, candidate_webtoon_id, creator_id)
		VALUES ($1, $2, $3)
		RETURNING `+proposalColumns,
		targetID, candidateID, creatorID))
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicateProposal
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}
	return p, nil
}

func (r *ProposalRepo) ExistsByPair(ctx context.Context, targetID, candidateID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM proposals
			WHERE target_webtoon_id = $1 AND candidate_webtoon_id = $2
		)`, targetID, candidateID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check proposal pair: %w", err)
	}
	return exists, nil
}

func (r *ProposalRepo) GetByID(ctx context.Context, proposalID int64) (*domain.Proposal, error) {
	p, err := scanProposal(r.db.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, proposalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return p, nil
}

// Delete removes the proposal row; votes cascade via the foreign key.
func (r *ProposalRepo) Delete(ctx context.Context, proposalID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM proposals WHERE id = $1`, proposalID)
	if err != nil {
		return fmt.Errorf("failed to delete proposal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProposalNotFound
	}
	return nil
}

func (r *ProposalRepo) ListByTarget(ctx context.Context, targetID int64, page, size int) ([]domain.Proposal, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM proposals WHERE target_webtoon_id = $1`, targetID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count proposals: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+proposalColumns+`
		FROM proposals
		WHERE target_webtoon_id = $1
		ORDER BY result DESC, id DESC
		LIMIT $2 OFFSET $3`,
		targetID, size, page*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	proposals, err := collectProposals(rows)
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (r *ProposalRepo) ListTop(ctx context.Context, size int) ([]domain.Proposal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+proposalColumns+`
		FROM proposals
		ORDER BY result DESC, id DESC
		LIMIT $1`,
		size)
	if err != nil {
		return nil, fmt.Errorf("failed to list top proposals: %w", err)
	}
	defer rows.Close()

	return collectProposals(rows)
}

func (r *ProposalRepo) UpdateResult(ctx context.Context, proposalID, result int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE proposals SET result = $1 WHERE id = $2`, result, proposalID)
	if err != nil {
		return fmt.Errorf("failed to update proposal result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProposalNotFound
	}
	return nil
}

func collectProposals(rows pgx.Rows) ([]domain.Proposal, error) {
	var proposals []domain.Proposal
	for rows.Next() {
		var p domain.Proposal
		if err := rows.Scan(&p.ID, &p.TargetWebtoonID, &p.CandidateWebtoonID, &p.CreatorID, &p.Result); err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proposals: %w", err)
	}
	return proposals, nil
}
