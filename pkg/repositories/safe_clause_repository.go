package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/database"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// SafeClauseRepository provides data access for generated safe clause
// rewrites. Lookups key on the issue the rewrite was generated for.
type SafeClauseRepository interface {
	GetByIssueID(ctx context.Context, issueID uuid.UUID) (*models.SafeClause, error)
	Insert(ctx context.Context, clause *models.SafeClause) error
}

type safeClauseRepository struct {
	db *database.DB
}

// NewSafeClauseRepository creates a new SafeClauseRepository.
func NewSafeClauseRepository(db *database.DB) SafeClauseRepository {
	return &safeClauseRepository{db: db}
}

var _ SafeClauseRepository = (*safeClauseRepository)(nil)

func (r *safeClauseRepository) GetByIssueID(ctx context.Context, issueID uuid.UUID) (*models.SafeClause, error) {
	query := `
		SELECT id, report_id, issue_id, original_clause, safe_clause, explanation, created_at
		FROM safe_clauses
		WHERE issue_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var clause models.SafeClause
	err := r.db.QueryRow(ctx, query, issueID).Scan(
		&clause.ID, &clause.ReportID, &clause.IssueID,
		&clause.OriginalClause, &clause.SafeClause, &clause.Explanation,
		&clause.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get safe clause: %w", err)
	}

	return &clause, nil
}

func (r *safeClauseRepository) Insert(ctx context.Context, clause *models.SafeClause) error {
	query := `
		INSERT INTO safe_clauses (report_id, issue_id, original_clause, safe_clause, explanation)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		clause.ReportID, clause.IssueID,
		clause.OriginalClause, clause.SafeClause, clause.Explanation,
	).Scan(&clause.ID, &clause.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert safe clause: %w", err)
	}

	return nil
}
