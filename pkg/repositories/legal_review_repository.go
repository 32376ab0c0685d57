package repositories

import (
	"context"
	"fmt"

	"github.com/dealshield-inc/dealshield-engine/pkg/database"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// LegalReviewRepository records requests for human legal review.
type LegalReviewRepository interface {
	Insert(ctx context.Context, req *models.LegalReviewRequest) error
}

type legalReviewRepository struct {
	db *database.DB
}

// NewLegalReviewRepository creates a new LegalReviewRepository.
func NewLegalReviewRepository(db *database.DB) LegalReviewRepository {
	return &legalReviewRepository{db: db}
}

var _ LegalReviewRepository = (*legalReviewRepository)(nil)

func (r *legalReviewRepository) Insert(ctx context.Context, req *models.LegalReviewRequest) error {
	query := `
		INSERT INTO legal_review_requests (report_id, user_id, notes, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	if req.Status == "" {
		req.Status = "pending"
	}

	err := r.db.QueryRow(ctx, query,
		req.ReportID, req.UserID, req.Notes, req.Status,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert legal review request: %w", err)
	}

	return nil
}
