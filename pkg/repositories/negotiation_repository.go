package repositories

import (
	"context"
	"fmt"

	"github.com/dealshield-inc/dealshield-engine/pkg/database"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// NegotiationRepository records generated negotiation messages. Persistence
// here is best-effort from the caller's perspective; the generated text is
// returned to the user regardless of whether the record lands.
type NegotiationRepository interface {
	Insert(ctx context.Context, msg *models.NegotiationMessage) error
}

type negotiationRepository struct {
	db *database.DB
}

// NewNegotiationRepository creates a new NegotiationRepository.
func NewNegotiationRepository(db *database.DB) NegotiationRepository {
	return &negotiationRepository{db: db}
}

var _ NegotiationRepository = (*negotiationRepository)(nil)

func (r *negotiationRepository) Insert(ctx context.Context, msg *models.NegotiationMessage) error {
	query := `
		INSERT INTO negotiation_messages (report_id, user_id, message, brand_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		msg.ReportID, msg.UserID, msg.Message, msg.BrandName,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert negotiation message: %w", err)
	}

	return nil
}
