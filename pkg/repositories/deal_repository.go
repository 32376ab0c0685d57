package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/database"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// DealRepository provides data access for deals. Deals are owned by the
// wider platform; this engine only reads them for ownership resolution
// and writes back generated contract artifacts.
type DealRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	UpdateContractArtifacts(ctx context.Context, id uuid.UUID, html string, docxURL, pdfURL *string, version int) error
}

type dealRepository struct {
	db *database.DB
}

// NewDealRepository creates a new DealRepository.
func NewDealRepository(db *database.DB) DealRepository {
	return &dealRepository{db: db}
}

var _ DealRepository = (*dealRepository)(nil)

func (r *dealRepository) Get(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	query := `
		SELECT id, creator_id, status,
		       COALESCE(brand_name, ''), COALESCE(brand_address, ''), COALESCE(brand_email, ''),
		       COALESCE(creator_name, ''), COALESCE(creator_address, ''), COALESCE(creator_email, ''),
		       contract_html, contract_docx_url, contract_pdf_url, contract_version,
		       created_at, updated_at
		FROM deals
		WHERE id = $1`

	var deal models.Deal
	err := r.db.QueryRow(ctx, query, id).Scan(
		&deal.ID, &deal.CreatorID, &deal.Status,
		&deal.BrandName, &deal.BrandAddress, &deal.BrandEmail,
		&deal.CreatorName, &deal.CreatorAddress, &deal.CreatorEmail,
		&deal.ContractHTML, &deal.ContractDocxURL, &deal.ContractPDFURL, &deal.ContractVersion,
		&deal.CreatedAt, &deal.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	return &deal, nil
}

func (r *dealRepository) UpdateContractArtifacts(ctx context.Context, id uuid.UUID, html string, docxURL, pdfURL *string, version int) error {
	query := `
		UPDATE deals
		SET contract_html = $2,
		    contract_docx_url = COALESCE($3, contract_docx_url),
		    contract_pdf_url = COALESCE($4, contract_pdf_url),
		    contract_version = $5,
		    updated_at = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, html, docxURL, pdfURL, version, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update deal contract artifacts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
