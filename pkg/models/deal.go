package models

import (
	"time"

	"github.com/google/uuid"
)

// Deal statuses relevant to contract serving. Only accepted_verified deals
// expose their generated contract on the unauthenticated share endpoints.
const (
	DealStatusDraft            = "draft"
	DealStatusAcceptedVerified = "accepted_verified"
)

// Deal represents a brand collaboration. It anchors report ownership via
// CreatorID and carries the generated contract artifacts plus the
// counterpart fields used by contract generation.
type Deal struct {
	ID        uuid.UUID `json:"id"`
	CreatorID string    `json:"creator_id"`
	Status    string    `json:"status"`

	BrandName    string `json:"brand_name,omitempty"`
	BrandAddress string `json:"brand_address,omitempty"`
	BrandEmail   string `json:"brand_email,omitempty"`

	CreatorName    string `json:"creator_name,omitempty"`
	CreatorAddress string `json:"creator_address,omitempty"`
	CreatorEmail   string `json:"creator_email,omitempty"`

	ContractHTML    *string   `json:"contract_html,omitempty"`
	ContractDocxURL *string   `json:"contract_docx_url,omitempty"`
	ContractPDFURL  *string   `json:"contract_pdf_url,omitempty"`
	ContractVersion int       `json:"contract_version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
