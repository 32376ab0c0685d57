package models

import (
	"time"

	"github.com/google/uuid"
)

// NegotiationMessage is a persisted negotiation draft. ReportID is
// nullable: drafts can be written outside a report context.
type NegotiationMessage struct {
	ID        uuid.UUID  `json:"id"`
	ReportID  *uuid.UUID `json:"report_id,omitempty"`
	UserID    string     `json:"user_id"`
	Message   string     `json:"message"`
	BrandName string     `json:"brand_name,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// LegalReviewRequest records a request to have a report reviewed by a human.
type LegalReviewRequest struct {
	ID        uuid.UUID `json:"id"`
	ReportID  uuid.UUID `json:"report_id"`
	UserID    string    `json:"user_id"`
	Notes     string    `json:"notes,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
