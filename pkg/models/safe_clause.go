package models

import (
	"time"

	"github.com/google/uuid"
)

// SafeClause is an AI-rewritten replacement for a risky clause.
// At most one row exists per issue; a pre-existing row short-circuits
// regeneration.
type SafeClause struct {
	ID             uuid.UUID `json:"id"`
	ReportID       uuid.UUID `json:"report_id"`
	IssueID        uuid.UUID `json:"issue_id"`
	OriginalClause string    `json:"original_clause,omitempty"`
	SafeClause     string    `json:"safe_clause"`
	Explanation    string    `json:"explanation,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
