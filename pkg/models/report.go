package models

import (
	"time"

	"github.com/google/uuid"
)

// Risk levels for a contract report. Values are canonical; raw AI output
// is normalized into this set before anything is persisted.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Issue severities. "warning" marks a missing clause rather than a risky one.
const (
	SeverityHigh    = "high"
	SeverityMedium  = "medium"
	SeverityWarning = "warning"
)

// AnalysisResult is the structured outcome of one contract analysis.
// It is embedded verbatim into ContractReport.AnalysisJSON and never
// mutated after creation, except for the db_id back-fill on issues.
type AnalysisResult struct {
	ProtectionScore          float64          `json:"protectionScore"`
	OverallRisk              string           `json:"overallRisk"`
	NegotiationPowerScore    float64          `json:"negotiationPowerScore,omitempty"`
	DocumentType             string           `json:"documentType,omitempty"`
	DetectedContractCategory string           `json:"detectedContractCategory,omitempty"`
	BrandDetected            string           `json:"brandDetected,omitempty"`
	Summary                  string           `json:"summary,omitempty"`
	Issues                   []AnalysisIssue  `json:"issues"`
	Verified                 []VerifiedClause `json:"verified"`
}

// AnalysisIssue is one detected contract risk inside an AnalysisResult.
// DBID is back-filled in memory after the child rows are inserted so the
// response payload carries stable ids for per-issue operations; the stored
// analysis_json is not updated to include it.
type AnalysisIssue struct {
	DBID            *uuid.UUID `json:"db_id,omitempty"`
	Severity        string     `json:"severity"`
	Category        string     `json:"category,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	ClauseReference string     `json:"clauseReference,omitempty"`
	Recommendation  string     `json:"recommendation,omitempty"`
}

// VerifiedClause is one contract clause confirmed as acceptable.
type VerifiedClause struct {
	Category        string `json:"category,omitempty"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	ClauseReference string `json:"clauseReference,omitempty"`
}

// ContractReport is the persisted outcome of one contract analysis,
// optionally linked to a Deal. UserID is nullable because the backing
// column may be missing in degraded deployments.
type ContractReport struct {
	ID                       uuid.UUID  `json:"id"`
	DealID                   *uuid.UUID `json:"deal_id,omitempty"`
	UserID                   *string    `json:"user_id,omitempty"`
	ContractFileURL          string     `json:"contract_file_url"`
	PDFReportURL             *string    `json:"pdf_report_url,omitempty"`
	ProtectionScore          float64    `json:"protection_score"`
	OverallRisk              string     `json:"overall_risk"`
	AnalysisJSON             []byte     `json:"-"`
	DocumentType             string     `json:"document_type,omitempty"`
	DetectedContractCategory string     `json:"detected_contract_category,omitempty"`
	BrandDetected            string     `json:"brand_detected,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`

	// Deal is populated by joins when ownership resolution needs it.
	Deal *Deal `json:"-"`
}

// ReportIssue is a child row of a ContractReport. Insertion order is
// preserved so index-based lookup from the UI stays stable.
type ReportIssue struct {
	ID              uuid.UUID `json:"id"`
	ReportID        uuid.UUID `json:"report_id"`
	Position        int       `json:"position"`
	Severity        string    `json:"severity"`
	Category        string    `json:"category,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	ClauseReference string    `json:"clause_reference,omitempty"`
	Recommendation  string    `json:"recommendation,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// VerifiedItem is a child row of a ContractReport, no severity.
type VerifiedItem struct {
	ID              uuid.UUID `json:"id"`
	ReportID        uuid.UUID `json:"report_id"`
	Position        int       `json:"position"`
	Category        string    `json:"category,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	ClauseReference string    `json:"clause_reference,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
