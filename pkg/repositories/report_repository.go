package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/database"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// pgUndefinedColumn is the PostgreSQL error code for a missing column.
const pgUndefinedColumn = "42703"

// ReportRepository provides data access for contract reports and their
// child rows. Insert tolerates schema drift on the optional user_id
// column: the full payload is attempted first, and on a typed
// unknown-column failure exactly that field is dropped and the insert
// retried once.
type ReportRepository interface {
	Insert(ctx context.Context, report *models.ContractReport) error
	Get(ctx context.Context, id uuid.UUID) (*models.ContractReport, error)
	UpdatePDFReportURL(ctx context.Context, id uuid.UUID, pdfURL string) error
	MarkSaved(ctx context.Context, id uuid.UUID) (alreadySaved bool, err error)
	InsertIssues(ctx context.Context, issues []models.ReportIssue) ([]uuid.UUID, error)
	InsertVerifiedItems(ctx context.Context, items []models.VerifiedItem) error
	GetIssues(ctx context.Context, reportID uuid.UUID) ([]models.ReportIssue, error)
	GetIssue(ctx context.Context, issueID uuid.UUID) (*models.ReportIssue, error)
}

type reportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *database.DB) ReportRepository {
	return &reportRepository{db: db}
}

var _ ReportRepository = (*reportRepository)(nil)

func (r *reportRepository) Insert(ctx context.Context, report *models.ContractReport) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.CreatedAt = time.Now()

	query := `
		INSERT INTO contract_reports (
			id, deal_id, user_id, contract_file_url, pdf_report_url,
			protection_score, overall_risk, analysis_json, document_type,
			detected_contract_category, brand_detected, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		report.ID, report.DealID, report.UserID, report.ContractFileURL, report.PDFReportURL,
		report.ProtectionScore, report.OverallRisk, report.AnalysisJSON, report.DocumentType,
		report.DetectedContractCategory, report.BrandDetected, report.CreatedAt,
	)
	if err == nil {
		return nil
	}

	if !isMissingUserIDColumn(err) {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	// Deployments migrated before user ownership was added lack the
	// user_id column; retry once without it.
	fallback := `
		INSERT INTO contract_reports (
			id, deal_id, contract_file_url, pdf_report_url,
			protection_score, overall_risk, analysis_json, document_type,
			detected_contract_category, brand_detected, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, fallback,
		report.ID, report.DealID, report.ContractFileURL, report.PDFReportURL,
		report.ProtectionScore, report.OverallRisk, report.AnalysisJSON, report.DocumentType,
		report.DetectedContractCategory, report.BrandDetected, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report without user_id: %w", err)
	}

	report.UserID = nil
	return nil
}

// isMissingUserIDColumn reports whether an insert failed because the
// user_id column does not exist. The typed PgError check comes first;
// the string signatures cover errors that arrive through intermediaries
// (connection poolers, REST gateways) stripped of their code.
func isMissingUserIDColumn(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedColumn && strings.Contains(pgErr.Message, "user_id")
	}

	msg := err.Error()
	if strings.Contains(msg, `column "user_id"`) {
		return true
	}
	if strings.Contains(msg, "user_id") && (strings.Contains(msg, pgUndefinedColumn) || strings.Contains(msg, "PGRST116")) {
		return true
	}
	return false
}

func (r *reportRepository) Get(ctx context.Context, id uuid.UUID) (*models.ContractReport, error) {
	query := `
		SELECT r.id, r.deal_id, r.user_id, r.contract_file_url, r.pdf_report_url,
		       r.protection_score, r.overall_risk, r.analysis_json, r.document_type,
		       r.detected_contract_category, r.brand_detected, r.created_at,
		       d.id, d.creator_id, d.status
		FROM contract_reports r
		LEFT JOIN deals d ON d.id = r.deal_id
		WHERE r.id = $1`

	var report models.ContractReport
	var dealID *uuid.UUID
	var dealCreatorID, dealStatus *string

	err := r.db.QueryRow(ctx, query, id).Scan(
		&report.ID, &report.DealID, &report.UserID, &report.ContractFileURL, &report.PDFReportURL,
		&report.ProtectionScore, &report.OverallRisk, &report.AnalysisJSON, &report.DocumentType,
		&report.DetectedContractCategory, &report.BrandDetected, &report.CreatedAt,
		&dealID, &dealCreatorID, &dealStatus,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	if dealID != nil {
		report.Deal = &models.Deal{ID: *dealID}
		if dealCreatorID != nil {
			report.Deal.CreatorID = *dealCreatorID
		}
		if dealStatus != nil {
			report.Deal.Status = *dealStatus
		}
	}

	return &report, nil
}

func (r *reportRepository) UpdatePDFReportURL(ctx context.Context, id uuid.UUID, pdfURL string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE contract_reports SET pdf_report_url = $2 WHERE id = $1", id, pdfURL)
	if err != nil {
		return fmt.Errorf("failed to update pdf_report_url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *reportRepository) MarkSaved(ctx context.Context, id uuid.UUID) (bool, error) {
	// The CTE reads the pre-statement snapshot, so prev.saved reports
	// whether the report had already been saved before this call.
	query := `
		WITH prev AS (SELECT saved FROM contract_reports WHERE id = $1)
		UPDATE contract_reports r
		SET saved = true
		FROM prev
		WHERE r.id = $1
		RETURNING prev.saved`

	var alreadySaved bool
	err := r.db.QueryRow(ctx, query, id).Scan(&alreadySaved)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, apperrors.ErrNotFound
		}
		return false, fmt.Errorf("failed to mark report saved: %w", err)
	}
	return alreadySaved, nil
}

func (r *reportRepository) InsertIssues(ctx context.Context, issues []models.ReportIssue) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(issues))

	// Sequential inserts keep insertion order aligned with issue position,
	// which index-based lookup depends on.
	for i := range issues {
		issue := &issues[i]
		if issue.ID == uuid.Nil {
			issue.ID = uuid.New()
		}
		issue.Position = i
		issue.CreatedAt = time.Now()

		_, err := r.db.Exec(ctx, `
			INSERT INTO report_issues (
				id, report_id, position, severity, category, title,
				description, clause_reference, recommendation, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			issue.ID, issue.ReportID, issue.Position, issue.Severity, issue.Category,
			issue.Title, issue.Description, issue.ClauseReference, issue.Recommendation,
			issue.CreatedAt,
		)
		if err != nil {
			return ids, fmt.Errorf("failed to insert issue %d: %w", i, err)
		}
		ids = append(ids, issue.ID)
	}

	return ids, nil
}

func (r *reportRepository) InsertVerifiedItems(ctx context.Context, items []models.VerifiedItem) error {
	for i := range items {
		item := &items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.Position = i
		item.CreatedAt = time.Now()

		_, err := r.db.Exec(ctx, `
			INSERT INTO report_verified_items (
				id, report_id, position, category, title,
				description, clause_reference, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, item.ReportID, item.Position, item.Category,
			item.Title, item.Description, item.ClauseReference, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert verified item %d: %w", i, err)
		}
	}

	return nil
}

func (r *reportRepository) GetIssues(ctx context.Context, reportID uuid.UUID) ([]models.ReportIssue, error) {
	query := `
		SELECT id, report_id, position, severity, category, title,
		       description, clause_reference, recommendation, created_at
		FROM report_issues
		WHERE report_id = $1
		ORDER BY created_at ASC, position ASC`

	rows, err := r.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	var issues []models.ReportIssue
	for rows.Next() {
		var issue models.ReportIssue
		if err := rows.Scan(
			&issue.ID, &issue.ReportID, &issue.Position, &issue.Severity, &issue.Category,
			&issue.Title, &issue.Description, &issue.ClauseReference, &issue.Recommendation,
			&issue.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, issue)
	}

	return issues, rows.Err()
}

func (r *reportRepository) GetIssue(ctx context.Context, issueID uuid.UUID) (*models.ReportIssue, error) {
	query := `
		SELECT id, report_id, position, severity, category, title,
		       description, clause_reference, recommendation, created_at
		FROM report_issues
		WHERE id = $1`

	var issue models.ReportIssue
	err := r.db.QueryRow(ctx, query, issueID).Scan(
		&issue.ID, &issue.ReportID, &issue.Position, &issue.Severity, &issue.Category,
		&issue.Title, &issue.Description, &issue.ClauseReference, &issue.Recommendation,
		&issue.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}

	return &issue, nil
}
