package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
	"github.com/dealshield-inc/dealshield-engine/pkg/repositories"
	"github.com/dealshield-inc/dealshield-engine/pkg/storage"
)

// ReportService persists analysis results and resolves report access.
// Persistence is deliberately soft: an analysis that succeeded is always
// returned to the caller even when storage writes fail.
type ReportService struct {
	reports   repositories.ReportRepository
	store     storage.ObjectStore
	urlExpiry time.Duration
	logger    *zap.Logger
}

// NewReportService creates a ReportService.
func NewReportService(reports repositories.ReportRepository, store storage.ObjectStore, urlExpiry time.Duration, logger *zap.Logger) *ReportService {
	return &ReportService{
		reports:   reports,
		store:     store,
		urlExpiry: urlExpiry,
		logger:    logger.Named("report_service"),
	}
}

// SaveReport writes the normalized result plus its child rows and returns
// the new report id, or nil when persistence degraded. It never returns an
// error: every failure here is logged and swallowed so the analysis result
// still reaches the caller. Issue primary keys are back-filled onto
// result.Issues[].DBID; the stored analysis_json is left as produced.
func (s *ReportService) SaveReport(ctx context.Context, result *models.AnalysisResult, contractURL string, dealID *uuid.UUID, userID string) *uuid.UUID {
	analysisJSON, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("failed to marshal analysis result", zap.Error(err))
		return nil
	}

	report := &models.ContractReport{
		DealID:                   dealID,
		UserID:                   &userID,
		ContractFileURL:          contractURL,
		ProtectionScore:          result.ProtectionScore,
		OverallRisk:              result.OverallRisk,
		AnalysisJSON:             analysisJSON,
		DocumentType:             result.DocumentType,
		DetectedContractCategory: result.DetectedContractCategory,
		BrandDetected:            result.BrandDetected,
	}
	if err := s.reports.Insert(ctx, report); err != nil {
		s.logger.Error("failed to persist report, continuing without one", zap.Error(err))
		return nil
	}

	if len(result.Issues) > 0 {
		issues := make([]models.ReportIssue, len(result.Issues))
		for i, issue := range result.Issues {
			issues[i] = models.ReportIssue{
				ReportID:        report.ID,
				Position:        i,
				Severity:        issue.Severity,
				Category:        issue.Category,
				Title:           issue.Title,
				Description:     issue.Description,
				ClauseReference: issue.ClauseReference,
				Recommendation:  issue.Recommendation,
			}
		}
		ids, err := s.reports.InsertIssues(ctx, issues)
		if err != nil {
			s.logger.Error("failed to persist report issues",
				zap.String("report_id", report.ID.String()), zap.Error(err))
		} else {
			for i := range ids {
				id := ids[i]
				result.Issues[i].DBID = &id
			}
		}
	}

	if len(result.Verified) > 0 {
		items := make([]models.VerifiedItem, len(result.Verified))
		for i, v := range result.Verified {
			items[i] = models.VerifiedItem{
				ReportID:        report.ID,
				Position:        i,
				Category:        v.Category,
				Title:           v.Title,
				Description:     v.Description,
				ClauseReference: v.ClauseReference,
			}
		}
		if err := s.reports.InsertVerifiedItems(ctx, items); err != nil {
			s.logger.Error("failed to persist verified items",
				zap.String("report_id", report.ID.String()), zap.Error(err))
		}
	}

	return &report.ID
}

// GetAuthorized fetches a report and enforces the ownership rule for the
// given caller. The report is always re-fetched; prior access decisions
// are never reused.
func (s *ReportService) GetAuthorized(ctx context.Context, reportID uuid.UUID, callerID, callerRole string) (*models.ContractReport, error) {
	report, err := s.reports.Get(ctx, reportID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if !CanAccessReport(report, callerID, callerRole) {
		return nil, apperrors.ErrAccessDenied
	}
	return report, nil
}

// PDFDownloadURL returns a presigned URL for the report's generated PDF.
func (s *ReportService) PDFDownloadURL(ctx context.Context, report *models.ContractReport) (string, error) {
	if report.PDFReportURL == nil || *report.PDFReportURL == "" {
		return "", apperrors.ErrNotGenerated
	}
	url, err := s.store.PresignedURL(ctx, *report.PDFReportURL, s.urlExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign report download URL: %w", err)
	}
	return url, nil
}

// AttachPDF uploads rendered report bytes and records the object key on the
// report row. Failures are logged only; the analyze response simply omits
// the PDF URL.
func (s *ReportService) AttachPDF(ctx context.Context, reportID uuid.UUID, pdf []byte) *string {
	objectName := fmt.Sprintf("reports/%s.pdf", reportID)
	if err := s.store.Upload(ctx, objectName, pdf, "application/pdf"); err != nil {
		s.logger.Error("failed to upload report pdf",
			zap.String("report_id", reportID.String()), zap.Error(err))
		return nil
	}
	if err := s.reports.UpdatePDFReportURL(ctx, reportID, objectName); err != nil {
		s.logger.Error("failed to record report pdf url",
			zap.String("report_id", reportID.String()), zap.Error(err))
	}
	return &objectName
}

// Save marks a report as saved to the caller's library. Saving twice is
// allowed and reported distinctly so the client can keep its messaging.
func (s *ReportService) Save(ctx context.Context, reportID uuid.UUID, callerID, callerRole string) (string, error) {
	if _, err := s.GetAuthorized(ctx, reportID, callerID, callerRole); err != nil {
		return "", err
	}
	alreadySaved, err := s.reports.MarkSaved(ctx, reportID)
	if err != nil {
		s.logger.Error("failed to mark report saved",
			zap.String("report_id", reportID.String()), zap.Error(err))
		return "Report could not be saved, analysis remains available", nil
	}
	if alreadySaved {
		return "Report already saved", nil
	}
	return "Report saved", nil
}

// Issues returns a report's issues in insertion order after an access check.
func (s *ReportService) Issues(ctx context.Context, reportID uuid.UUID, callerID, callerRole string) ([]models.ReportIssue, error) {
	if _, err := s.GetAuthorized(ctx, reportID, callerID, callerRole); err != nil {
		return nil, err
	}
	issues, err := s.reports.GetIssues(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load report issues: %w", err)
	}
	return issues, nil
}
