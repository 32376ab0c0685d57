package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/analysis"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
	"github.com/dealshield-inc/dealshield-engine/pkg/render"
)

// JobRunner is the slice of the jobs client the services depend on.
type JobRunner interface {
	Await(ctx context.Context, kind string, payload any) (json.RawMessage, error)
}

// AnalyzeOutcome is the result of one analyze request. ReportID and
// PDFReportURL are nil when the respective persistence step degraded;
// the analysis itself is always present on success.
type AnalyzeOutcome struct {
	Analysis     *models.AnalysisResult
	ReportID     *uuid.UUID
	PDFReportURL *string
}

// ProtectionService runs the contract-protection analysis pipeline:
// enqueue the analysis job, wait for the result, persist it, and attach
// the rendered PDF report.
type ProtectionService struct {
	jobs     JobRunner
	reports  *ReportService
	renderer render.ReportRenderer
	logger   *zap.Logger
}

// NewProtectionService creates a ProtectionService.
func NewProtectionService(jobRunner JobRunner, reports *ReportService, renderer render.ReportRenderer, logger *zap.Logger) *ProtectionService {
	return &ProtectionService{
		jobs:     jobRunner,
		reports:  reports,
		renderer: renderer,
		logger:   logger.Named("protection_service"),
	}
}

// Analyze runs a full contract analysis for the caller. Analysis failure is
// fatal to the request; persistence and PDF rendering failures degrade to
// nil fields on the outcome.
func (s *ProtectionService) Analyze(ctx context.Context, contractURL string, dealID *uuid.UUID, userID string) (*AnalyzeOutcome, error) {
	if contractURL == "" {
		return nil, analysis.NewValidationError("contract_url is required", "")
	}

	raw, err := s.jobs.Await(ctx, JobKindAnalyzeContract, analyzePayload{ContractURL: contractURL})
	if err != nil {
		return nil, err
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}

	outcome := &AnalyzeOutcome{Analysis: &result}
	outcome.ReportID = s.reports.SaveReport(ctx, &result, contractURL, dealID, userID)
	if outcome.ReportID == nil {
		return outcome, nil
	}

	report := &models.ContractReport{
		ID:              *outcome.ReportID,
		ProtectionScore: result.ProtectionScore,
		OverallRisk:     result.OverallRisk,
	}
	pdf, err := s.renderer.RenderReportPDF(ctx, report, &result)
	if err != nil {
		s.logger.Error("failed to render report pdf, continuing without one",
			zap.String("report_id", outcome.ReportID.String()), zap.Error(err))
		return outcome, nil
	}
	outcome.PDFReportURL = s.reports.AttachPDF(ctx, *outcome.ReportID, pdf)

	return outcome, nil
}
