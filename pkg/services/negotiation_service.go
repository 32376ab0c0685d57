package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/mailer"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
	"github.com/dealshield-inc/dealshield-engine/pkg/repositories"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NegotiationService drafts negotiation emails from a report's issues and
// handles sending plus legal-review requests.
type NegotiationService struct {
	jobs         JobRunner
	reports      *ReportService
	issues       repositories.ReportRepository
	negotiations repositories.NegotiationRepository
	legalReviews repositories.LegalReviewRepository
	mail         mailer.Mailer
	reviewInbox  string
	logger       *zap.Logger
}

// NewNegotiationService creates a NegotiationService. reviewInbox receives
// legal-review notifications; empty disables them.
func NewNegotiationService(jobRunner JobRunner, reports *ReportService, issues repositories.ReportRepository, negotiations repositories.NegotiationRepository, legalReviews repositories.LegalReviewRepository, mail mailer.Mailer, reviewInbox string, logger *zap.Logger) *NegotiationService {
	return &NegotiationService{
		jobs:         jobRunner,
		reports:      reports,
		issues:       issues,
		negotiations: negotiations,
		legalReviews: legalReviews,
		mail:         mail,
		reviewInbox:  reviewInbox,
		logger:       logger.Named("negotiation_service"),
	}
}

// GenerateMessage drafts a negotiation email for a report. Issues split
// into risky clauses (high/medium) and missing protections (warning);
// a report with neither is a caller error. The draft is persisted
// best-effort and returned regardless.
func (s *NegotiationService) GenerateMessage(ctx context.Context, reportID uuid.UUID, brandName, callerID, callerRole string) (string, error) {
	report, err := s.reports.GetAuthorized(ctx, reportID, callerID, callerRole)
	if err != nil {
		return "", err
	}

	issues, err := s.issues.GetIssues(ctx, reportID)
	if err != nil {
		return "", fmt.Errorf("failed to load report issues: %w", err)
	}

	var risky, missing []string
	for _, issue := range issues {
		line := issue.Title
		if issue.Recommendation != "" {
			line += ": " + issue.Recommendation
		}
		if issue.Severity == models.SeverityWarning {
			missing = append(missing, line)
		} else {
			risky = append(risky, line)
		}
	}
	if len(risky) == 0 && len(missing) == 0 {
		return "", NewValidationError("No issues found to negotiate")
	}

	if brandName == "" {
		brandName = report.BrandDetected
	}
	payload := negotiationPayload{
		RiskyClauses:   risky,
		MissingClauses: missing,
		BrandName:      brandName,
	}
	raw, err := s.jobs.Await(ctx, JobKindNegotiationMessage, payload)
	if err != nil {
		return "", err
	}
	var result NegotiationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode negotiation message: %w", err)
	}

	msg := &models.NegotiationMessage{
		ReportID:  &reportID,
		UserID:    callerID,
		Message:   result.Message,
		BrandName: brandName,
	}
	if err := s.negotiations.Insert(ctx, msg); err != nil {
		s.logger.Error("failed to persist negotiation message",
			zap.String("report_id", reportID.String()), zap.Error(err))
	}

	return result.Message, nil
}

// SendEmail delivers a drafted negotiation message. When the draft was
// made against a report the access rule is re-checked before sending.
func (s *NegotiationService) SendEmail(ctx context.Context, reportID *uuid.UUID, toEmail, message, callerID, callerRole string) error {
	if !emailPattern.MatchString(toEmail) {
		return NewValidationError("Invalid email address")
	}
	if message == "" {
		return NewValidationError("message is required")
	}

	if reportID != nil {
		if _, err := s.reports.GetAuthorized(ctx, *reportID, callerID, callerRole); err != nil {
			return err
		}
	}

	if err := s.mail.Send(ctx, toEmail, "Contract discussion", message); err != nil {
		return fmt.Errorf("failed to send negotiation email: %w", err)
	}
	return nil
}

// RequestLegalReview records a request for human review of a report.
// Persistence and notification are both soft; the caller always gets an
// acknowledgement once access checks pass.
func (s *NegotiationService) RequestLegalReview(ctx context.Context, reportID uuid.UUID, notes, callerID, callerRole string) error {
	if _, err := s.reports.GetAuthorized(ctx, reportID, callerID, callerRole); err != nil {
		return err
	}

	req := &models.LegalReviewRequest{
		ReportID: reportID,
		UserID:   callerID,
		Notes:    notes,
	}
	if err := s.legalReviews.Insert(ctx, req); err != nil {
		s.logger.Error("failed to persist legal review request",
			zap.String("report_id", reportID.String()), zap.Error(err))
	}

	if s.reviewInbox != "" {
		body := fmt.Sprintf("Legal review requested for report %s by user %s.\n\nNotes:\n%s", reportID, callerID, notes)
		if err := s.mail.Send(ctx, s.reviewInbox, "Legal review requested", body); err != nil {
			s.logger.Error("failed to send legal review notification", zap.Error(err))
		}
	}
	return nil
}
