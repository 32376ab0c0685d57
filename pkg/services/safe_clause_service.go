package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
	"github.com/dealshield-inc/dealshield-engine/pkg/repositories"
)

// FixRequest identifies the issue to rewrite. Either IssueID is a full
// UUID, or ReportID plus one of IssueIndex/OriginalClause selects the
// issue by position or clause text.
type FixRequest struct {
	IssueID        string `json:"issueId"`
	ReportID       string `json:"reportId"`
	IssueIndex     *int   `json:"issueIndex"`
	OriginalClause string `json:"originalClause"`
}

// SafeClauseService generates creator-safe rewrites of risky clauses.
// Generation is idempotent per issue; the executor's fast path returns
// the stored rewrite without touching the model again.
type SafeClauseService struct {
	jobs    JobRunner
	reports *ReportService
	issues  repositories.ReportRepository
	logger  *zap.Logger
}

// NewSafeClauseService creates a SafeClauseService.
func NewSafeClauseService(jobRunner JobRunner, reports *ReportService, issues repositories.ReportRepository, logger *zap.Logger) *SafeClauseService {
	return &SafeClauseService{
		jobs:    jobRunner,
		reports: reports,
		issues:  issues,
		logger:  logger.Named("safe_clause_service"),
	}
}

// GenerateFix resolves the target issue, re-checks report access, and
// returns the rewrite.
func (s *SafeClauseService) GenerateFix(ctx context.Context, req *FixRequest, callerID, callerRole string) (*FixResult, error) {
	issue, err := s.resolveIssue(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, err := s.reports.GetAuthorized(ctx, issue.ReportID, callerID, callerRole); err != nil {
		return nil, err
	}

	payload := fixPayload{
		IssueID:         issue.ID,
		ReportID:        issue.ReportID,
		OriginalClause:  req.OriginalClause,
		Severity:        issue.Severity,
		Title:           issue.Title,
		Description:     issue.Description,
		Recommendation:  issue.Recommendation,
		ClauseReference: issue.ClauseReference,
	}
	if payload.OriginalClause == "" {
		payload.OriginalClause = issue.ClauseReference
	}

	raw, err := s.jobs.Await(ctx, JobKindGenerateFix, payload)
	if err != nil {
		return nil, err
	}
	var result FixResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode safe clause result: %w", err)
	}
	return &result, nil
}

// resolveIssue finds the issue by UUID, or by report plus index or clause
// text with issues ordered by creation time ascending.
func (s *SafeClauseService) resolveIssue(ctx context.Context, req *FixRequest) (*models.ReportIssue, error) {
	if issueID, err := uuid.Parse(req.IssueID); err == nil && req.IssueID != "" {
		issue, err := s.issues.GetIssue(ctx, issueID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.ErrNotFound
			}
			return nil, fmt.Errorf("failed to load issue: %w", err)
		}
		return issue, nil
	}

	reportID, err := uuid.Parse(req.ReportID)
	if err != nil || (req.IssueIndex == nil && req.OriginalClause == "") {
		return nil, NewValidationError("issueId (UUID) or (reportId + issueIndex/originalClause) required")
	}

	issues, err := s.issues.GetIssues(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load report issues: %w", err)
	}

	if req.IssueIndex != nil {
		if *req.IssueIndex < 0 || *req.IssueIndex >= len(issues) {
			return nil, apperrors.ErrNotFound
		}
		return &issues[*req.IssueIndex], nil
	}

	want := strings.TrimSpace(req.OriginalClause)
	for i := range issues {
		if strings.TrimSpace(issues[i].ClauseReference) == want || strings.TrimSpace(issues[i].Title) == want {
			return &issues[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}
