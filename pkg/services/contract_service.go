package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/auth"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
	"github.com/dealshield-inc/dealshield-engine/pkg/render"
	"github.com/dealshield-inc/dealshield-engine/pkg/repositories"
	"github.com/dealshield-inc/dealshield-engine/pkg/storage"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ScratchContractOutcome is the result of generating a contract from
// scratch for a deal. DatabaseUpdated is false when the artifact write
// back to the deal row failed; the generated file is still served.
type ScratchContractOutcome struct {
	ContractDocxURL string
	FileName        string
	ContentType     string
	ContractVersion int
	DatabaseUpdated bool
}

// ContractService generates contract documents: safe rewrites of analyzed
// contracts, from-scratch drafts for deals, and their DOCX/PDF renditions.
type ContractService struct {
	jobs      JobRunner
	reports   *ReportService
	deals     repositories.DealRepository
	renderer  render.ContractRenderer
	store     storage.ObjectStore
	urlExpiry time.Duration
	logger    *zap.Logger
}

// NewContractService creates a ContractService. renderer may be nil when no
// document converter is configured; generation endpoints that need one then
// fail with render.ErrRendererUnavailable.
func NewContractService(jobRunner JobRunner, reports *ReportService, deals repositories.DealRepository, renderer render.ContractRenderer, store storage.ObjectStore, urlExpiry time.Duration, logger *zap.Logger) *ContractService {
	return &ContractService{
		jobs:      jobRunner,
		reports:   reports,
		deals:     deals,
		renderer:  renderer,
		store:     store,
		urlExpiry: urlExpiry,
		logger:    logger.Named("contract_service"),
	}
}

// GenerateSafeContract rewrites an analyzed contract with its issues
// resolved and returns the result as HTML.
func (s *ContractService) GenerateSafeContract(ctx context.Context, reportID uuid.UUID, callerID, callerRole string) (string, error) {
	report, err := s.reports.GetAuthorized(ctx, reportID, callerID, callerRole)
	if err != nil {
		return "", err
	}
	if report.ContractFileURL == "" {
		return "", NewValidationError("Contract file path missing")
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(report.AnalysisJSON, &result); err != nil {
		return "", fmt.Errorf("failed to decode stored analysis: %w", err)
	}

	payload := safeContractPayload{
		ContractURL: report.ContractFileURL,
		Issues:      result.Issues,
		BrandName:   report.BrandDetected,
	}
	if report.Deal != nil {
		payload.CreatorName = report.Deal.CreatorName
	}

	raw, err := s.jobs.Await(ctx, JobKindSafeContract, payload)
	if err != nil {
		return "", err
	}
	var contract ContractResult
	if err := json.Unmarshal(raw, &contract); err != nil {
		return "", fmt.Errorf("failed to decode safe contract result: %w", err)
	}
	return contract.ContractHTML, nil
}

// GenerateFromScratch drafts a brand-new contract for a deal, renders it as
// DOCX, stores the file, and writes the artifacts back onto the deal.
func (s *ContractService) GenerateFromScratch(ctx context.Context, dealID uuid.UUID, callerID, callerRole string) (*ScratchContractOutcome, error) {
	deal, err := s.deals.Get(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.CreatorID != callerID && callerRole != auth.RoleAdmin {
		return nil, apperrors.ErrAccessDenied
	}

	if missing := missingCounterpartFields(deal); len(missing) > 0 {
		return nil, &ValidationError{
			Message:       "Missing required fields for contract generation",
			MissingFields: missing,
		}
	}
	if s.renderer == nil {
		return nil, render.ErrRendererUnavailable
	}

	payload := scratchContractPayload{
		BrandName:      deal.BrandName,
		BrandAddress:   deal.BrandAddress,
		BrandEmail:     deal.BrandEmail,
		CreatorName:    deal.CreatorName,
		CreatorAddress: deal.CreatorAddress,
		CreatorEmail:   deal.CreatorEmail,
	}
	raw, err := s.jobs.Await(ctx, JobKindContractFromScratch, payload)
	if err != nil {
		return nil, err
	}
	var contract ContractResult
	if err := json.Unmarshal(raw, &contract); err != nil {
		return nil, fmt.Errorf("failed to decode generated contract: %w", err)
	}

	version := deal.ContractVersion + 1
	title := fmt.Sprintf("Brand Deal Agreement: %s x %s", deal.BrandName, deal.CreatorName)
	docx, err := s.renderer.RenderContractDocx(ctx, title, htmlToText(contract.ContractHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to render contract docx: %w", err)
	}

	objectName := fmt.Sprintf("contracts/%s-v%d.docx", dealID, version)
	if err := s.store.Upload(ctx, objectName, docx, docxContentType); err != nil {
		return nil, fmt.Errorf("failed to store generated contract: %w", err)
	}
	url, err := s.store.PresignedURL(ctx, objectName, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign contract URL: %w", err)
	}

	outcome := &ScratchContractOutcome{
		ContractDocxURL: url,
		FileName:        fmt.Sprintf("contract-%s-v%d.docx", dealID, version),
		ContentType:     docxContentType,
		ContractVersion: version,
		DatabaseUpdated: true,
	}
	if err := s.deals.UpdateContractArtifacts(ctx, dealID, contract.ContractHTML, &objectName, nil, version); err != nil {
		s.logger.Error("failed to record contract artifacts on deal",
			zap.String("deal_id", dealID.String()), zap.Error(err))
		outcome.DatabaseUpdated = false
	}
	return outcome, nil
}

// RenderDocx turns contract HTML into DOCX bytes for direct download.
func (s *ContractService) RenderDocx(ctx context.Context, contractHTML, fileName string) ([]byte, string, error) {
	if strings.TrimSpace(contractHTML) == "" {
		return nil, "", NewValidationError("contractHtml is required")
	}
	if s.renderer == nil {
		return nil, "", render.ErrRendererUnavailable
	}
	if fileName == "" {
		fileName = "contract.docx"
	}
	docx, err := s.renderer.RenderContractDocx(ctx, "Brand Deal Agreement", htmlToText(contractHTML))
	if err != nil {
		return nil, "", fmt.Errorf("failed to render contract docx: %w", err)
	}
	return docx, fileName, nil
}

// DealDocx serves the stored generated contract for a deal as DOCX bytes.
// Unauthenticated by design; the gate is the deal status.
func (s *ContractService) DealDocx(ctx context.Context, dealID uuid.UUID) ([]byte, string, error) {
	deal, err := s.deals.Get(ctx, dealID)
	if err != nil {
		return nil, "", err
	}
	if deal.Status != models.DealStatusAcceptedVerified {
		return nil, "", apperrors.ErrDealNotViewable
	}
	if deal.ContractHTML == nil || *deal.ContractHTML == "" {
		return nil, "", apperrors.ErrNotGenerated
	}
	if s.renderer == nil {
		return nil, "", render.ErrRendererUnavailable
	}

	title := fmt.Sprintf("Brand Deal Agreement: %s x %s", deal.BrandName, deal.CreatorName)
	docx, err := s.renderer.RenderContractDocx(ctx, title, htmlToText(*deal.ContractHTML))
	if err != nil {
		return nil, "", fmt.Errorf("failed to render contract docx: %w", err)
	}
	return docx, fmt.Sprintf("contract-%s-v%d.docx", dealID, deal.ContractVersion), nil
}

// DealView returns the contract HTML for inline viewing, or a presigned
// PDF URL to redirect to when only the PDF artifact exists.
func (s *ContractService) DealView(ctx context.Context, dealID uuid.UUID) (html string, redirectURL string, err error) {
	deal, err := s.deals.Get(ctx, dealID)
	if err != nil {
		return "", "", err
	}
	if deal.Status == models.DealStatusDraft {
		return "", "", apperrors.ErrDealNotViewable
	}

	if deal.ContractHTML != nil && *deal.ContractHTML != "" {
		return *deal.ContractHTML, "", nil
	}
	if deal.ContractPDFURL != nil && *deal.ContractPDFURL != "" {
		url, err := s.store.PresignedURL(ctx, *deal.ContractPDFURL, s.urlExpiry)
		if err != nil {
			return "", "", fmt.Errorf("failed to sign contract pdf URL: %w", err)
		}
		return "", url, nil
	}
	return "", "", apperrors.ErrNotGenerated
}

// missingCounterpartFields lists the counterpart fields a from-scratch
// generation still needs. The names match the client's form field names.
func missingCounterpartFields(deal *models.Deal) []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("brandName", deal.BrandName)
	check("brandAddress", deal.BrandAddress)
	check("brandEmail", deal.BrandEmail)
	check("creatorName", deal.CreatorName)
	check("creatorAddress", deal.CreatorAddress)
	check("creatorEmail", deal.CreatorEmail)
	return missing
}

// htmlToText flattens generated contract HTML into plain paragraphs for
// the document renderers. Block-level closers become line breaks.
func htmlToText(html string) string {
	var sb strings.Builder
	var tag strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>' && inTag:
			inTag = false
			name := strings.ToLower(strings.TrimSpace(tag.String()))
			switch name {
			case "/p", "/h1", "/h2", "/h3", "/li", "br", "br/":
				sb.WriteString("\n")
			}
		case inTag:
			tag.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	text := sb.String()
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = strings.ReplaceAll(text, "&#39;", "'")
	return strings.TrimSpace(text)
}
