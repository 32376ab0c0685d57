package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/analysis"
	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/jobs"
	"github.com/dealshield-inc/dealshield-engine/pkg/llm"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
	"github.com/dealshield-inc/dealshield-engine/pkg/repositories"
)

// Job kinds handled by the internal AI-job endpoint. One executor per kind;
// all five flow through the same jobs client.
const (
	JobKindAnalyzeContract     = "analyze-contract"
	JobKindGenerateFix         = "generate-fix"
	JobKindSafeContract        = "generate-safe-contract"
	JobKindContractFromScratch = "generate-contract-from-scratch"
	JobKindNegotiationMessage  = "generate-negotiation-message"
)

// RegisterExecutors binds every job kind to its executor.
func RegisterExecutors(registry *jobs.Registry, llmClient llm.Client, analyzer analysis.ContractAnalyzer, downloader *analysis.Downloader, safeClauses repositories.SafeClauseRepository, logger *zap.Logger) {
	registry.Register(JobKindAnalyzeContract, &analyzeExecutor{
		analyzer:   analyzer,
		downloader: downloader,
	})
	registry.Register(JobKindGenerateFix, &fixExecutor{
		llmClient:   llmClient,
		safeClauses: safeClauses,
		logger:      logger.Named("fix_executor"),
	})
	registry.Register(JobKindSafeContract, &safeContractExecutor{
		llmClient:  llmClient,
		downloader: downloader,
	})
	registry.Register(JobKindContractFromScratch, &scratchContractExecutor{llmClient: llmClient})
	registry.Register(JobKindNegotiationMessage, &negotiationExecutor{llmClient: llmClient})
}

// analyzePayload asks for a full contract analysis of a remote document.
type analyzePayload struct {
	ContractURL string `json:"contract_url"`
}

type analyzeExecutor struct {
	analyzer   analysis.ContractAnalyzer
	downloader *analysis.Downloader
}

func (e *analyzeExecutor) Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var req analyzePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid analyze payload: %w", err)
	}

	fileBytes, err := e.downloader.Fetch(ctx, req.ContractURL)
	if err != nil {
		return nil, err
	}
	result, err := e.analyzer.AnalyzeContract(ctx, fileBytes, req.ContractURL)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

// fixPayload carries everything the rewrite prompt needs so the executor
// never has to re-resolve the issue.
type fixPayload struct {
	IssueID         uuid.UUID `json:"issue_id"`
	ReportID        uuid.UUID `json:"report_id"`
	OriginalClause  string    `json:"original_clause"`
	Severity        string    `json:"severity"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Recommendation  string    `json:"recommendation"`
	ClauseReference string    `json:"clause_reference"`
}

type FixResult struct {
	SafeClause  string `json:"safeClause"`
	Explanation string `json:"explanation"`
}

type fixExecutor struct {
	llmClient   llm.Client
	safeClauses repositories.SafeClauseRepository
	logger      *zap.Logger
}

var _ jobs.FastExecutor = (*fixExecutor)(nil)

// TryFast returns the stored rewrite when one already exists for the issue.
// This is the idempotency short-circuit: repeat requests for the same issue
// never reach the model again.
func (e *fixExecutor) TryFast(ctx context.Context, payload json.RawMessage) (json.RawMessage, bool, error) {
	var req fixPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, false, fmt.Errorf("invalid generate-fix payload: %w", err)
	}

	existing, err := e.safeClauses.GetByIssueID(ctx, req.IssueID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	result, err := json.Marshal(FixResult{SafeClause: existing.SafeClause, Explanation: existing.Explanation})
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

func (e *fixExecutor) Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var req fixPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid generate-fix payload: %w", err)
	}

	prompt := buildFixPrompt(&req)
	response, err := e.llmClient.GenerateResponse(ctx, prompt, safeClauseSystemMessage, 0.3)
	if err != nil {
		return nil, analysis.NewExternalError("failed to generate safe clause", err)
	}
	parsed, err := llm.ParseJSONResponse[FixResult](response)
	if err != nil {
		return nil, analysis.NewExternalError("reasoning service returned malformed rewrite", err)
	}

	clause := &models.SafeClause{
		ReportID:       req.ReportID,
		IssueID:        req.IssueID,
		OriginalClause: req.OriginalClause,
		SafeClause:     parsed.SafeClause,
		Explanation:    parsed.Explanation,
	}
	if err := e.safeClauses.Insert(ctx, clause); err != nil {
		// The generated text is still usable; the next request regenerates.
		e.logger.Error("failed to persist safe clause",
			zap.String("issue_id", req.IssueID.String()), zap.Error(err))
	}

	return json.Marshal(parsed)
}

// safeContractPayload asks for a rewritten contract with the report's
// issues resolved.
type safeContractPayload struct {
	ContractURL string                 `json:"contract_url"`
	Issues      []models.AnalysisIssue `json:"issues"`
	BrandName   string                 `json:"brand_name,omitempty"`
	CreatorName string                 `json:"creator_name,omitempty"`
}

type ContractResult struct {
	ContractHTML string `json:"contractHtml"`
}

type safeContractExecutor struct {
	llmClient  llm.Client
	downloader *analysis.Downloader
}

func (e *safeContractExecutor) Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var req safeContractPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid safe-contract payload: %w", err)
	}

	fileBytes, err := e.downloader.Fetch(ctx, req.ContractURL)
	if err != nil {
		return nil, err
	}
	text, err := analysis.ExtractText(fileBytes)
	if err != nil {
		return nil, err
	}

	response, err := e.llmClient.GenerateResponse(ctx, buildSafeContractPrompt(text, req.Issues, req.BrandName, req.CreatorName), contractSystemMessage, 0.3)
	if err != nil {
		return nil, analysis.NewExternalError("failed to generate safe contract", err)
	}
	parsed, err := llm.ParseJSONResponse[ContractResult](response)
	if err != nil {
		return nil, analysis.NewExternalError("reasoning service returned malformed contract", err)
	}
	return json.Marshal(parsed)
}

// scratchContractPayload carries the counterpart fields for a brand-new
// contract. All fields are validated upstream before the job is enqueued.
type scratchContractPayload struct {
	BrandName      string `json:"brand_name"`
	BrandAddress   string `json:"brand_address"`
	BrandEmail     string `json:"brand_email"`
	CreatorName    string `json:"creator_name"`
	CreatorAddress string `json:"creator_address"`
	CreatorEmail   string `json:"creator_email"`
	DealTerms      string `json:"deal_terms,omitempty"`
}

type scratchContractExecutor struct {
	llmClient llm.Client
}

func (e *scratchContractExecutor) Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var req scratchContractPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid from-scratch payload: %w", err)
	}

	response, err := e.llmClient.GenerateResponse(ctx, buildScratchContractPrompt(&req), contractSystemMessage, 0.3)
	if err != nil {
		return nil, analysis.NewExternalError("failed to generate contract", err)
	}
	parsed, err := llm.ParseJSONResponse[ContractResult](response)
	if err != nil {
		return nil, analysis.NewExternalError("reasoning service returned malformed contract", err)
	}
	return json.Marshal(parsed)
}

// negotiationPayload carries the two-section issue partition for the
// negotiation-message prompt.
type negotiationPayload struct {
	RiskyClauses   []string `json:"risky_clauses"`
	MissingClauses []string `json:"missing_clauses"`
	BrandName      string   `json:"brand_name,omitempty"`
	CreatorName    string   `json:"creator_name,omitempty"`
}

type NegotiationResult struct {
	Message string `json:"message"`
}

type negotiationExecutor struct {
	llmClient llm.Client
}

func (e *negotiationExecutor) Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var req negotiationPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid negotiation payload: %w", err)
	}

	response, err := e.llmClient.GenerateResponse(ctx, buildNegotiationPrompt(&req), negotiationSystemMessage, 0.5)
	if err != nil {
		return nil, analysis.NewExternalError("failed to generate negotiation message", err)
	}
	parsed, err := llm.ParseJSONResponse[NegotiationResult](response)
	if err != nil {
		// Some models answer with the message directly instead of JSON.
		trimmed := strings.TrimSpace(response)
		if trimmed == "" {
			return nil, analysis.NewExternalError("reasoning service returned an empty message", err)
		}
		parsed = NegotiationResult{Message: trimmed}
	}
	return json.Marshal(parsed)
}
