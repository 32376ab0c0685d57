// Package analysis implements the contract-protection analysis stage:
// download, text extraction, the reasoning-service call, and
// normalization of the structured result.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/llm"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// ContractAnalyzer produces an AnalysisResult from contract file bytes.
type ContractAnalyzer interface {
	AnalyzeContract(ctx context.Context, fileBytes []byte, sourceURL string) (*models.AnalysisResult, error)
}

// Analyzer implements ContractAnalyzer over an LLM client.
type Analyzer struct {
	llmClient llm.Client
	logger    *zap.Logger
}

var _ ContractAnalyzer = (*Analyzer)(nil)

// NewAnalyzer creates a contract analyzer.
func NewAnalyzer(llmClient llm.Client, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		llmClient: llmClient,
		logger:    logger.Named("analysis"),
	}
}

// wireResult is the raw shape the model returns. Score fields are `any`
// because models occasionally return them as strings; the normalizer owns
// the coercion. ValidationError is set when the model judges the document
// not to be a contract at all.
type wireResult struct {
	ValidationError          bool            `json:"validationError,omitempty"`
	Message                  string          `json:"message,omitempty"`
	Details                  string          `json:"details,omitempty"`
	ProtectionScore          any             `json:"protectionScore"`
	OverallRisk              string          `json:"overallRisk"`
	NegotiationPowerScore    any             `json:"negotiationPowerScore"`
	DocumentType             string          `json:"documentType"`
	DetectedContractCategory string          `json:"detectedContractCategory"`
	BrandDetected            string          `json:"brandDetected"`
	Summary                  string          `json:"summary"`
	Issues                   []wireIssue     `json:"issues"`
	Verified                 []wireVerified  `json:"verified"`
}

type wireIssue struct {
	Severity        string `json:"severity"`
	Category        string `json:"category"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ClauseReference string `json:"clauseReference"`
	Recommendation  string `json:"recommendation"`
}

type wireVerified struct {
	Category        string `json:"category"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ClauseReference string `json:"clauseReference"`
}

// AnalyzeContract extracts text from the file, runs the reasoning call,
// and returns the normalized result. Failures carry a Kind so the HTTP
// layer can map them without message sniffing.
func (a *Analyzer) AnalyzeContract(ctx context.Context, fileBytes []byte, sourceURL string) (*models.AnalysisResult, error) {
	if len(fileBytes) == 0 {
		return nil, NewValidationError("contract file is empty", "")
	}

	text, err := ExtractText(fileBytes)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("extracted contract text",
		zap.String("source_url", sourceURL),
		zap.Int("file_bytes", len(fileBytes)),
		zap.Int("text_len", len(text)))

	response, err := a.llmClient.GenerateResponse(ctx, buildAnalysisPrompt(text), analysisSystemMessage, 0.2)
	if err != nil {
		return nil, NewExternalError("contract analysis service failed", err)
	}

	wire, err := llm.ParseJSONResponse[wireResult](response)
	if err != nil {
		return nil, NewExternalError("contract analysis returned unparseable output", err)
	}

	if wire.ValidationError {
		message := wire.Message
		if message == "" {
			message = "The uploaded document does not appear to be a contract"
		}
		return nil, NewValidationError(message, wire.Details)
	}

	result := a.normalizeWire(&wire)

	a.logger.Info("contract analyzed",
		zap.Float64("protection_score", result.ProtectionScore),
		zap.String("overall_risk", result.OverallRisk),
		zap.Int("issues", len(result.Issues)),
		zap.Int("verified", len(result.Verified)))

	return result, nil
}

// normalizeWire clamps and canonicalizes the model output before anything
// downstream sees it.
func (a *Analyzer) normalizeWire(wire *wireResult) *models.AnalysisResult {
	result := &models.AnalysisResult{
		ProtectionScore:          NormalizeScore(wire.ProtectionScore),
		OverallRisk:              NormalizeRisk(wire.OverallRisk),
		NegotiationPowerScore:    NormalizeScore(wire.NegotiationPowerScore),
		DocumentType:             wire.DocumentType,
		DetectedContractCategory: wire.DetectedContractCategory,
		BrandDetected:            wire.BrandDetected,
		Summary:                  wire.Summary,
		Issues:                   make([]models.AnalysisIssue, 0, len(wire.Issues)),
		Verified:                 make([]models.VerifiedClause, 0, len(wire.Verified)),
	}

	for _, issue := range wire.Issues {
		if strings.TrimSpace(issue.Title) == "" {
			continue
		}
		result.Issues = append(result.Issues, models.AnalysisIssue{
			Severity:        NormalizeSeverity(issue.Severity),
			Category:        issue.Category,
			Title:           issue.Title,
			Description:     issue.Description,
			ClauseReference: issue.ClauseReference,
			Recommendation:  issue.Recommendation,
		})
	}

	for _, v := range wire.Verified {
		if strings.TrimSpace(v.Title) == "" {
			continue
		}
		result.Verified = append(result.Verified, models.VerifiedClause{
			Category:        v.Category,
			Title:           v.Title,
			Description:     v.Description,
			ClauseReference: v.ClauseReference,
		})
	}

	return result
}

const analysisSystemMessage = `You are a contract review expert for content creators.
You analyze brand-deal contracts and score how well they protect the creator.

You must respond with a JSON object:
- protectionScore: number 0-100, how well the contract protects the creator
- overallRisk: "low" | "medium" | "high"
- negotiationPowerScore: number 0-100, the creator's leverage in this deal
- documentType: short label for what kind of document this is
- detectedContractCategory: e.g. "sponsorship", "licensing", "ugc", "ambassador"
- brandDetected: the counterparty brand name if identifiable, else ""
- summary: 2-3 sentence plain-language summary
- issues: array of problematic or missing clauses, each with
  severity ("high" | "medium" for risky clauses, "warning" for missing clauses),
  category, title, description, clauseReference, recommendation
- verified: array of clauses that are acceptable as written, each with
  category, title, description, clauseReference

If the document is clearly not a contract, respond instead with:
{"validationError": true, "message": "<why>", "details": "<what was detected>"}

Respond ONLY with valid JSON. No markdown, no explanations.`

func buildAnalysisPrompt(text string) string {
	var sb strings.Builder

	sb.WriteString("Analyze the following contract from a content creator's perspective.\n\n")
	sb.WriteString("## Contract Text\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("The contract text above is %d characters long. ", len(text)))
	sb.WriteString("Identify every clause that exposes the creator to risk, every standard protective clause that is missing, and every clause that is acceptable as written.")

	return sb.String()
}
