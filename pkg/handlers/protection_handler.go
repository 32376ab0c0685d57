package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/analysis"
	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/auth"
	"github.com/dealshield-inc/dealshield-engine/pkg/render"
	"github.com/dealshield-inc/dealshield-engine/pkg/services"
)

// ProtectionHandler serves the contract-protection endpoints: analysis,
// report downloads, and the derived-artifact generators.
type ProtectionHandler struct {
	protection   *services.ProtectionService
	reports      *services.ReportService
	safeClauses  *services.SafeClauseService
	contracts    *services.ContractService
	negotiations *services.NegotiationService
	devMode      bool
	logger       *zap.Logger
}

// NewProtectionHandler creates a ProtectionHandler.
func NewProtectionHandler(protection *services.ProtectionService, reports *services.ReportService, safeClauses *services.SafeClauseService, contracts *services.ContractService, negotiations *services.NegotiationService, devMode bool, logger *zap.Logger) *ProtectionHandler {
	return &ProtectionHandler{
		protection:   protection,
		reports:      reports,
		safeClauses:  safeClauses,
		contracts:    contracts,
		negotiations: negotiations,
		devMode:      devMode,
		logger:       logger.Named("protection_handler"),
	}
}

// RegisterRoutes registers the protection routes. All of them require a
// bearer token; ownership is resolved per request in the services.
func (h *ProtectionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /protection/analyze", authMiddleware.RequireAuth(h.Analyze))
	// The two report-download shapes conflict as separate ServeMux
	// patterns (both match /protection/download-report/report.pdf), so a
	// single two-segment pattern dispatches on the path.
	mux.HandleFunc("GET /protection/{first}/{second}", authMiddleware.RequireAuth(h.ReportDownload))
	mux.HandleFunc("POST /protection/generate-safe-contract", authMiddleware.RequireAuth(h.GenerateSafeContract))
	mux.HandleFunc("POST /protection/generate-contract-from-scratch", authMiddleware.RequireAuth(h.GenerateContractFromScratch))
	mux.HandleFunc("POST /protection/generate-contract-docx", authMiddleware.RequireAuth(h.GenerateContractDocx))
	mux.HandleFunc("POST /protection/generate-fix", authMiddleware.RequireAuth(h.GenerateFix))
	mux.HandleFunc("POST /protection/generate-negotiation-message", authMiddleware.RequireAuth(h.GenerateNegotiationMessage))
	mux.HandleFunc("POST /protection/send-negotiation-email", authMiddleware.RequireAuth(h.SendNegotiationEmail))
	mux.HandleFunc("POST /protection/send-for-legal-review", authMiddleware.RequireAuth(h.SendForLegalReview))
	mux.HandleFunc("POST /protection/save-report", authMiddleware.RequireAuth(h.SaveReport))
}

type analyzeRequest struct {
	ContractURL string  `json:"contract_url"`
	DealID      *string `json:"deal_id"`
}

// Analyze handles POST /protection/analyze.
// Analysis failure fails the request; persistence failure does not, the
// response then carries report_id null.
func (h *ProtectionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	callerID, _, err := auth.CallerFromContext(r.Context())
	if err != nil {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var dealID *uuid.UUID
	if req.DealID != nil && *req.DealID != "" {
		id, err := uuid.Parse(*req.DealID)
		if err != nil {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid deal_id"})
			return
		}
		dealID = &id
	}

	outcome, err := h.protection.Analyze(r.Context(), req.ContractURL, dealID, callerID)
	if err != nil {
		h.writeAnalyzeError(w, err)
		return
	}

	var reportID interface{}
	if outcome.ReportID != nil {
		reportID = outcome.ReportID.String()
	}
	var pdfURL interface{}
	if outcome.PDFReportURL != nil {
		pdfURL = *outcome.PDFReportURL
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true,
		"data": map[string]interface{}{
			"analysis_json":  outcome.Analysis,
			"report_id":      reportID,
			"pdf_report_url": pdfURL,
		},
	})
}

// writeAnalyzeError maps analysis failures onto the analyze endpoint's
// plain error shape: validation and parsing are 400, everything else 500.
func (h *ProtectionHandler) writeAnalyzeError(w http.ResponseWriter, err error) {
	var tagged *analysis.Error
	if errors.As(err, &tagged) {
		switch tagged.Kind {
		case analysis.KindValidation:
			body := map[string]string{"error": tagged.Message}
			if tagged.Details != "" {
				body["details"] = tagged.Details
			}
			WriteJSON(w, http.StatusBadRequest, body)
			return
		case analysis.KindParsing:
			WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document"})
			return
		}
	}

	h.logger.Error("contract analysis failed", zap.Error(err))
	body := map[string]string{"error": err.Error()}
	if h.devMode {
		body["stack"] = fmt.Sprintf("%+v", err)
	}
	WriteJSON(w, http.StatusInternalServerError, body)
}

// ReportDownload serves GET /protection/download-report/{reportId} and
// GET /protection/{id}/report.pdf from the shared two-segment pattern.
func (h *ProtectionHandler) ReportDownload(w http.ResponseWriter, r *http.Request) {
	first, second := r.PathValue("first"), r.PathValue("second")
	switch {
	case first == "download-report":
		h.redirectToReportPDF(w, r, second)
	case second == "report.pdf":
		h.redirectToReportPDF(w, r, first)
	default:
		Fail(w, http.StatusNotFound, "Not found", nil)
	}
}

func (h *ProtectionHandler) redirectToReportPDF(w http.ResponseWriter, r *http.Request, rawID string) {
	callerID, callerRole, err := auth.CallerFromContext(r.Context())
	if err != nil {
		Fail(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	reportID, err := uuid.Parse(rawID)
	if err != nil {
		Fail(w, http.StatusNotFound, "Report not found", nil)
		return
	}

	report, err := h.reports.GetAuthorized(r.Context(), reportID, callerID, callerRole)
	if err != nil {
		h.writeError(w, err)
		return
	}
	url, err := h.reports.PDFDownloadURL(r.Context(), report)
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

type safeContractRequest struct {
	ReportID string `json:"reportId"`
}

// GenerateSafeContract handles POST /protection/generate-safe-contract.
func (h *ProtectionHandler) GenerateSafeContract(w http.ResponseWriter, r *http.Request) {
	callerID, callerRole, err := auth.CallerFromContext(r.Context())
	if err != nil {
		Fail(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req safeContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	reportID, err := uuid.Parse(req.ReportID)
	if err != nil {
		Fail(w, http.StatusBadRequest, "reportId is required", nil)
		return
	}

	contractHTML, err := h.contracts.GenerateSafeContract(r.Context(), reportID, callerID, callerRole)
	if err != nil {
		h.writeError(w, err)
		return
	}
	Success(w, map[string]interface{}{"contractHtml": contractHTML})
}

type scratchContractRequest struct {
	DealID string `json:"dealId"`
}

// GenerateContractFromScratch handles POST /protection/generate-contract-from-scratch.
func (h *ProtectionHandler) GenerateContractFromScratch(w http.ResponseWriter, r *http.Request) {
	callerID, callerRole, err := auth.CallerFromContext(r.Context())
	if err != nil {
		Fail(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req scratchContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	dealID, err := uuid.Parse(req.DealID)
	if err != nil {
		Fail(w, http.StatusBadRequest, "dealId is required", nil)
		return
	}

	outcome, err := h.contracts.GenerateFromScratch(r.Context(), dealID, callerID, callerRole)
	if err != nil {
		h.writeError(w, err)
		return
	}
	Success(w, map[string]interface{}{
		"contractDocxUrl": outcome.ContractDocxURL,
		"fileName":        outcome.FileName,
		"contentType":     outcome.ContentType,
		"contractVersion": outcome.ContractVersion,
		"databaseUpdated": outcome.DatabaseUpdated,
	})
}

type contractDocxRequest struct {
	ContractHTML string `json:"contractHtml"`
	FileName     string `json:"fileName"`
}

// GenerateContractDocx handles POST /protection/generate-contract-docx.
// Responds with the document bytes as an attachment.
func (h *ProtectionHandler) GenerateContractDocx(w http.ResponseWriter, r *http.Request) {
	if _, _, err := auth.CallerFromContext(r.Context()); err != nil {
		Fail(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req contractDocxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	docx, fileName, err := h.contracts.RenderDocx(r.Context(), req.ContractHTML, req.FileName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	w.Write(docx)
}

// GenerateFix handles POST /protection/generate-fix.
func (h *ProtectionHandler) GenerateFix(w http.ResponseWriter, r *http.Request) {
	callerID, callerRole, err := auth.CallerFromContext(r.Context())
	if err != nil {
		Fail(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req services.FixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	fix, err := h.safeClauses.GenerateFix(r.Context(), &req, callerID, callerRole)
	if err != nil {
		h.writeError(w, err)
		return
	}
	Success(w, map[string]interface{}{
		"safeClause":  fix.SafeClause,
		"explanation": fix.Explanation,
	})
}

type negotiationMessageRequest struct {
	ReportID  string `json:"reportId"`
	BrandName string `json:"brandName"`
}

// GenerateNegotiationMessage handles POST /protection/generate-negotiation-message.
func (h *ProtectionHandler) GenerateNegotiationMessage(w http.ResponseWriter, r *http.Request) {
	callerID, callerRole, err := auth.CallerFromContext(r.Context())
	if err != nil {
		Fail(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req negotiationMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	reportID, err := uuid.Parse(req.ReportID)
	if err != nil {
		Fail(w, http.StatusBadRequest, "reportId is required", nil)
		return
	}

	message, err := h.negotiations.GenerateMessage(r.Context(), reportID, req.BrandName, callerID, callerRole)
	if err != nil {
		h.writeError(w, err)
		return
	}
	Success(w, map[string]interface{}{"message": message})
}

type sendEmailRequest struct {
	ReportID string `json:"reportId"`
	ToEmail  string `json:"toEmail"`
	Message  string `json:"message"`
}

// SendNegotiationEmail handles POST /protection/send-negotiation-email.
func (h *ProtectionHandler) SendNegotiationEmail(w http.ResponseWriter, r *http.Request) {
	callerID, callerRole, err := auth.CallerFromContext(r.Context())
	if err != nil {
		Fail(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	var reportID *uuid.UUID
	if req.ReportID != "" {
		id, err := uuid.Parse(req.ReportID)
		if err != nil {
			Fail(w, http.StatusBadRequest, "invalid reportId", nil)
			return
		}
		reportID = &id
	}

	if err := h.negotiations.SendEmail(r.Context(), reportID, req.ToEmail, req.Message, callerID, callerRole); err != nil {
		h.writeError(w, err)
		return
	}
	Success(w, nil)
}

type legalReviewRequest struct {
	ReportID string `json:"reportId"`
	Notes    string `json:"notes"`
}

// SendForLegalReview handles POST /protection/send-for-legal-review.
func (h *ProtectionHandler) SendForLegalReview(w http.ResponseWriter, r *http.Request) {
	callerID, callerRole, err := auth.CallerFromContext(r.Context())
	if err != nil {
		Fail(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req legalReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	reportID, err := uuid.Parse(req.ReportID)
	if err != nil {
		Fail(w, http.StatusBadRequest, "reportId is required", nil)
		return
	}

	if err := h.negotiations.RequestLegalReview(r.Context(), reportID, req.Notes, callerID, callerRole); err != nil {
		h.writeError(w, err)
		return
	}
	Success(w, nil)
}

type saveReportRequest struct {
	ReportID string `json:"reportId"`
}

// SaveReport handles POST /protection/save-report. Saving is idempotent;
// a repeat save reports the already-saved message with the same shape.
func (h *ProtectionHandler) SaveReport(w http.ResponseWriter, r *http.Request) {
	callerID, callerRole, err := auth.CallerFromContext(r.Context())
	if err != nil {
		Fail(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req saveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	reportID, err := uuid.Parse(req.ReportID)
	if err != nil {
		Fail(w, http.StatusBadRequest, "reportId is required", nil)
		return
	}

	message, err := h.reports.Save(r.Context(), reportID, callerID, callerRole)
	if err != nil {
		h.writeError(w, err)
		return
	}
	Success(w, map[string]interface{}{"message": message})
}

// writeError maps service failures onto the `{success:false, error}` shape
// shared by the generator endpoints.
func (h *ProtectionHandler) writeError(w http.ResponseWriter, err error) {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		var fields map[string]interface{}
		if len(vErr.MissingFields) > 0 {
			fields = map[string]interface{}{"missingFields": vErr.MissingFields}
		}
		Fail(w, http.StatusBadRequest, vErr.Message, fields)
		return
	}

	var aErr *analysis.Error
	if errors.As(err, &aErr) {
		switch aErr.Kind {
		case analysis.KindValidation:
			Fail(w, http.StatusBadRequest, aErr.Message, nil)
		case analysis.KindParsing:
			Fail(w, http.StatusBadRequest, "invalid document", nil)
		default:
			h.logger.Error("generation failed", zap.Error(err))
			Fail(w, http.StatusInternalServerError, aErr.Message, nil)
		}
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrAccessDenied), errors.Is(err, apperrors.ErrDealNotViewable):
		Fail(w, http.StatusForbidden, "Access denied", nil)
	case errors.Is(err, apperrors.ErrNotFound):
		Fail(w, http.StatusNotFound, "Not found", nil)
	case errors.Is(err, apperrors.ErrNotGenerated):
		Fail(w, http.StatusNotFound, "Report PDF not generated", nil)
	case errors.Is(err, render.ErrRendererUnavailable):
		Fail(w, http.StatusInternalServerError, "Document conversion service unavailable", map[string]interface{}{"requiresPuppeteer": true})
	default:
		h.logger.Error("request failed", zap.Error(err))
		Fail(w, http.StatusInternalServerError, err.Error(), nil)
	}
}
