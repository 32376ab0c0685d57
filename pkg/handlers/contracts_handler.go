package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/services"
)

// ContractsHandler serves the unauthenticated deal-contract endpoints.
// These back signed share links sent to brands; the gate is the deal's
// status, not a bearer token.
type ContractsHandler struct {
	contracts *services.ContractService
	logger    *zap.Logger
}

// NewContractsHandler creates a ContractsHandler.
func NewContractsHandler(contracts *services.ContractService, logger *zap.Logger) *ContractsHandler {
	return &ContractsHandler{contracts: contracts, logger: logger.Named("contracts_handler")}
}

// RegisterRoutes registers the contracts routes on the given mux.
func (h *ContractsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /contracts/{dealId}/download-docx", h.DownloadDocx)
	mux.HandleFunc("GET /contracts/{dealId}/view", h.View)
}

// DownloadDocx handles GET /contracts/{dealId}/download-docx.
// Only deals in accepted_verified status expose their contract file.
func (h *ContractsHandler) DownloadDocx(w http.ResponseWriter, r *http.Request) {
	dealID, err := pathUUID(r, "dealId")
	if err != nil {
		Fail(w, http.StatusBadRequest, "invalid dealId", nil)
		return
	}

	docx, fileName, err := h.contracts.DealDocx(r.Context(), dealID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	w.Write(docx)
}

// View handles GET /contracts/{dealId}/view.
// Serves the contract HTML inline, or redirects to the PDF artifact when
// only that exists.
func (h *ContractsHandler) View(w http.ResponseWriter, r *http.Request) {
	dealID, err := pathUUID(r, "dealId")
	if err != nil {
		Fail(w, http.StatusBadRequest, "invalid dealId", nil)
		return
	}

	html, redirectURL, err := h.contracts.DealView(r.Context(), dealID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if redirectURL != "" {
		http.Redirect(w, r, redirectURL, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func (h *ContractsHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrDealNotViewable):
		Fail(w, http.StatusForbidden, "Contract is not available for this deal", nil)
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrNotGenerated):
		Fail(w, http.StatusNotFound, "Not found", nil)
	default:
		h.logger.Error("contract request failed", zap.Error(err))
		Fail(w, http.StatusInternalServerError, "internal error", nil)
	}
}
