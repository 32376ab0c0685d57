package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

func TestContractViewServesHTMLWithoutAuth(t *testing.T) {
	env := newTestEnv(t)

	html := "<p>signed terms</p>"
	dealID := uuid.New()
	env.deals.deals[dealID] = &models.Deal{
		ID:           dealID,
		CreatorID:    creatorUserID,
		Status:       models.DealStatusAcceptedVerified,
		ContractHTML: &html,
	}

	resp, _ := env.do(t, http.MethodGet, "/contracts/"+dealID.String()+"/view", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestContractViewRedirectsToPDF(t *testing.T) {
	env := newTestEnv(t)

	pdfObject := "contracts/final.pdf"
	dealID := uuid.New()
	env.deals.deals[dealID] = &models.Deal{
		ID:             dealID,
		CreatorID:      creatorUserID,
		Status:         models.DealStatusAcceptedVerified,
		ContractPDFURL: &pdfObject,
	}

	resp, _ := env.do(t, http.MethodGet, "/contracts/"+dealID.String()+"/view", "", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://store.test/contracts/final.pdf?sig=abc", resp.Header.Get("Location"))
}

func TestContractViewRejectsDrafts(t *testing.T) {
	env := newTestEnv(t)

	html := "<p>draft terms</p>"
	dealID := uuid.New()
	env.deals.deals[dealID] = &models.Deal{
		ID:           dealID,
		CreatorID:    creatorUserID,
		Status:       models.DealStatusDraft,
		ContractHTML: &html,
	}

	resp, body := env.do(t, http.MethodGet, "/contracts/"+dealID.String()+"/view", "", "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Contract is not available for this deal", body["error"])
}

func TestContractDownloadDocx(t *testing.T) {
	env := newTestEnv(t)

	html := "<p>signed terms</p>"
	dealID := uuid.New()
	env.deals.deals[dealID] = &models.Deal{
		ID:              dealID,
		CreatorID:       creatorUserID,
		Status:          models.DealStatusAcceptedVerified,
		BrandName:       "Acme",
		CreatorName:     "Jordan",
		ContractHTML:    &html,
		ContractVersion: 2,
	}

	resp, _ := env.do(t, http.MethodGet, "/contracts/"+dealID.String()+"/download-docx", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"),
		"contract-"+dealID.String()+"-v2.docx")

	// Status gating applies to the docx route too.
	env.deals.deals[dealID].Status = models.DealStatusDraft
	resp, _ = env.do(t, http.MethodGet, "/contracts/"+dealID.String()+"/download-docx", "", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestContractRoutesRejectBadDealID(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/contracts/not-a-uuid/view", "", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid dealId", body["error"])

	resp, _ = env.do(t, http.MethodGet, "/contracts/"+uuid.New().String()+"/view", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
