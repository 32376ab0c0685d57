package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/auth"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
	"github.com/dealshield-inc/dealshield-engine/pkg/render"
	"github.com/dealshield-inc/dealshield-engine/pkg/services"
)

// stubValidator maps bearer tokens directly to claims. Unknown tokens fail
// the way an invalid signature would.
type stubValidator struct {
	tokens map[string]*auth.Claims
}

func (s *stubValidator) ValidateToken(tokenString string) (*auth.Claims, error) {
	claims, ok := s.tokens[tokenString]
	if !ok {
		return nil, fmt.Errorf("unknown token")
	}
	return claims, nil
}

// memReports is a minimal in-memory ReportRepository for handler tests.
type memReports struct {
	reports map[uuid.UUID]*models.ContractReport
	issues  map[uuid.UUID][]models.ReportIssue
	saved   map[uuid.UUID]bool

	failInsert bool
}

func newMemReports() *memReports {
	return &memReports{
		reports: make(map[uuid.UUID]*models.ContractReport),
		issues:  make(map[uuid.UUID][]models.ReportIssue),
		saved:   make(map[uuid.UUID]bool),
	}
}

func (m *memReports) Insert(_ context.Context, report *models.ContractReport) error {
	if m.failInsert {
		return fmt.Errorf("insert failed")
	}
	report.ID = uuid.New()
	report.CreatedAt = time.Now()
	m.reports[report.ID] = report
	return nil
}

func (m *memReports) Get(_ context.Context, id uuid.UUID) (*models.ContractReport, error) {
	report, ok := m.reports[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return report, nil
}

func (m *memReports) UpdatePDFReportURL(_ context.Context, id uuid.UUID, pdfURL string) error {
	report, ok := m.reports[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	report.PDFReportURL = &pdfURL
	return nil
}

func (m *memReports) MarkSaved(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := m.reports[id]; !ok {
		return false, apperrors.ErrNotFound
	}
	already := m.saved[id]
	m.saved[id] = true
	return already, nil
}

func (m *memReports) InsertIssues(_ context.Context, issues []models.ReportIssue) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(issues))
	for i := range issues {
		issues[i].ID = uuid.New()
		ids[i] = issues[i].ID
		m.issues[issues[i].ReportID] = append(m.issues[issues[i].ReportID], issues[i])
	}
	return ids, nil
}

func (m *memReports) InsertVerifiedItems(_ context.Context, items []models.VerifiedItem) error {
	return nil
}

func (m *memReports) GetIssues(_ context.Context, reportID uuid.UUID) ([]models.ReportIssue, error) {
	return m.issues[reportID], nil
}

func (m *memReports) GetIssue(_ context.Context, issueID uuid.UUID) (*models.ReportIssue, error) {
	for _, issues := range m.issues {
		for i := range issues {
			if issues[i].ID == issueID {
				return &issues[i], nil
			}
		}
	}
	return nil, apperrors.ErrNotFound
}

// memDeals is a minimal in-memory DealRepository.
type memDeals struct {
	deals map[uuid.UUID]*models.Deal
}

func newMemDeals() *memDeals {
	return &memDeals{deals: make(map[uuid.UUID]*models.Deal)}
}

func (m *memDeals) Get(_ context.Context, id uuid.UUID) (*models.Deal, error) {
	deal, ok := m.deals[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return deal, nil
}

func (m *memDeals) UpdateContractArtifacts(_ context.Context, id uuid.UUID, html string, docxURL, pdfURL *string, version int) error {
	deal, ok := m.deals[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	deal.ContractHTML = &html
	deal.ContractDocxURL = docxURL
	deal.ContractPDFURL = pdfURL
	deal.ContractVersion = version
	return nil
}

// memStore is an in-memory ObjectStore minting deterministic signed URLs.
type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Upload(_ context.Context, objectName string, data []byte, _ string) error {
	m.objects[objectName] = data
	return nil
}

func (m *memStore) PresignedURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	return "https://store.test/" + objectName + "?sig=abc", nil
}

// memNegotiations and memLegalReviews record inserts.
type memNegotiations struct{ inserted []*models.NegotiationMessage }

func (m *memNegotiations) Insert(_ context.Context, msg *models.NegotiationMessage) error {
	msg.ID = uuid.New()
	m.inserted = append(m.inserted, msg)
	return nil
}

type memLegalReviews struct{ inserted []*models.LegalReviewRequest }

func (m *memLegalReviews) Insert(_ context.Context, req *models.LegalReviewRequest) error {
	req.ID = uuid.New()
	if req.Status == "" {
		req.Status = "pending"
	}
	m.inserted = append(m.inserted, req)
	return nil
}

// memMailer records outgoing mail.
type memMailer struct{ sent []string }

func (m *memMailer) Send(_ context.Context, to, _, _ string) error {
	m.sent = append(m.sent, to)
	return nil
}

// stubRunner returns a scripted job result.
type stubRunner struct {
	result json.RawMessage
	err    error

	lastKind string
}

func (s *stubRunner) Await(_ context.Context, kind string, _ any) (json.RawMessage, error) {
	s.lastKind = kind
	return s.result, s.err
}

// testEnv wires the full protection surface over in-memory backends.
type testEnv struct {
	server  *httptest.Server
	repo    *memReports
	deals   *memDeals
	store   *memStore
	runner  *stubRunner
	mail    *memMailer
	reviews *memLegalReviews
}

const (
	creatorToken = "creator-token"
	adminToken   = "admin-token"
	otherToken   = "other-token"

	creatorUserID = "user-creator-1"
	otherUserID   = "user-other-2"
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:    newMemReports(),
		deals:   newMemDeals(),
		store:   newMemStore(),
		runner:  &stubRunner{},
		mail:    &memMailer{},
		reviews: &memLegalReviews{},
	}

	logger := zap.NewNop()
	reports := services.NewReportService(env.repo, env.store, time.Hour, logger)
	protection := services.NewProtectionService(env.runner, reports, render.NewPDFRenderer(), logger)
	safeClauses := services.NewSafeClauseService(env.runner, reports, env.repo, logger)
	contracts := services.NewContractService(env.runner, reports, env.deals, render.NewDocxRenderer(), env.store, time.Hour, logger)
	negotiations := services.NewNegotiationService(env.runner, reports, env.repo, &memNegotiations{}, env.reviews, env.mail, "legal@dealshield.test", logger)

	validator := &stubValidator{tokens: map[string]*auth.Claims{
		creatorToken: {RegisteredClaims: jwt.RegisteredClaims{Subject: creatorUserID}, Role: "creator"},
		adminToken:   {RegisteredClaims: jwt.RegisteredClaims{Subject: "user-admin"}, Role: "admin"},
		otherToken:   {RegisteredClaims: jwt.RegisteredClaims{Subject: otherUserID}, Role: "creator"},
	}}
	middleware := auth.NewMiddleware(validator, logger)

	mux := http.NewServeMux()
	NewProtectionHandler(protection, reports, safeClauses, contracts, negotiations, false, logger).RegisterRoutes(mux, middleware)
	NewContractsHandler(contracts, logger).RegisterRoutes(mux)

	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)
	return env
}

// do issues a request with the given bearer token and decodes the JSON body.
func (env *testEnv) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

// seedReport stores a report owned by the creator user, linked to a deal
// the creator also owns, with issues. The deal link matters: a report
// without one is readable by any authenticated caller.
func (env *testEnv) seedReport(t *testing.T, issues ...models.ReportIssue) *models.ContractReport {
	t.Helper()

	owner := creatorUserID
	analysisJSON, err := json.Marshal(models.AnalysisResult{
		ProtectionScore: 55,
		OverallRisk:     models.RiskMedium,
	})
	require.NoError(t, err)
	dealID := uuid.New()
	deal := &models.Deal{ID: dealID, CreatorID: owner, Status: models.DealStatusAcceptedVerified}
	env.deals.deals[dealID] = deal
	report := &models.ContractReport{
		UserID:          &owner,
		DealID:          &dealID,
		Deal:            deal,
		ContractFileURL: "uploads/contract.pdf",
		ProtectionScore: 55,
		OverallRisk:     models.RiskMedium,
		AnalysisJSON:    analysisJSON,
		BrandDetected:   "Acme",
	}
	require.NoError(t, env.repo.Insert(context.Background(), report))
	for i := range issues {
		issues[i].ReportID = report.ID
	}
	if len(issues) > 0 {
		_, err := env.repo.InsertIssues(context.Background(), issues)
		require.NoError(t, err)
	}
	return report
}
