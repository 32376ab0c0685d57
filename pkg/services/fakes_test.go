package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// fakeReportRepo is an in-memory ReportRepository. Individual operations
// can be failed to exercise the soft-persistence paths.
type fakeReportRepo struct {
	mu       sync.Mutex
	reports  map[uuid.UUID]*models.ContractReport
	issues   map[uuid.UUID][]models.ReportIssue
	verified map[uuid.UUID][]models.VerifiedItem
	saved    map[uuid.UUID]bool

	failInsert         bool
	failInsertIssues   bool
	failInsertVerified bool
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{
		reports:  make(map[uuid.UUID]*models.ContractReport),
		issues:   make(map[uuid.UUID][]models.ReportIssue),
		verified: make(map[uuid.UUID][]models.VerifiedItem),
		saved:    make(map[uuid.UUID]bool),
	}
}

func (f *fakeReportRepo) Insert(_ context.Context, report *models.ContractReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return errors.New("insert failed")
	}
	report.ID = uuid.New()
	report.CreatedAt = time.Now()
	copied := *report
	f.reports[report.ID] = &copied
	return nil
}

func (f *fakeReportRepo) Get(_ context.Context, id uuid.UUID) (*models.ContractReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *report
	return &copied, nil
}

func (f *fakeReportRepo) UpdatePDFReportURL(_ context.Context, id uuid.UUID, pdfURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	report.PDFReportURL = &pdfURL
	return nil
}

func (f *fakeReportRepo) MarkSaved(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[id]; !ok {
		return false, apperrors.ErrNotFound
	}
	already := f.saved[id]
	f.saved[id] = true
	return already, nil
}

func (f *fakeReportRepo) InsertIssues(_ context.Context, issues []models.ReportIssue) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertIssues {
		return nil, errors.New("insert issues failed")
	}
	ids := make([]uuid.UUID, len(issues))
	for i := range issues {
		issues[i].ID = uuid.New()
		ids[i] = issues[i].ID
		f.issues[issues[i].ReportID] = append(f.issues[issues[i].ReportID], issues[i])
	}
	return ids, nil
}

func (f *fakeReportRepo) InsertVerifiedItems(_ context.Context, items []models.VerifiedItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertVerified {
		return errors.New("insert verified failed")
	}
	for i := range items {
		items[i].ID = uuid.New()
		f.verified[items[i].ReportID] = append(f.verified[items[i].ReportID], items[i])
	}
	return nil
}

func (f *fakeReportRepo) GetIssues(_ context.Context, reportID uuid.UUID) ([]models.ReportIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ReportIssue(nil), f.issues[reportID]...), nil
}

func (f *fakeReportRepo) GetIssue(_ context.Context, issueID uuid.UUID) (*models.ReportIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, issues := range f.issues {
		for _, issue := range issues {
			if issue.ID == issueID {
				copied := issue
				return &copied, nil
			}
		}
	}
	return nil, apperrors.ErrNotFound
}

// fakeSafeClauseRepo is an in-memory SafeClauseRepository.
type fakeSafeClauseRepo struct {
	mu      sync.Mutex
	clauses map[uuid.UUID]*models.SafeClause
	inserts int
}

func newFakeSafeClauseRepo() *fakeSafeClauseRepo {
	return &fakeSafeClauseRepo{clauses: make(map[uuid.UUID]*models.SafeClause)}
}

func (f *fakeSafeClauseRepo) GetByIssueID(_ context.Context, issueID uuid.UUID) (*models.SafeClause, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clause, ok := f.clauses[issueID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *clause
	return &copied, nil
}

func (f *fakeSafeClauseRepo) Insert(_ context.Context, clause *models.SafeClause) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clause.ID = uuid.New()
	clause.CreatedAt = time.Now()
	copied := *clause
	f.clauses[clause.IssueID] = &copied
	f.inserts++
	return nil
}

// countingLLM scripts one response and counts calls.
type countingLLM struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (c *countingLLM) GenerateResponse(_ context.Context, _, _ string, _ float64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.response, c.err
}

func (c *countingLLM) Model() string { return "test-model" }

func (c *countingLLM) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeJobRunner returns a scripted result and records the last request.
type fakeJobRunner struct {
	result json.RawMessage
	err    error

	lastKind    string
	lastPayload any
}

func (f *fakeJobRunner) Await(_ context.Context, kind string, payload any) (json.RawMessage, error) {
	f.lastKind = kind
	f.lastPayload = payload
	return f.result, f.err
}

// fakeObjectStore records uploads and mints deterministic URLs.
type fakeObjectStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failUpload bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Upload(_ context.Context, objectName string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload {
		return errors.New("upload failed")
	}
	f.objects[objectName] = data
	return nil
}

func (f *fakeObjectStore) PresignedURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://store.test/%s?sig=abc", objectName), nil
}

// fakeDealRepo is an in-memory DealRepository.
type fakeDealRepo struct {
	mu    sync.Mutex
	deals map[uuid.UUID]*models.Deal
}

func newFakeDealRepo() *fakeDealRepo {
	return &fakeDealRepo{deals: make(map[uuid.UUID]*models.Deal)}
}

func (f *fakeDealRepo) put(deal *models.Deal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deals[deal.ID] = deal
}

func (f *fakeDealRepo) Get(_ context.Context, id uuid.UUID) (*models.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deal, ok := f.deals[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *deal
	return &copied, nil
}

func (f *fakeDealRepo) UpdateContractArtifacts(_ context.Context, id uuid.UUID, html string, docxURL, pdfURL *string, version int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	deal, ok := f.deals[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	deal.ContractHTML = &html
	deal.ContractDocxURL = docxURL
	deal.ContractPDFURL = pdfURL
	deal.ContractVersion = version
	return nil
}

// fakeMailer records sent messages.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

// fakeNegotiationRepo records inserted messages.
type fakeNegotiationRepo struct {
	inserted []*models.NegotiationMessage
}

func (f *fakeNegotiationRepo) Insert(_ context.Context, msg *models.NegotiationMessage) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	f.inserted = append(f.inserted, msg)
	return nil
}

// fakeLegalReviewRepo records inserted requests.
type fakeLegalReviewRepo struct {
	inserted []*models.LegalReviewRequest
}

func (f *fakeLegalReviewRepo) Insert(_ context.Context, req *models.LegalReviewRequest) error {
	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	if req.Status == "" {
		req.Status = "pending"
	}
	f.inserted = append(f.inserted, req)
	return nil
}
