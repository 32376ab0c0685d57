package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/analysis"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

type fastFakeExecutor struct {
	fastResult json.RawMessage
	execResult json.RawMessage
	execErr    error
	execCalls  int
}

func (f *fastFakeExecutor) TryFast(ctx context.Context, payload json.RawMessage) (json.RawMessage, bool, error) {
	if f.fastResult != nil {
		return f.fastResult, true, nil
	}
	return nil, false, nil
}

func (f *fastFakeExecutor) Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	f.execCalls++
	return f.execResult, f.execErr
}

func postJob(t *testing.T, handler *Handler, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/internal/ai-jobs", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)
	return rec
}

func TestHandlerRejectsBadSecret(t *testing.T) {
	handler := NewHandler("right", NewRegistry(), newFakeJobRepo(), zap.NewNop())

	rec := postJob(t, handler, "wrong", `{"kind":"analyze-contract"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJob(t, handler, "", `{"kind":"analyze-contract"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerRejectsUnknownKind(t *testing.T) {
	handler := NewHandler("s", NewRegistry(), newFakeJobRepo(), zap.NewNop())

	rec := postJob(t, handler, "s", `{"kind":"mint-nft"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "mint-nft")
}

func TestHandlerFastPath(t *testing.T) {
	registry := NewRegistry()
	exec := &fastFakeExecutor{fastResult: json.RawMessage(`{"safeClause":"cached"}`)}
	registry.Register("generate-fix", exec)
	repo := newFakeJobRepo()
	handler := NewHandler("s", registry, repo, zap.NewNop())

	rec := postJob(t, handler, "s", `{"kind":"generate-fix","payload":{}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"safeClause":"cached"}`, rec.Body.String())
	assert.Equal(t, 0, exec.execCalls, "fast path must not run the executor")
	assert.Empty(t, repo.jobs, "fast path must not create a job row")
}

func TestHandlerSlowPathCompletes(t *testing.T) {
	registry := NewRegistry()
	exec := &fastFakeExecutor{execResult: json.RawMessage(`{"message":"drafted"}`)}
	registry.Register("generate-negotiation-message", exec)
	repo := newFakeJobRepo()
	handler := NewHandler("s", registry, repo, zap.NewNop())

	rec := postJob(t, handler, "s", `{"kind":"generate-negotiation-message","payload":{}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp enqueueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEqual(t, uuid.Nil, resp.JobID)

	require.Eventually(t, func() bool {
		job, err := repo.Get(context.Background(), resp.JobID)
		return err == nil && job.Status == models.JobStatusCompleted
	}, time.Second, 5*time.Millisecond)

	job, err := repo.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"drafted"}`, string(job.Result))
}

func TestHandlerSlowPathRecordsFailure(t *testing.T) {
	registry := NewRegistry()
	registry.Register("analyze-contract", ExecutorFunc(func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		return nil, analysis.NewValidationError("not a contract", "spreadsheet detected")
	}))
	repo := newFakeJobRepo()
	handler := NewHandler("s", registry, repo, zap.NewNop())

	rec := postJob(t, handler, "s", `{"kind":"analyze-contract","payload":{"contract_url":"x"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp enqueueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Eventually(t, func() bool {
		job, err := repo.Get(context.Background(), resp.JobID)
		return err == nil && job.Status == models.JobStatusFailed
	}, time.Second, 5*time.Millisecond)

	job, err := repo.Get(context.Background(), resp.JobID)
	require.NoError(t, err)

	var failure models.JobFailure
	require.NoError(t, json.Unmarshal(job.Result, &failure))
	assert.Equal(t, "not a contract", failure.Error)
	assert.Equal(t, "validation", failure.Kind)
	assert.Equal(t, "spreadsheet detected", failure.Details)
}

func TestHandlerFastPathErrorFallsBackToAsync(t *testing.T) {
	registry := NewRegistry()
	calls := 0
	registry.Register("generate-fix", &fallthroughExecutor{calls: &calls})
	repo := newFakeJobRepo()
	handler := NewHandler("s", registry, repo, zap.NewNop())

	rec := postJob(t, handler, "s", `{"kind":"generate-fix","payload":{}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp enqueueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Eventually(t, func() bool {
		job, err := repo.Get(context.Background(), resp.JobID)
		return err == nil && job.Status == models.JobStatusCompleted
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, calls)
}

type fallthroughExecutor struct {
	calls *int
}

func (f *fallthroughExecutor) TryFast(ctx context.Context, payload json.RawMessage) (json.RawMessage, bool, error) {
	return nil, false, errors.New("lookup unavailable")
}

func (f *fallthroughExecutor) Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	*f.calls++
	return json.RawMessage(`{}`), nil
}
