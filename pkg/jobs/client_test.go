package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/analysis"
	"github.com/dealshield-inc/dealshield-engine/pkg/apperrors"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

// fakeJobRepo is an in-memory job store. Each Get pops the next scripted
// status for the job, holding the last one once the script runs out.
type fakeJobRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*models.Job
	scripts map[uuid.UUID][]models.JobStatus
	gets    int
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{
		jobs:    make(map[uuid.UUID]*models.Job),
		scripts: make(map[uuid.UUID][]models.JobStatus),
	}
}

func (f *fakeJobRepo) Create(ctx context.Context, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobRepo) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	job, ok := f.jobs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if script := f.scripts[id]; len(script) > 0 {
		job.Status = script[0]
		if len(script) > 1 {
			f.scripts[id] = script[1:]
		}
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return f.setStatus(id, models.JobStatusProcessing, nil)
}

func (f *fakeJobRepo) Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	return f.setStatus(id, models.JobStatusCompleted, result)
}

func (f *fakeJobRepo) Fail(ctx context.Context, id uuid.UUID, failure models.JobFailure) error {
	payload, _ := json.Marshal(failure)
	return f.setStatus(id, models.JobStatusFailed, payload)
}

func (f *fakeJobRepo) setStatus(id uuid.UUID, status models.JobStatus, result json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return apperrors.ErrNotFound
	}
	job.Status = status
	if result != nil {
		job.Result = result
	}
	return nil
}

func (f *fakeJobRepo) put(job *models.Job, script ...models.JobStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
	if len(script) > 0 {
		f.scripts[job.ID] = script
	}
}

func newTestClient(handlerURL string, repo *fakeJobRepo) *Client {
	c := NewClient(handlerURL, "test-secret", repo, zap.NewNop())
	c.pollInterval = time.Millisecond
	return c
}

func TestPollCompletedJob(t *testing.T) {
	repo := newFakeJobRepo()
	jobID := uuid.New()
	want := json.RawMessage(`{"contractHtml":"<p>safe</p>"}`)
	repo.put(
		&models.Job{ID: jobID, Kind: "generate-safe-contract", Result: want},
		models.JobStatusPending, models.JobStatusProcessing, models.JobStatusCompleted,
	)

	client := newTestClient("http://unused", repo)
	result, err := client.Poll(context.Background(), jobID)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(result))
}

func TestPollWaitsBeforeFirstRead(t *testing.T) {
	repo := newFakeJobRepo()
	jobID := uuid.New()
	repo.put(&models.Job{
		ID:     jobID,
		Status: models.JobStatusCompleted,
		Result: json.RawMessage(`{}`),
	})

	client := newTestClient("http://unused", repo)
	client.pollInterval = 25 * time.Millisecond

	start := time.Now()
	_, err := client.Poll(context.Background(), jobID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond,
		"each attempt sleeps for the interval before reading the job row")
	assert.Equal(t, 1, repo.gets)
}

func TestPollFailedJob(t *testing.T) {
	repo := newFakeJobRepo()
	jobID := uuid.New()
	repo.put(&models.Job{
		ID:     jobID,
		Status: models.JobStatusFailed,
		Result: json.RawMessage(`{"error":"model exploded"}`),
	})

	client := newTestClient("http://unused", repo)
	_, err := client.Poll(context.Background(), jobID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model exploded")
}

func TestPollFailedJobWithTaggedKind(t *testing.T) {
	repo := newFakeJobRepo()
	jobID := uuid.New()
	repo.put(&models.Job{
		ID:     jobID,
		Status: models.JobStatusFailed,
		Result: json.RawMessage(`{"error":"not a contract","kind":"validation","details":"recipe detected"}`),
	})

	client := newTestClient("http://unused", repo)
	_, err := client.Poll(context.Background(), jobID)
	require.Error(t, err)

	var tagged *analysis.Error
	require.ErrorAs(t, err, &tagged)
	assert.Equal(t, analysis.KindValidation, tagged.Kind)
	assert.Equal(t, "not a contract", tagged.Message)
}

func TestPollStuckJobTimesOut(t *testing.T) {
	repo := newFakeJobRepo()
	jobID := uuid.New()
	repo.put(&models.Job{ID: jobID, Status: models.JobStatusProcessing})

	client := newTestClient("http://unused", repo)
	_, err := client.Poll(context.Background(), jobID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Contains(t, err.Error(), "background")
	assert.Equal(t, MaxPollAttempts, repo.gets, "poller should stop at the attempt limit")
}

func TestPollContextCancellation(t *testing.T) {
	repo := newFakeJobRepo()
	jobID := uuid.New()
	repo.put(&models.Job{ID: jobID, Status: models.JobStatusProcessing})

	client := newTestClient("http://unused", repo)
	client.pollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Poll(ctx, jobID)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnqueueFastPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-secret", r.Header.Get(SecretHeader))
		var req enqueueRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "generate-fix", req.Kind)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"safeClause":"revised","explanation":"why"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, newFakeJobRepo())
	result, jobID, err := client.Enqueue(context.Background(), "generate-fix", map[string]string{"issue_id": "x"})
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, jobID, "fast path creates no job")
	assert.JSONEq(t, `{"safeClause":"revised","explanation":"why"}`, string(result))
}

func TestEnqueueSlowPath(t *testing.T) {
	queuedID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(enqueueResponse{JobID: queuedID})
	}))
	defer server.Close()

	client := newTestClient(server.URL, newFakeJobRepo())
	result, jobID, err := client.Enqueue(context.Background(), "analyze-contract", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, queuedID, jobID)
}

func TestEnqueueUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, newFakeJobRepo())
	_, _, err := client.Enqueue(context.Background(), "analyze-contract", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestAwaitFollowsSlowPath(t *testing.T) {
	repo := newFakeJobRepo()
	jobID := uuid.New()
	repo.put(
		&models.Job{ID: jobID, Result: json.RawMessage(`{"message":"dear brand"}`)},
		models.JobStatusProcessing, models.JobStatusCompleted,
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(enqueueResponse{JobID: jobID})
	}))
	defer server.Close()

	client := newTestClient(server.URL, repo)
	result, err := client.Await(context.Background(), "generate-negotiation-message", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"dear brand"}`, string(result))
}
