package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealshield-inc/dealshield-engine/pkg/analysis"
	"github.com/dealshield-inc/dealshield-engine/pkg/models"
	"github.com/dealshield-inc/dealshield-engine/pkg/repositories"
)

// SecretHeader carries the shared secret on enqueue requests.
const SecretHeader = "X-Job-Secret"

const (
	// PollInterval is the delay between successive job row reads.
	PollInterval = 1 * time.Second
	// MaxPollAttempts bounds how many reads Poll performs before giving up.
	// The job itself keeps running server-side after the client stops waiting.
	MaxPollAttempts = 30
)

// Client enqueues AI jobs against the internal handler and polls the ai_jobs
// table for their completion. All generator call sites share this one client;
// the job kind parametrizes the behavior.
type Client struct {
	handlerURL string
	secret     string
	httpClient *http.Client
	jobRepo    repositories.JobRepository
	logger     *zap.Logger

	pollInterval    time.Duration
	maxPollAttempts int
}

// NewClient creates a jobs client. handlerURL is the full URL of the
// internal job handler endpoint.
func NewClient(handlerURL, secret string, jobRepo repositories.JobRepository, logger *zap.Logger) *Client {
	return &Client{
		handlerURL:      handlerURL,
		secret:          secret,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		jobRepo:         jobRepo,
		logger:          logger.Named("jobs_client"),
		pollInterval:    PollInterval,
		maxPollAttempts: MaxPollAttempts,
	}
}

type enqueueRequest struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type enqueueResponse struct {
	JobID uuid.UUID `json:"jobId"`
}

// Enqueue submits a job of the given kind. On the fast path the handler
// answers with the result directly and Enqueue returns it with a nil job ID.
// Otherwise it returns the ID of the accepted job for polling.
func (c *Client) Enqueue(ctx context.Context, kind string, payload any) (json.RawMessage, uuid.UUID, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	body, err := json.Marshal(enqueueRequest{Kind: kind, Payload: raw})
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to marshal enqueue request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.handlerURL, bytes.NewReader(body))
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to build enqueue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SecretHeader, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to enqueue %s job: %w", kind, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to read enqueue response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// Fast path: the handler produced the result synchronously.
		return json.RawMessage(respBody), uuid.Nil, nil
	case http.StatusAccepted:
		var accepted enqueueResponse
		if err := json.Unmarshal(respBody, &accepted); err != nil {
			return nil, uuid.Nil, fmt.Errorf("failed to decode enqueue response: %w", err)
		}
		return nil, accepted.JobID, nil
	default:
		return nil, uuid.Nil, fmt.Errorf("enqueue %s job returned status %d: %s", kind, resp.StatusCode, respBody)
	}
}

// Poll reads the job row until it reaches a terminal status or the retry
// limit runs out. Each attempt sleeps for the interval before reading, so a
// job enqueued moments ago is given time to land before the first read. A
// failed job surfaces its recorded error message; running out of attempts
// returns a timeout error while the job keeps executing in the background.
func (c *Client) Poll(ctx context.Context, jobID uuid.UUID) (json.RawMessage, error) {
	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("polling job %s: %w", jobID, ctx.Err())
		case <-time.After(c.pollInterval):
		}

		job, err := c.jobRepo.Get(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll job %s: %w", jobID, err)
		}

		switch job.Status {
		case models.JobStatusCompleted:
			return job.Result, nil
		case models.JobStatusFailed:
			var failure models.JobFailure
			if err := json.Unmarshal(job.Result, &failure); err != nil || failure.Error == "" {
				return nil, fmt.Errorf("job %s failed", jobID)
			}
			if failure.Kind != "" {
				return nil, &analysis.Error{
					Kind:    analysis.Kind(failure.Kind),
					Message: failure.Error,
					Details: failure.Details,
				}
			}
			return nil, fmt.Errorf("job %s failed: %s", jobID, failure.Error)
		}
	}

	c.logger.Warn("job polling exhausted", zap.String("job_id", jobID.String()))
	return nil, fmt.Errorf("job %s timed out after %d attempts; it may still complete in the background", jobID, c.maxPollAttempts)
}

// Await enqueues a job and waits for its result, taking the fast path when
// the handler offers one.
func (c *Client) Await(ctx context.Context, kind string, payload any) (json.RawMessage, error) {
	result, jobID, err := c.Enqueue(ctx, kind, payload)
	if err != nil {
		return nil, err
	}
	if jobID == uuid.Nil {
		return result, nil
	}
	return c.Poll(ctx, jobID)
}
