package analysis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dealshield-inc/dealshield-engine/pkg/retry"
)

// maxContractSize caps contract downloads. Brand contracts are a few
// hundred KB at most; anything past this is not a document we can analyze.
const maxContractSize = 20 << 20 // 20 MiB

// Downloader fetches contract files over HTTP, retrying transient failures
// and giving up immediately on permanent ones (a 404 will not improve).
type Downloader struct {
	client *http.Client
}

// NewDownloader creates a downloader with a bounded request timeout.
func NewDownloader() *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads the contract at url and returns its bytes.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, NewValidationError("contract URL is required", "")
	}

	var data []byte
	err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		b, err := d.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, NewExternalError(fmt.Sprintf("failed to download contract from %s", url), err)
	}
	return data, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching contract", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxContractSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxContractSize {
		return nil, fmt.Errorf("contract file exceeds %d byte limit", maxContractSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("contract file is empty")
	}

	return data, nil
}
