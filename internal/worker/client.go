package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skillscope/internal/domain"
)

// Client talks to the core's enrichment queue over its RPC surface,
// authenticating as a registered worker identity.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s (status %d)", path, env.Message, resp.StatusCode)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// ClaimEnrichmentJobs claims up to limit jobs.
func (c *Client) ClaimEnrichmentJobs(ctx context.Context, limit int) ([]domain.PendingEnrichmentJob, error) {
	var jobs []domain.PendingEnrichmentJob
	err := c.post(ctx, "/v1/enrichment/claim", map[string]int{"limit": limit}, &jobs)
	return jobs, err
}

// SubmitResult reports a finished fetch, found or not.
func (c *Client) SubmitResult(ctx context.Context, jobID string, result domain.EnrichmentResult) error {
	return c.post(ctx, "/v1/enrichment/result", map[string]any{
		"job_id": jobID,
		"result": result,
	}, nil)
}

// SubmitError reports a transient failure so the requester sees it.
func (c *Client) SubmitError(ctx context.Context, jobID, message string) error {
	return c.post(ctx, "/v1/enrichment/error", map[string]string{
		"job_id": jobID,
		"error":  message,
	}, nil)
}
