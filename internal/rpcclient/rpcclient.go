// Package rpcclient is the worker-side HTTP client for the coordinator's
// get_work/finish_work RPC pair (spec §6). Modeled on the donor bitcoin
// client's direct net/http usage for calls its RPC library doesn't wrap
// (scantxoutset, gettxoutsetinfo): a plain JSON-over-HTTP POST with a
// bearer token and an explicit timeout, since the coordinator speaks a
// small bespoke protocol rather than Bitcoin Core's JSON-RPC.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rawblock/beal-search/pkg/models"
)

// Client talks to one coordinator over HTTP.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// New returns a Client for the coordinator at baseURL (e.g.
// "http://localhost:8080"). authToken is sent as a bearer token when
// non-empty, matching internal/api.AuthMiddleware.
func New(baseURL, authToken string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type getWorkResponse struct {
	Done bool            `json:"done"`
	Work models.WorkSpec `json:"work"`
}

// GetWork requests the next shard. ok is false once the coordinator
// reports the a-axis exhausted.
func (c *Client) GetWork(ctx context.Context) (ws models.WorkSpec, ok bool, err error) {
	var resp getWorkResponse
	if err := c.post(ctx, "/api/v1/get_work", nil, &resp); err != nil {
		return models.WorkSpec{}, false, err
	}
	if resp.Done {
		return models.WorkSpec{}, false, nil
	}
	return resp.Work, true, nil
}

type finishWorkResponse struct {
	Duplicate bool `json:"duplicate"`
}

// FinishWork reports a shard's candidates. Safe to retry: a successful
// retry of a previously-delivered call returns duplicate=true rather
// than an error (spec §6, §8).
func (c *Client) FinishWork(ctx context.Context, shard models.Shard, candidates []models.Point) (duplicate bool, err error) {
	req := models.FinishWorkRequest{Shard: shard, Candidates: candidates}
	var resp finishWorkResponse
	if err := c.post(ctx, "/api/v1/finish_work", req, &resp); err != nil {
		return false, err
	}
	return resp.Duplicate, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: coordinator returned %d: %s", path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s: unmarshaling response: %w", path, err)
		}
	}
	return nil
}
