// Package remote implements the client for the hosted knowledge-base API.
// When a remote is configured, record operations route through it instead
// of the local store; the wire shapes mirror the local types.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	kberr "github.com/errsolve/errsolve/internal/errors"
	"github.com/errsolve/errsolve/internal/solution"
)

// Client talks to a hosted knowledge-base service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client for the given base URL. The API key may be
// empty for services that do not require authentication.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return kberr.NewRemoteUnavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return kberr.NewNotFound(path)
	case resp.StatusCode == http.StatusBadRequest:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return kberr.NewInvalidRequest(fmt.Sprintf("remote rejected request: %s", strings.TrimSpace(string(msg))))
	case resp.StatusCode >= 400:
		return kberr.NewRemoteUnavailable(fmt.Errorf("remote returned status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return kberr.NewRemoteUnavailable(fmt.Errorf("decoding remote response: %w", err))
	}
	return nil
}

type saveResponse struct {
	ID string `json:"id"`
}

// Save uploads a record and returns the identifier assigned by the service.
func (c *Client) Save(ctx context.Context, s *solution.Solution) (string, error) {
	var resp saveResponse
	if err := c.do(ctx, http.MethodPost, "/v1/solutions", s, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// GetByID fetches a single record.
func (c *Client) GetByID(ctx context.Context, id string) (*solution.Solution, error) {
	var s solution.Solution
	if err := c.do(ctx, http.MethodGet, "/v1/solutions/"+url.PathEscape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

type batchGetRequest struct {
	IDs []string `json:"ids"`
}

type batchGetResponse struct {
	Solutions []*solution.Solution `json:"solutions"`
}

// GetByIDs fetches multiple records in one round trip. Identifiers with no
// record are omitted from the result, matching local behavior.
func (c *Client) GetByIDs(ctx context.Context, ids []string) ([]*solution.Solution, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var resp batchGetResponse
	if err := c.do(ctx, http.MethodPost, "/v1/solutions/batch-get", batchGetRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return resp.Solutions, nil
}

// Delete removes a record. Returns whether the record existed.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	err := c.do(ctx, http.MethodDelete, "/v1/solutions/"+url.PathEscape(id), nil, nil)
	if kberr.Is(err, kberr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	Mode  string `json:"mode,omitempty"`
}

type searchResponse struct {
	Results []solution.SearchResult `json:"results"`
	Total   int                     `json:"total"`
}

// Search runs a query on the remote index. Older service versions reject
// the mode parameter; on rejection the query is retried without it.
func (c *Client) Search(ctx context.Context, query string, limit int, mode string) ([]solution.SearchResult, error) {
	var resp searchResponse
	err := c.do(ctx, http.MethodPost, "/v1/search", searchRequest{Query: query, Limit: limit, Mode: mode}, &resp)
	if mode != "" && kberr.Is(err, kberr.ErrInvalidRequest) {
		err = c.do(ctx, http.MethodPost, "/v1/search", searchRequest{Query: query, Limit: limit}, &resp)
	}
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Count returns the number of records on the remote. Services without a
// dedicated count endpoint report the total through an empty search.
func (c *Client) Count(ctx context.Context) (int, error) {
	var resp searchResponse
	err := c.do(ctx, http.MethodGet, "/v1/solutions/count", nil, &resp)
	if kberr.Is(err, kberr.ErrNotFound) {
		err = c.do(ctx, http.MethodPost, "/v1/search", searchRequest{Query: "", Limit: 1}, &resp)
	}
	if err != nil {
		return 0, err
	}
	return resp.Total, nil
}
