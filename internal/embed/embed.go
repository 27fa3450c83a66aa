// Package embed talks to the text-embedding collaborator. The rest of the
// system treats embedding as an opaque function text → fixed-length vector;
// this package pins the dimension and the input-length contract.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Dimension is the fixed embedding width. Every stored vector has exactly
// this many components.
const Dimension = 384

// MaxInputChars bounds the text sent to the model; longer inputs are
// truncated before the call (the model's own token window is smaller).
const MaxInputChars = 2000

// Embedder converts text into a fixed-length dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Client is an Embedder backed by an Ollama-compatible /api/embed endpoint.
// The model is loaded server-side on first use, so the first call may take
// noticeably longer than the rest; that is a latency contract, not an error.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client

	warmOnce sync.Once
}

// NewClient creates a Client for the given service base URL and model name.
func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			// First call can block on model load; no client-side cap.
			Timeout: 0,
		},
	}
}

// Dimension returns the fixed vector width.
func (c *Client) Dimension() int { return Dimension }

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns the embedding vector for text, truncated to MaxInputChars.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > MaxInputChars {
		text = text[:MaxInputChars]
	}

	c.warmOnce.Do(func() {
		// One-time reachability probe so the caller gets a fast, clear
		// failure instead of a hung model load when the service is down.
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/api/tags", nil)
		if err != nil {
			return
		}
		if resp, err := c.httpClient.Do(req); err == nil {
			resp.Body.Close()
		}
	})

	body, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: unexpected status %d", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("embed: empty embeddings array")
	}

	vec := result.Embeddings[0]
	if len(vec) != Dimension {
		return nil, fmt.Errorf("embed: got %d-dimensional vector, want %d", len(vec), Dimension)
	}
	return vec, nil
}

// Batch embeds multiple texts with bounded concurrency. Returns nil for
// empty input.
func Batch(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(gCtx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
