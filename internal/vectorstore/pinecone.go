// Package vectorstore talks to the external document index. The index itself
// is an external collaborator: this package only embeds a query and asks for
// the top-K most similar passages.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nyayagpt/nyayagpt/models"
)

// Searcher returns the top-K passages most similar to a text query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.Passage, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// Pinecone is a Searcher backed by a Pinecone index over its REST API.
type Pinecone struct {
	apiKey         string
	indexHost      string
	embedder       Embedder
	embeddingModel string
	httpClient     *http.Client
}

// NewPinecone creates a Pinecone client and verifies the index is reachable.
// An unreachable index is a startup-fatal condition for the service, so the
// constructor surfaces the failure instead of deferring it to the first query.
func NewPinecone(ctx context.Context, apiKey, indexHost, embeddingModel string, embedder Embedder, timeout time.Duration) (*Pinecone, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone API key is required")
	}
	if indexHost == "" {
		return nil, fmt.Errorf("pinecone index host is required")
	}
	if !strings.HasPrefix(indexHost, "http://") && !strings.HasPrefix(indexHost, "https://") {
		indexHost = "https://" + indexHost
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	p := &Pinecone{
		apiKey:         apiKey,
		indexHost:      strings.TrimRight(indexHost, "/"),
		embedder:       embedder,
		embeddingModel: embeddingModel,
		httpClient:     &http.Client{Timeout: timeout},
	}
	if err := p.ping(ctx); err != nil {
		return nil, fmt.Errorf("pinecone index unavailable: %w", err)
	}
	return p, nil
}

// Health re-checks index reachability, for the status endpoint.
func (p *Pinecone) Health(ctx context.Context) error {
	return p.ping(ctx)
}

func (p *Pinecone) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.indexHost+"/describe_index_stats", bytes.NewBufferString("{}"))
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("describe_index_stats returned status %d", resp.StatusCode)
	}
	return nil
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string            `json:"id"`
		Score    float64           `json:"score"`
		Metadata map[string]string `json:"metadata"`
	} `json:"matches"`
}

// Search embeds query and returns up to k passages, most similar first.
func (p *Pinecone) Search(ctx context.Context, query string, k int) ([]models.Passage, error) {
	vec, err := p.embedder.Embed(ctx, p.embeddingModel, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	body, err := json.Marshal(queryRequest{Vector: vec, TopK: k, IncludeMetadata: true})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.indexHost+"/query", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned status %d", resp.StatusCode)
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	passages := make([]models.Passage, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		content := m.Metadata["text"]
		if content == "" {
			content = m.Metadata["content"]
		}
		passages = append(passages, models.Passage{
			Content: content,
			Title:   m.Metadata["title"],
			URL:     m.Metadata["url"],
		})
	}
	return passages, nil
}
