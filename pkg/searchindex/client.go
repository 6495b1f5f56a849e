package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// M is a free-form JSON object used to build index queries.
type M map[string]any

// Hit is a single ranked result as returned by the index.
type Hit struct {
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

// SearchResponse is the subset of the index search reply the system consumes.
type SearchResponse struct {
	Hits struct {
		Hits []Hit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

// Index abstracts the lexical/vector search backend. It supports multi-field
// fuzzy text search, k-NN vector search and term-filter scoping; callers build
// request bodies with the query helpers in this package.
type Index interface {
	Search(ctx context.Context, index string, body M) (*SearchResponse, error)
	Upsert(ctx context.Context, index, id string, doc any) error
	Bulk(ctx context.Context, lines []any) error
	Delete(ctx context.Context, index, id string) error
}

// Client talks to the search backend over its JSON HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Index = (*Client)(nil)

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Search runs a query against one index and returns the ranked hits.
func (c *Client) Search(ctx context.Context, index string, body M) (*SearchResponse, error) {
	raw, err := c.post(ctx, fmt.Sprintf("/%s/_search", index), body)
	if err != nil {
		return nil, err
	}

	var res SearchResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &res, nil
}

// Upsert writes one document, creating it if absent.
func (c *Client) Upsert(ctx context.Context, index, id string, doc any) error {
	_, err := c.post(ctx, fmt.Sprintf("/%s/_update/%s", index, id), M{
		"doc":           doc,
		"doc_as_upsert": true,
	})
	return err
}

// Bulk sends newline-delimited action/document pairs in one request.
func (c *Client) Bulk(ctx context.Context, lines []any) error {
	var buf bytes.Buffer
	for _, line := range lines {
		encoded, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("encode bulk line: %w", err)
		}
		buf.Write(encoded)
		buf.WriteByte('\n')
	}

	raw, err := c.do(ctx, http.MethodPost, "/_bulk", buf.Bytes())
	if err != nil {
		return err
	}

	var res struct {
		Errors bool `json:"errors"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if res.Errors {
		return fmt.Errorf("bulk insert reported item errors")
	}
	return nil
}

// Delete removes one document by id.
func (c *Client) Delete(ctx context.Context, index, id string) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/%s/_doc/%s", index, id), nil)
	return err
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, encoded)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "APIKey "+c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search backend request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("search backend error %d: %s", res.StatusCode, string(raw))
	}
	return raw, nil
}
