package vectorstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnavailable signals that the remote index service cannot be reached.
// Sync and hydrate fail fast on it rather than degrading silently.
var ErrUnavailable = errors.New("remote vector store unavailable")

// PineconeClient interfaces with the Pinecone REST API. Control-plane calls
// (index management) go to the control URL; data-plane calls go to each
// index's resolved host.
type PineconeClient struct {
	controlURL string
	apiKey     string
	httpClient *http.Client

	hosts *hostCache
}

func NewPineconeClient(controlURL, apiKey string) *PineconeClient {
	c := &PineconeClient{
		controlURL: strings.TrimSuffix(controlURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	c.hosts = newHostCache(c)
	return c
}

// Vector is one record in the remote index. ID is the content-derived
// identity key, never a database id.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IndexInfo describes one index from the control plane.
type IndexInfo struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
}

// Match is a single scored result from a query.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Values   []float32      `json:"values,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NamespaceStats reports the record count within one namespace.
type NamespaceStats struct {
	RecordCount int `json:"recordCount"`
}

// IndexStats aggregates per-namespace counts for one index.
type IndexStats struct {
	Namespaces map[string]NamespaceStats `json:"namespaces"`
	TotalCount int                       `json:"totalCount"`
}

// HealthCheck verifies the control plane is reachable.
func (c *PineconeClient) HealthCheck() error {
	_, err := c.ListIndexes()
	return err
}

// ListIndexes returns all indexes visible to the API key.
func (c *PineconeClient) ListIndexes() ([]IndexInfo, error) {
	body, err := c.do(http.MethodGet, c.controlURL+"/indexes", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Indexes []IndexInfo `json:"indexes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode index list: %w", err)
	}
	return resp.Indexes, nil
}

// CreateIndex creates a serverless index. Creating an index that already
// exists is not an error at this layer; the control plane's conflict status
// is surfaced as-is for the caller to inspect.
func (c *PineconeClient) CreateIndex(name string, dimension int, metric string) error {
	if metric == "" {
		metric = "cosine"
	}
	payload := map[string]any{
		"name":      name,
		"dimension": dimension,
		"metric":    metric,
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  "aws",
				"region": "us-east-1",
			},
		},
	}
	_, err := c.do(http.MethodPost, c.controlURL+"/indexes", payload)
	return err
}

// DeleteIndex removes an index entirely.
func (c *PineconeClient) DeleteIndex(name string) error {
	_, err := c.do(http.MethodDelete, c.controlURL+"/indexes/"+url.PathEscape(name), nil)
	if err == nil {
		c.hosts.forget(name)
	}
	return err
}

// DescribeIndex fetches one index's metadata, including its data-plane host.
func (c *PineconeClient) DescribeIndex(name string) (*IndexInfo, error) {
	body, err := c.do(http.MethodGet, c.controlURL+"/indexes/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	var info IndexInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode index description: %w", err)
	}
	return &info, nil
}

// Upsert writes vectors into a namespace. Existing ids are overwritten.
func (c *PineconeClient) Upsert(indexName, namespace string, vectors []Vector) error {
	host, err := c.hosts.resolve(indexName)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"vectors":   vectors,
		"namespace": namespace,
	}
	_, err = c.do(http.MethodPost, host+"/vectors/upsert", payload)
	return err
}

// Fetch returns the subset of ids that exist in the namespace, with values
// and metadata.
func (c *PineconeClient) Fetch(indexName, namespace string, ids []string) (map[string]Vector, error) {
	if len(ids) == 0 {
		return map[string]Vector{}, nil
	}
	host, err := c.hosts.resolve(indexName)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	for _, id := range ids {
		q.Add("ids", id)
	}
	q.Set("namespace", namespace)

	body, err := c.do(http.MethodGet, host+"/vectors/fetch?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Vectors map[string]Vector `json:"vectors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode fetch response: %w", err)
	}
	if resp.Vectors == nil {
		resp.Vectors = map[string]Vector{}
	}
	return resp.Vectors, nil
}

// Query finds the topK nearest vectors in a namespace.
func (c *PineconeClient) Query(indexName, namespace string, vector []float32, topK int) ([]Match, error) {
	host, err := c.hosts.resolve(indexName)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"namespace":       namespace,
		"includeValues":   true,
		"includeMetadata": true,
	}
	body, err := c.do(http.MethodPost, host+"/query", payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Matches []Match `json:"matches"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return resp.Matches, nil
}

// ListVectorIDs pages through all vector ids in a namespace, up to limit.
// A limit of 0 means no cap.
func (c *PineconeClient) ListVectorIDs(indexName, namespace string, limit int) ([]string, error) {
	host, err := c.hosts.resolve(indexName)
	if err != nil {
		return nil, err
	}

	var ids []string
	token := ""
	for {
		q := url.Values{}
		q.Set("namespace", namespace)
		q.Set("limit", "100")
		if token != "" {
			q.Set("paginationToken", token)
		}

		body, err := c.do(http.MethodGet, host+"/vectors/list?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Vectors []struct {
				ID string `json:"id"`
			} `json:"vectors"`
			Pagination struct {
				Next string `json:"next"`
			} `json:"pagination"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode list response: %w", err)
		}

		for _, v := range resp.Vectors {
			ids = append(ids, v.ID)
			if limit > 0 && len(ids) >= limit {
				return ids, nil
			}
		}

		token = resp.Pagination.Next
		if token == "" || len(resp.Vectors) == 0 {
			return ids, nil
		}
	}
}

// WipeNamespace deletes every vector in a namespace.
func (c *PineconeClient) WipeNamespace(indexName, namespace string) error {
	host, err := c.hosts.resolve(indexName)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"deleteAll": true,
		"namespace": namespace,
	}
	_, err = c.do(http.MethodPost, host+"/vectors/delete", payload)
	return err
}

// DescribeStats reports per-namespace record counts for an index.
func (c *PineconeClient) DescribeStats(indexName string) (*IndexStats, error) {
	host, err := c.hosts.resolve(indexName)
	if err != nil {
		return nil, err
	}
	body, err := c.do(http.MethodPost, host+"/describe_index_stats", map[string]any{})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Namespaces map[string]struct {
			VectorCount int `json:"vectorCount"`
		} `json:"namespaces"`
		TotalVectorCount int `json:"totalVectorCount"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode stats response: %w", err)
	}

	stats := &IndexStats{
		Namespaces: make(map[string]NamespaceStats, len(resp.Namespaces)),
		TotalCount: resp.TotalVectorCount,
	}
	for name, ns := range resp.Namespaces {
		stats.Namespaces[name] = NamespaceStats{RecordCount: ns.VectorCount}
	}
	return stats, nil
}

// do executes one JSON request. Transport-level failures map to
// ErrUnavailable; HTTP error statuses carry the response body.
func (c *PineconeClient) do(method, rawURL string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("pinecone %s %s: status %d: %s", method, rawURL, resp.StatusCode, string(body))
	}
	return body, nil
}
