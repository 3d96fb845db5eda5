// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/papercomputeco/stacks/pkg/vector"
)

// Driver implements vector.Driver using Chroma's REST API. Collection IDs
// are resolved lazily and cached by name.
type Driver struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu            sync.RWMutex
	collectionIDs map[string]string
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// MaxRetries is how many times to attempt the initial heartbeat before
	// giving up. Defaults to 3.
	MaxRetries int

	// RetryDelay is the initial delay between heartbeat attempts.
	// Defaults to 1s. The delay doubles per attempt up to MaxRetryDelay.
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff between attempts. Defaults to 10s.
	MaxRetryDelay time.Duration
}

var _ vector.Driver = (*Driver)(nil)

// NewDriver creates a new Chroma vector driver. The server is probed with
// retries so the driver can come up alongside a still-starting Chroma.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 10 * time.Second
	}

	d := &Driver{
		baseURL: c.URL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger:        logger,
		collectionIDs: make(map[string]string),
	}

	if err := d.heartbeatWithRetry(context.Background(), c); err != nil {
		return nil, err
	}

	logger.Info("connected to Chroma", "url", c.URL)

	return d, nil
}

// heartbeatWithRetry probes the server until it responds or the retry
// budget is exhausted.
func (d *Driver) heartbeatWithRetry(ctx context.Context, c Config) error {
	url := fmt.Sprintf("%s/api/v2/heartbeat", d.baseURL)
	delay := c.RetryDelay

	var lastErr error
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return fmt.Errorf("creating heartbeat request: %w", err)
		}

		resp, err := d.httpClient.Do(req)
		if err == nil {
			status := resp.StatusCode
			resp.Body.Close()
			if status == http.StatusOK {
				return nil
			}
			lastErr = fmt.Errorf("heartbeat status %d", status)
		} else {
			lastErr = err
		}

		if attempt < c.MaxRetries {
			d.logger.Debug("chroma not ready, retrying",
				"attempt", attempt,
				"delay", delay,
			)
			time.Sleep(delay)
			delay *= 2
			if delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}
		}
	}

	return fmt.Errorf("%w: chroma unavailable after %d attempts: %v", vector.ErrConnection, c.MaxRetries, lastErr)
}

func (d *Driver) collectionsURL() string {
	return fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections", d.baseURL)
}

// ListCollections returns the names of all collections on the server.
func (d *Driver) ListCollections(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", d.collectionsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating list request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: listing collections: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to list collections: status %d: %s", resp.StatusCode, string(body))
	}

	var cols []chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&cols); err != nil {
		return nil, fmt.Errorf("decoding list response: %w", err)
	}

	d.mu.Lock()
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		d.collectionIDs[c.Name] = c.ID
		names = append(names, c.Name)
	}
	d.mu.Unlock()

	return names, nil
}

// EnsureCollection creates the named collection if it does not already exist.
func (d *Driver) EnsureCollection(ctx context.Context, name string, dimensions uint) error {
	if _, err := d.resolveCollection(ctx, name); err == nil {
		return nil
	}

	createBody := chromaCreateRequest{Name: name}
	if dimensions > 0 {
		createBody.Metadata = map[string]any{"dimensions": dimensions}
	}
	jsonBody, err := json.Marshal(createBody)
	if err != nil {
		return fmt.Errorf("marshaling create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.collectionsURL(), bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: creating collection: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to create collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return fmt.Errorf("decoding create response: %w", err)
	}

	d.mu.Lock()
	d.collectionIDs[name] = collection.ID
	d.mu.Unlock()

	d.logger.Debug("created collection", "name", name, "collection_id", collection.ID)

	return nil
}

// resolveCollection returns the Chroma ID for a collection name, fetching
// and caching it on first use.
func (d *Driver) resolveCollection(ctx context.Context, name string) (string, error) {
	d.mu.RLock()
	id, ok := d.collectionIDs[name]
	d.mu.RUnlock()
	if ok {
		return id, nil
	}

	url := fmt.Sprintf("%s/%s", d.collectionsURL(), name)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: getting collection: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", vector.ErrNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to get collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding collection response: %w", err)
	}

	d.mu.Lock()
	d.collectionIDs[name] = collection.ID
	d.mu.Unlock()

	return collection.ID, nil
}

// Add upserts chunks into the named collection.
func (d *Driver) Add(ctx context.Context, collection string, chunks []vector.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	id, err := d.resolveCollection(ctx, collection)
	if err != nil {
		return err
	}

	ids := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	documents := make([]string, len(chunks))
	metadatas := make([]map[string]any, len(chunks))

	for i, c := range chunks {
		ids[i] = c.ID
		embeddings[i] = c.Embedding
		documents[i] = c.Text
		metadatas[i] = metadataToAny(c.Metadata)
	}

	reqBody := chromaAddRequest{
		IDs:        ids,
		Embeddings: embeddings,
		Documents:  documents,
		Metadatas:  metadatas,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling upsert request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/upsert", d.collectionsURL(), id)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending upsert request: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to upsert chunks: status %d: %s", resp.StatusCode, string(body))
	}

	d.logger.Debug("upserted chunks to chroma",
		"collection", collection,
		"count", len(chunks),
	)

	return nil
}

// Query finds the topK nearest chunks to the given embedding.
func (d *Driver) Query(ctx context.Context, collection string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	return d.query(ctx, collection, chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
	}, topK)
}

// QueryText finds the topK nearest chunks to the given text, embedded
// server-side by the collection's embedding function.
func (d *Driver) QueryText(ctx context.Context, collection string, text string, topK int) ([]vector.QueryResult, error) {
	return d.query(ctx, collection, chromaQueryRequest{
		QueryTexts: []string{text},
	}, topK)
}

func (d *Driver) query(ctx context.Context, collection string, reqBody chromaQueryRequest, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	id, err := d.resolveCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	reqBody.NResults = topK
	reqBody.Include = []string{"metadatas", "documents", "distances"}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling query request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/query", d.collectionsURL(), id)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending query request: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to query: status %d: %s", resp.StatusCode, string(body))
	}

	var queryResp chromaQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}

	var results []vector.QueryResult

	// Process first group (we only query with one embedding or text)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	for i, chunkID := range ids {
		result := vector.QueryResult{
			Chunk:      vector.Chunk{ID: chunkID},
			Collection: collection,
		}

		if i < len(documents) {
			result.Text = documents[i]
		}

		if i < len(metadatas) && metadatas[i] != nil {
			result.Metadata = metadataFromAny(metadatas[i])
		}

		if i < len(distances) {
			result.Distance = distances[i]
		}

		results = append(results, result)
	}

	d.logger.Debug("queried chroma",
		"collection", collection,
		"results", len(results),
	)

	return results, nil
}

// Count returns the number of chunks in the named collection.
func (d *Driver) Count(ctx context.Context, collection string) (int, error) {
	id, err := d.resolveCollection(ctx, collection)
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/%s/count", d.collectionsURL(), id)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating count request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: sending count request: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("failed to count chunks: status %d: %s", resp.StatusCode, string(body))
	}

	// Chroma returns the count as a bare integer body.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading count response: %w", err)
	}

	count, err := strconv.Atoi(string(bytes.TrimSpace(body)))
	if err != nil {
		return 0, fmt.Errorf("decoding count response: %w", err)
	}

	return count, nil
}

// Peek returns up to limit chunks from the named collection.
func (d *Driver) Peek(ctx context.Context, collection string, limit int) ([]vector.Chunk, error) {
	id, err := d.resolveCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	reqBody := chromaGetRequest{
		Limit:   limit,
		Include: []string{"metadatas", "documents"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling get request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/get", d.collectionsURL(), id)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating get request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending get request: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get chunks: status %d: %s", resp.StatusCode, string(body))
	}

	var getResp chromaGetResponse
	if err := json.NewDecoder(resp.Body).Decode(&getResp); err != nil {
		return nil, fmt.Errorf("decoding get response: %w", err)
	}

	chunks := make([]vector.Chunk, len(getResp.IDs))
	for i, chunkID := range getResp.IDs {
		chunks[i] = vector.Chunk{ID: chunkID}

		if i < len(getResp.Documents) {
			chunks[i].Text = getResp.Documents[i]
		}

		if i < len(getResp.Metadatas) && getResp.Metadatas[i] != nil {
			chunks[i].Metadata = metadataFromAny(getResp.Metadatas[i])
		}
	}

	return chunks, nil
}

// DeleteCollection removes the named collection and all of its chunks.
func (d *Driver) DeleteCollection(ctx context.Context, collection string) error {
	url := fmt.Sprintf("%s/%s", d.collectionsURL(), collection)
	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("creating delete request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending delete request: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", vector.ErrNotFound, collection)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to delete collection: status %d: %s", resp.StatusCode, string(body))
	}

	d.mu.Lock()
	delete(d.collectionIDs, collection)
	d.mu.Unlock()

	d.logger.Debug("deleted collection", "name", collection)

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

func metadataToAny(m map[string]string) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func metadataFromAny(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
