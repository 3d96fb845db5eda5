// Package gemini implements pkg/embeddings' Embedder client for the Gemini
// embedding API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/stacks/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "text-embedding-004"

	// DefaultBaseURL is the default Gemini API URL.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
)

// Embedder wraps the Gemini embedding API.
type Embedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions uint
	httpClient *http.Client
}

// EmbedderConfig holds configuration for the Gemini embedder.
type EmbedderConfig struct {
	// BaseURL overrides the Gemini API URL. Defaults to DefaultBaseURL
	// if empty.
	BaseURL string

	// APIKey is the Gemini API key. Required.
	APIKey string

	// Model is the embedding model to use. Defaults to
	// DefaultEmbeddingModel if empty.
	Model string

	// Dimensions is the vector width the model produces.
	Dimensions uint
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type batchEmbedRequest struct {
	Requests []embedRequest `json:"requests"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// NewEmbedder creates a new embedder using the Gemini embedding API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{
		Model:   "models/" + e.model,
		Content: content{Parts: []part{{Text: text}}},
	}

	var embedResp embedResponse
	if err := e.post(ctx, ":embedContent", reqBody, &embedResp); err != nil {
		return nil, err
	}

	if len(embedResp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", embeddings.ErrEmbedding)
	}

	return embedResp.Embedding.Values, nil
}

// EmbedBatch converts a batch of texts into vector embeddings in a single
// request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	reqBody := batchEmbedRequest{
		Requests: make([]embedRequest, len(texts)),
	}
	for i, text := range texts {
		reqBody.Requests[i] = embedRequest{
			Model:   "models/" + e.model,
			Content: content{Parts: []part{{Text: text}}},
		}
	}

	var batchResp batchEmbedResponse
	if err := e.post(ctx, ":batchEmbedContents", reqBody, &batchResp); err != nil {
		return nil, err
	}

	if len(batchResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", embeddings.ErrEmbedding, len(texts), len(batchResp.Embeddings))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range batchResp.Embeddings {
		vectors[i] = emb.Values
	}

	return vectors, nil
}

func (e *Embedder) post(ctx context.Context, method string, reqBody, out any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s%s", e.baseURL, e.model, method)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending request: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: gemini returned status %d: %s", embeddings.ErrEmbedding, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, err)
	}

	return nil
}

// Dimensions reports the configured vector width.
func (e *Embedder) Dimensions() uint {
	return e.dimensions
}

// Name identifies the provider.
func (e *Embedder) Name() string {
	return "gemini"
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
