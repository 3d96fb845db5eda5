// Package gemini implements pkg/generation's Generator client for the
// Gemini generateContent API.
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

	"github.com/papercomputeco/stacks/pkg/generation"
)

const (
	// DefaultModel is the default model used for generation.
	DefaultModel = "gemini-1.5-flash"

	// DefaultBaseURL is the default Gemini API URL.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
)

// Generator wraps the Gemini generateContent API.
type Generator struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// GeneratorConfig holds configuration for the Gemini generator.
type GeneratorConfig struct {
	// BaseURL overrides the Gemini API URL. Defaults to DefaultBaseURL
	// if empty.
	BaseURL string

	// APIKey is the Gemini API key. Required.
	APIKey string

	// Model is the generation model to use. Defaults to DefaultModel if
	// empty.
	Model string
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// NewGenerator creates a new generator using the Gemini generateContent
// API.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
	}, nil
}

// Generate produces a completion for the given request.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: generation.RenderPrompt(req)}}},
		},
	}
	if req.System != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", generation.ErrGeneration, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", generation.ErrGeneration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %v", generation.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: gemini returned status %d: %s", generation.ErrGeneration, resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", generation.ErrGeneration, err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", generation.ErrGeneration)
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// Name identifies the provider.
func (g *Generator) Name() string {
	return "gemini"
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

var _ generation.Generator = (*Generator)(nil)
