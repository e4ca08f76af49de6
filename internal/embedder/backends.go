package embedder

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

// Backend defaults
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIModel = "text-embedding-3-small"
	backendHTTPTimeout = 30 * time.Second
)

// OllamaBackend embeds texts through a local Ollama server.
type OllamaBackend struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewOllamaBackend creates an Ollama-backed embedder. An empty host falls
// back to the default local address; an empty model to the default
// embedding model.
func NewOllamaBackend(host, model string) (*OllamaBackend, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}

	return &OllamaBackend{
		host:  strings.TrimRight(host, "/"),
		model: model,
		httpClient: &http.Client{
			Timeout: backendHTTPTimeout,
		},
	}, nil
}

func (o *OllamaBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return retryWithBackoff(ctx, func() ([][]float32, error) {
		return o.callAPI(ctx, texts)
	})
}

func (o *OllamaBackend) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"model": o.model,
		"input": texts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			ErrBackendFailed, len(texts), len(apiResp.Embeddings))
	}
	return apiResp.Embeddings, nil
}

func (o *OllamaBackend) ID() string {
	return "ollama/" + o.model
}

func (o *OllamaBackend) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// OpenAIBackend embeds texts through the OpenAI embeddings API.
type OpenAIBackend struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIBackend creates an OpenAI-backed embedder. A missing API key is a
// construction error so the candidate chain can move on.
func NewOpenAIBackend(apiKey, model string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoBackend, EnvOpenAIAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIBackend{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: backendHTTPTimeout,
		},
	}, nil
}

func (o *OpenAIBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return retryWithBackoff(ctx, func() ([][]float32, error) {
		return o.callAPI(ctx, texts)
	})
}

func (o *OpenAIBackend) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": o.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			ErrBackendFailed, len(texts), len(apiResp.Data))
	}

	// The API documents index-ordered data; place by index to be safe.
	vectors := make([][]float32, len(texts))
	for i, data := range apiResp.Data {
		idx := data.Index
		if idx < 0 || idx >= len(vectors) {
			idx = i
		}
		vectors[idx] = data.Embedding
	}
	return vectors, nil
}

func (o *OpenAIBackend) ID() string {
	return "openai/" + o.model
}

func (o *OpenAIBackend) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
