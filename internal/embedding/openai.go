package embedding

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

// OpenAIConfig holds API settings for an OpenAI-compatible embeddings
// endpoint.
type OpenAIConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	Dimension     int
	Timeout       time.Duration
	MaxInputChars int
}

// OpenAIProvider calls a remote OpenAI-compatible /embeddings endpoint.
type OpenAIProvider struct {
	cfg        OpenAIConfig
	httpClient *http.Client
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAIProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *OpenAIProvider) Dimension() int {
	return p.cfg.Dimension
}

// Embed returns the embedding vector for the given text. Network failures,
// timeouts, and non-2xx responses are wrapped in ErrUnavailable so callers
// can fail fast without storing a partial vector.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	text, err := PrepareInput(text, p.cfg.MaxInputChars)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"model": p.cfg.Model,
		"input": text,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrUnavailable, err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding in response", ErrUnavailable)
	}
	vec := parsed.Data[0].Embedding
	if p.cfg.Dimension > 0 && len(vec) != p.cfg.Dimension {
		return nil, fmt.Errorf("%w: dimension mismatch: got %d, want %d", ErrUnavailable, len(vec), p.cfg.Dimension)
	}
	return vec, nil
}
