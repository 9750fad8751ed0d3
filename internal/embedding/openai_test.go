package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, dimension int) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAIProvider(OpenAIConfig{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		Model:         "test-embedding",
		Dimension:     dimension,
		MaxInputChars: 5000,
	})
}

func TestOpenAIEmbed(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-embedding", body.Model)
		assert.Equal(t, "what is a refund", body.Input)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}, 3)

	vec, err := provider.Embed(context.Background(), "  what is a refund  ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOpenAIEmbedServerError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}, 3)

	_, err := provider.Embed(context.Background(), "question")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIEmbedMalformedResponse(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}, 3)

	_, err := provider.Embed(context.Background(), "question")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIEmbedEmptyData(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}, 3)

	_, err := provider.Embed(context.Background(), "question")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIEmbedDimensionMismatch(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2]}]}`))
	}, 3)

	_, err := provider.Embed(context.Background(), "question")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIEmbedEmptyInput(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	}, 3)

	_, err := provider.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestOpenAIEmbedConnectionRefused(t *testing.T) {
	provider := NewOpenAIProvider(OpenAIConfig{
		BaseURL: "http://127.0.0.1:1",
		Model:   "test-embedding",
	})

	_, err := provider.Embed(context.Background(), "question")
	assert.ErrorIs(t, err, ErrUnavailable)
}
