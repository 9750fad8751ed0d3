package embedding

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable is returned when the embedding model or service cannot be
// reached, fails to load, or times out. Callers may retry, but must never
// substitute a zero vector for the missing embedding: a zero vector has no
// direction and would poison cosine ranking.
var ErrUnavailable = errors.New("embedding provider unavailable")

// ErrEmptyInput is returned when the input text is empty after trimming.
var ErrEmptyInput = errors.New("embedding input is empty")

// Provider converts text into a fixed-dimension vector. A given provider
// instance always returns vectors of Dimension() length. Implementations
// must be safe for concurrent use once constructed.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// PrepareInput trims text and truncates it to maxChars runes. Ingestion and
// query paths must run the same preparation so re-embeddings of the same
// logical text stay comparable. Returns ErrEmptyInput when nothing remains
// after trimming.
func PrepareInput(text string, maxChars int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	if maxChars > 0 {
		if runes := []rune(text); len(runes) > maxChars {
			text = string(runes[:maxChars])
		}
	}
	return text, nil
}
