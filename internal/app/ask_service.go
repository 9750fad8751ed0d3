package app

import (
	"context"
	"strings"

	"kbagent/internal/memory"
	"kbagent/internal/model"
	"kbagent/internal/retrieval"
)

// AskService is the read path: it resolves the session, retrieves the best
// grounding context for a question, and returns the full handoff the
// answer-generation collaborator needs (context text, source, memory
// window, similarity). It never calls a language model itself.
type AskService struct {
	orchestrator     *retrieval.Orchestrator
	memory           *memory.Service
	windowPairs      int
	contextCharLimit int
}

func NewAskService(orchestrator *retrieval.Orchestrator, mem *memory.Service, windowPairs, contextCharLimit int) *AskService {
	if windowPairs <= 0 {
		windowPairs = 3
	}
	if contextCharLimit <= 0 {
		contextCharLimit = 1500
	}
	return &AskService{
		orchestrator:     orchestrator,
		memory:           mem,
		windowPairs:      windowPairs,
		contextCharLimit: contextCharLimit,
	}
}

type AskInput struct {
	Question  string
	SessionID string
}

// ContextPayload is the retrieved grounding in handoff form. Text is capped
// at the configured character budget for prompt-size control.
type ContextPayload struct {
	Kind      string              `json:"kind"`
	ManualID  uint                `json:"manual_id"`
	Title     string              `json:"title"`
	SourceURL string              `json:"source_url"`
	Text      string              `json:"text"`
	Images    []model.ManualImage `json:"images,omitempty"`
}

type AskResult struct {
	SessionID  string          `json:"session_id"`
	Similarity float64         `json:"similarity"`
	Context    *ContextPayload `json:"context"`
	Memory     string          `json:"memory"`
}

// Ask handles one question. The memory window is taken before the new
// question is appended, so it contains only prior turns. A retrieval that
// finds nothing above threshold is a normal result with a nil context and
// similarity 0.
func (s *AskService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	conv, err := s.memory.EnsureSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	memoryContext, err := s.memory.RecentContext(ctx, conv, s.windowPairs)
	if err != nil {
		return nil, err
	}

	retrieved, similarity, err := s.orchestrator.RetrieveContext(ctx, question)
	if err != nil {
		return nil, err
	}

	result := &AskResult{
		SessionID:  conv.SessionID,
		Similarity: similarity,
		Memory:     memoryContext,
	}

	var relatedManualID uint
	if retrieved != nil {
		payload := s.buildPayload(retrieved)
		result.Context = payload
		relatedManualID = payload.ManualID
	}

	if err := s.memory.AppendTurn(ctx, conv, model.RoleQuestion, question, relatedManualID, similarity); err != nil {
		return nil, err
	}
	return result, nil
}

// RecordAnswer appends the generated answer turn for a session. Called by
// the answer-generation collaborator once it has drafted the reply.
func (s *AskService) RecordAnswer(ctx context.Context, sessionID, text string) error {
	text = strings.TrimSpace(text)
	if sessionID == "" || text == "" {
		return ErrInvalidInput
	}
	conv, err := s.memory.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrSessionNotFound
	}
	return s.memory.AppendTurn(ctx, conv, model.RoleAnswer, text, 0, 0)
}

// History returns the turn log for a session.
func (s *AskService) History(ctx context.Context, sessionID string) ([]model.Turn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidInput
	}
	conv, err := s.memory.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrSessionNotFound
	}
	return s.memory.History(ctx, conv)
}

// buildPayload converts the retrieval variant into the handoff shape,
// switching exhaustively on the closed context type.
func (s *AskService) buildPayload(c retrieval.Context) *ContextPayload {
	switch v := c.(type) {
	case retrieval.ManualContext:
		return &ContextPayload{
			Kind:      model.CollectionProcessedManual,
			ManualID:  v.ManualID,
			Title:     v.Title,
			SourceURL: v.SourceURL,
			Text:      capRunes(v.Markdown, s.contextCharLimit),
			Images:    v.Images,
		}
	case retrieval.AnswerContext:
		return &ContextPayload{
			Kind:      model.CollectionRawAnswer,
			ManualID:  v.ManualID,
			Title:     v.Title,
			SourceURL: v.SourceURL,
			Text:      capRunes(v.Content, s.contextCharLimit),
		}
	default:
		return nil
	}
}

func capRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
