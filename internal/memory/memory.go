package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kbagent/internal/model"
)

// TurnLog is the persistence contract for conversations. Implemented by
// repository.ConversationRepository.
type TurnLog interface {
	FindBySession(ctx context.Context, sessionID string) (*model.Conversation, error)
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	AppendTurn(ctx context.Context, turn *model.Turn) error
	// RecentTurns returns up to limit turns, most recent first.
	RecentTurns(ctx context.Context, conversationID uint, limit int) ([]model.Turn, error)
	// ListTurns returns the whole log in chronological order.
	ListTurns(ctx context.Context, conversationID uint) ([]model.Turn, error)
}

// Service tracks the bounded question/answer history of each session. Turns
// are append-only; the service never mutates or reorders what it has
// written.
type Service struct {
	log   TurnLog
	cache *TurnCache
}

func NewService(log TurnLog, cache *TurnCache) *Service {
	return &Service{log: log, cache: cache}
}

// EnsureSession resolves sessionID to a conversation, creating one when the
// id is empty (first turn) or unknown. New sessions get an opaque uuid
// handle.
func (s *Service) EnsureSession(ctx context.Context, sessionID string) (*model.Conversation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID != "" {
		conv, err := s.log.FindBySession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("find session: %w", err)
		}
		if conv != nil {
			return conv, nil
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	conv := &model.Conversation{SessionID: sessionID}
	if err := s.log.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return conv, nil
}

// GetSession resolves sessionID without creating anything; nil when the
// session does not exist.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*model.Conversation, error) {
	conv, err := s.log.FindBySession(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return conv, nil
}

// AppendTurn records one question or answer turn. The cached history for
// the session is marked dirty and dropped; cache upkeep is best effort and
// never fails the request.
func (s *Service) AppendTurn(ctx context.Context, conv *model.Conversation, role, text string, relatedManualID uint, similarity float64) error {
	turn := &model.Turn{
		ConversationID:  conv.ID,
		Role:            role,
		Text:            text,
		RelatedManualID: relatedManualID,
		Similarity:      similarity,
		CreatedAt:       time.Now(),
	}
	if err := s.log.AppendTurn(ctx, turn); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.MarkDirty(ctx, conv.SessionID)
		_ = s.cache.Delete(ctx, conv.SessionID)
	}
	return nil
}

// RecentContext formats the most recent limitPairs question/answer pairs as
// prompt context. The window is selected by recency (last 2*limitPairs
// turns) and then presented chronologically, one "<Role>: <text>" line per
// turn, newline-joined. The exact shape matters: the answer-generation step
// builds prompts from this string verbatim.
func (s *Service) RecentContext(ctx context.Context, conv *model.Conversation, limitPairs int) (string, error) {
	if limitPairs <= 0 {
		return "", nil
	}
	recent, err := s.log.RecentTurns(ctx, conv.ID, 2*limitPairs)
	if err != nil {
		return "", fmt.Errorf("recent turns: %w", err)
	}
	// RecentTurns is newest-first; re-reverse into chronological order.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return FormatTurns(recent), nil
}

// History returns the full turn log, serving from the redis cache when it
// is present and clean.
func (s *Service) History(ctx context.Context, conv *model.Conversation) ([]model.Turn, error) {
	if s.cache != nil {
		if dirty, err := s.cache.IsDirty(ctx, conv.SessionID); err == nil && !dirty {
			if cached, hit, err := s.cache.GetTurns(ctx, conv.SessionID); err == nil && hit {
				return cached, nil
			}
		}
	}
	turns, err := s.log.ListTurns(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	if s.cache != nil {
		if dirty, err := s.cache.IsDirty(ctx, conv.SessionID); err == nil && !dirty {
			_ = s.cache.SetTurns(ctx, conv.SessionID, turns)
		}
	}
	return turns, nil
}

// FormatTurns renders turns as "<Role>: <text>" lines in the order given.
func FormatTurns(turns []model.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, roleLabel(t.Role)+": "+t.Text)
	}
	return strings.Join(lines, "\n")
}

func roleLabel(role string) string {
	switch role {
	case model.RoleQuestion:
		return "Question"
	case model.RoleAnswer:
		return "Answer"
	default:
		return role
	}
}
