package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbagent/internal/model"
)

// fakeTurnLog is an in-memory TurnLog with the same ordering contract as
// the database repository: ids grow with insertion, RecentTurns is newest
// first, ListTurns is chronological.
type fakeTurnLog struct {
	conversations map[string]*model.Conversation
	turns         []model.Turn
	nextID        uint
}

func newFakeTurnLog() *fakeTurnLog {
	return &fakeTurnLog{
		conversations: make(map[string]*model.Conversation),
		nextID:        1,
	}
}

func (f *fakeTurnLog) FindBySession(ctx context.Context, sessionID string) (*model.Conversation, error) {
	return f.conversations[sessionID], nil
}

func (f *fakeTurnLog) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	conv.ID = f.nextID
	f.nextID++
	f.conversations[conv.SessionID] = conv
	return nil
}

func (f *fakeTurnLog) AppendTurn(ctx context.Context, turn *model.Turn) error {
	turn.ID = f.nextID
	f.nextID++
	f.turns = append(f.turns, *turn)
	return nil
}

func (f *fakeTurnLog) RecentTurns(ctx context.Context, conversationID uint, limit int) ([]model.Turn, error) {
	var all []model.Turn
	for _, t := range f.turns {
		if t.ConversationID == conversationID {
			all = append(all, t)
		}
	}
	var recent []model.Turn
	for i := len(all) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, all[i])
	}
	return recent, nil
}

func (f *fakeTurnLog) ListTurns(ctx context.Context, conversationID uint) ([]model.Turn, error) {
	var all []model.Turn
	for _, t := range f.turns {
		if t.ConversationID == conversationID {
			all = append(all, t)
		}
	}
	return all, nil
}

func TestEnsureSessionCreatesAndReuses(t *testing.T) {
	log := newFakeTurnLog()
	svc := NewService(log, nil)
	ctx := context.Background()

	created, err := svc.EnsureSession(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, created.SessionID)

	same, err := svc.EnsureSession(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, same.ID)

	other, err := svc.EnsureSession(ctx, "")
	require.NoError(t, err)
	assert.NotEqual(t, created.SessionID, other.SessionID)
}

func TestEnsureSessionAdoptsUnknownID(t *testing.T) {
	log := newFakeTurnLog()
	svc := NewService(log, nil)

	conv, err := svc.EnsureSession(context.Background(), "client-chosen-id")
	require.NoError(t, err)
	assert.Equal(t, "client-chosen-id", conv.SessionID)
}

func TestGetSessionDoesNotCreate(t *testing.T) {
	log := newFakeTurnLog()
	svc := NewService(log, nil)

	conv, err := svc.GetSession(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, conv)
	assert.Empty(t, log.conversations)
}

func TestRecentContextWindowAndFormat(t *testing.T) {
	log := newFakeTurnLog()
	svc := NewService(log, nil)
	ctx := context.Background()

	conv, err := svc.EnsureSession(ctx, "")
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		require.NoError(t, svc.AppendTurn(ctx, conv, model.RoleQuestion, fmt.Sprintf("q%d", i), 0, 0))
		require.NoError(t, svc.AppendTurn(ctx, conv, model.RoleAnswer, fmt.Sprintf("a%d", i), 0, 0))
	}

	// Eight turns stored, window of two pairs: only the last four turns,
	// oldest of those first.
	got, err := svc.RecentContext(ctx, conv, 2)
	require.NoError(t, err)
	assert.Equal(t, "Question: q3\nAnswer: a3\nQuestion: q4\nAnswer: a4", got)
}

func TestRecentContextShortHistory(t *testing.T) {
	log := newFakeTurnLog()
	svc := NewService(log, nil)
	ctx := context.Background()

	conv, err := svc.EnsureSession(ctx, "")
	require.NoError(t, err)
	require.NoError(t, svc.AppendTurn(ctx, conv, model.RoleQuestion, "only question", 5, 0.82))

	got, err := svc.RecentContext(ctx, conv, 3)
	require.NoError(t, err)
	assert.Equal(t, "Question: only question", got)
}

func TestRecentContextZeroWindow(t *testing.T) {
	svc := NewService(newFakeTurnLog(), nil)

	got, err := svc.RecentContext(context.Background(), &model.Conversation{ID: 1}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistoryWithoutCache(t *testing.T) {
	log := newFakeTurnLog()
	svc := NewService(log, nil)
	ctx := context.Background()

	conv, err := svc.EnsureSession(ctx, "")
	require.NoError(t, err)
	require.NoError(t, svc.AppendTurn(ctx, conv, model.RoleQuestion, "q1", 0, 0.5))
	require.NoError(t, svc.AppendTurn(ctx, conv, model.RoleAnswer, "a1", 0, 0))

	turns, err := svc.History(ctx, conv)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleQuestion, turns[0].Role)
	assert.Equal(t, model.RoleAnswer, turns[1].Role)
}

func TestFormatTurnsUnknownRolePassesThrough(t *testing.T) {
	got := FormatTurns([]model.Turn{{Role: "system", Text: "hello"}})
	assert.Equal(t, "system: hello", got)
}
