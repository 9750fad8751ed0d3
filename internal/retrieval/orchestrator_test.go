package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbagent/internal/model"
)

type stubProvider struct {
	vec []float32
	err error
}

func (p *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.vec, p.err
}

func (p *stubProvider) Dimension() int { return len(p.vec) }

type stubAnswerSource struct {
	answers []model.Answer
}

func (s *stubAnswerSource) ListCandidates(ctx context.Context) ([]model.Answer, error) {
	return s.answers, nil
}

type stubCuratedSource struct {
	manuals []model.ProcessedManual
	images  map[uint][]model.ManualImage
}

func (s *stubCuratedSource) ListCandidates(ctx context.Context) ([]model.ProcessedManual, error) {
	return s.manuals, nil
}

func (s *stubCuratedSource) ListImages(ctx context.Context, processedManualID uint) ([]model.ManualImage, error) {
	return s.images[processedManualID], nil
}

type stubManualResolver struct {
	manuals map[uint]*model.Manual
}

func (s *stubManualResolver) GetManual(ctx context.Context, id uint) (*model.Manual, error) {
	return s.manuals[id], nil
}

func answerWithVector(id, manualID uint, content string, vec []float32) model.Answer {
	a := model.Answer{ID: id, ManualID: manualID, Content: content}
	a.SetVector(vec)
	return a
}

func processedWithVector(id, manualID uint, title, markdown string, vec []float32) model.ProcessedManual {
	m := model.ProcessedManual{ID: id, ManualID: manualID, Title: title, Markdown: markdown}
	m.SetVector(vec)
	return m
}

func newTestOrchestrator(provider *stubProvider, answers []model.Answer, curated []model.ProcessedManual) *Orchestrator {
	return NewOrchestrator(
		provider,
		&stubAnswerSource{answers: answers},
		&stubCuratedSource{
			manuals: curated,
			images: map[uint][]model.ManualImage{
				10: {{URL: "https://cdn.example.com/fig1.png", Position: 0}},
			},
		},
		&stubManualResolver{manuals: map[uint]*model.Manual{
			1: {ID: 1, Title: "Billing Manual", SourceURL: "https://kb.example.com/billing"},
		}},
		Options{MinSimilarity: 0.4, TopK: 3},
	)
}

func TestRetrieveContextPrefersCuratedOnTie(t *testing.T) {
	// Both collections score identically against the query; the curated
	// record must win the tie.
	query := []float32{1, 0}
	orch := newTestOrchestrator(
		&stubProvider{vec: query},
		[]model.Answer{answerWithVector(1, 1, "raw text", []float32{1, 0.1})},
		[]model.ProcessedManual{processedWithVector(10, 1, "Billing Manual", "# Billing", []float32{1, 0.1})},
	)

	got, sim, err := orch.RetrieveContext(context.Background(), "how do I pay")
	require.NoError(t, err)
	require.NotNil(t, got)

	manualCtx, ok := got.(ManualContext)
	require.True(t, ok, "expected the curated variant, got %T", got)
	assert.Equal(t, "# Billing", manualCtx.Markdown)
	assert.Len(t, manualCtx.Images, 1)
	assert.Equal(t, manualCtx.Similarity, sim)
}

func TestRetrieveContextPicksStrongerAnswer(t *testing.T) {
	query := []float32{1, 0}
	orch := newTestOrchestrator(
		&stubProvider{vec: query},
		[]model.Answer{answerWithVector(1, 1, "raw text", []float32{1, 0.05})},
		[]model.ProcessedManual{processedWithVector(10, 1, "Billing Manual", "# Billing", []float32{1, 1})},
	)

	got, sim, err := orch.RetrieveContext(context.Background(), "how do I pay")
	require.NoError(t, err)

	answerCtx, ok := got.(AnswerContext)
	require.True(t, ok, "expected the raw-answer variant, got %T", got)
	assert.Equal(t, "raw text", answerCtx.Content)
	assert.Equal(t, "Billing Manual", answerCtx.Title)
	assert.Equal(t, "https://kb.example.com/billing", answerCtx.SourceURL)
	assert.Greater(t, sim, 0.9)
}

func TestRetrieveContextNoMatchIsNotAnError(t *testing.T) {
	query := []float32{1, 0}
	orch := newTestOrchestrator(
		&stubProvider{vec: query},
		[]model.Answer{answerWithVector(1, 1, "raw text", []float32{0, 1})},
		[]model.ProcessedManual{processedWithVector(10, 1, "Billing Manual", "# Billing", []float32{-1, 0})},
	)

	got, sim, err := orch.RetrieveContext(context.Background(), "unrelated question")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, sim)
}

func TestRetrieveContextSkipsCorruptEmbeddings(t *testing.T) {
	// The curated record has no usable vector, so the weaker but valid raw
	// answer must be returned instead.
	query := []float32{1, 0}
	corrupt := model.ProcessedManual{ID: 10, ManualID: 1, Title: "Billing Manual", Markdown: "# Billing", Embedding: "not-json"}
	orch := newTestOrchestrator(
		&stubProvider{vec: query},
		[]model.Answer{answerWithVector(1, 1, "raw text", []float32{1, 0.2})},
		[]model.ProcessedManual{corrupt},
	)

	got, _, err := orch.RetrieveContext(context.Background(), "how do I pay")
	require.NoError(t, err)
	_, ok := got.(AnswerContext)
	assert.True(t, ok, "expected the raw-answer variant, got %T", got)
}

func TestRetrieveContextHonorsZeroThreshold(t *testing.T) {
	// Similarity ~0.2 clears a deliberately configured threshold of 0; the
	// constructor must not silently substitute a default.
	query := []float32{1, 0}
	orch := NewOrchestrator(
		&stubProvider{vec: query},
		&stubAnswerSource{answers: []model.Answer{answerWithVector(1, 1, "raw text", []float32{0.2, 1})}},
		&stubCuratedSource{},
		&stubManualResolver{manuals: map[uint]*model.Manual{}},
		Options{MinSimilarity: 0},
	)

	got, sim, err := orch.RetrieveContext(context.Background(), "weak match")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 0.4)
}
