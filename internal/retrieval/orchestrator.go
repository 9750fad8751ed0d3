package retrieval

import (
	"context"
	"fmt"

	"kbagent/internal/embedding"
	"kbagent/internal/model"
)

// AnswerSource lists raw-answer candidates in insertion order.
type AnswerSource interface {
	ListCandidates(ctx context.Context) ([]model.Answer, error)
}

// ProcessedManualSource lists curated candidates in insertion order and
// resolves their related images.
type ProcessedManualSource interface {
	ListCandidates(ctx context.Context) ([]model.ProcessedManual, error)
	ListImages(ctx context.Context, processedManualID uint) ([]model.ManualImage, error)
}

// ManualResolver looks up the parent manual of a raw answer, for source
// attribution.
type ManualResolver interface {
	GetManual(ctx context.Context, id uint) (*model.Manual, error)
}

// Options are the retrieval knobs. MinSimilarity is applied as given: 0 is
// a real threshold (cosine ranges over [-1, 1]), not "unset", so the 0.4
// default lives in the config layer. TopK falls back to 3 when left zero.
type Options struct {
	MinSimilarity float64
	TopK          int
}

// Orchestrator embeds a query once and ranks the two vector record
// collections independently, then merges the best of each. It owns the
// EmbeddingProvider instance instead of reaching for a process global.
type Orchestrator struct {
	provider embedding.Provider
	answers  AnswerSource
	curated  ProcessedManualSource
	manuals  ManualResolver
	opts     Options
}

func NewOrchestrator(
	provider embedding.Provider,
	answers AnswerSource,
	curated ProcessedManualSource,
	manuals ManualResolver,
	opts Options,
) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	return &Orchestrator{
		provider: provider,
		answers:  answers,
		curated:  curated,
		manuals:  manuals,
		opts:     opts,
	}
}

// RetrieveContext finds the stored record most relevant to queryText.
//
// Merge policy: when both collections clear the threshold, the curated
// processed-manual match wins whenever its similarity is greater than or
// equal to the raw-answer similarity; curated content is considered higher
// quality, so it also takes ties. With no match anywhere the result is
// (nil, 0.0) and no error — "nothing relevant" is a normal outcome, not a
// failure.
func (o *Orchestrator) RetrieveContext(ctx context.Context, queryText string) (Context, float64, error) {
	queryVec, err := o.provider.Embed(ctx, queryText)
	if err != nil {
		return nil, 0, fmt.Errorf("embed query: %w", err)
	}

	curated, err := o.curated.ListCandidates(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list processed manuals: %w", err)
	}
	bestManual, manualOK := BestMatch(queryVec, curated, func(m model.ProcessedManual) []float32 {
		return m.Vector()
	}, o.opts.MinSimilarity)

	answers, err := o.answers.ListCandidates(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list answers: %w", err)
	}
	bestAnswer, answerOK := BestMatch(queryVec, answers, func(a model.Answer) []float32 {
		return a.Vector()
	}, o.opts.MinSimilarity)

	switch {
	case manualOK && (!answerOK || bestManual.Similarity >= bestAnswer.Similarity):
		return o.manualContext(ctx, bestManual)
	case answerOK:
		return o.answerContext(ctx, bestAnswer)
	default:
		return nil, 0, nil
	}
}

func (o *Orchestrator) manualContext(ctx context.Context, m Match[model.ProcessedManual]) (Context, float64, error) {
	images, err := o.curated.ListImages(ctx, m.Record.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("list manual images: %w", err)
	}
	return ManualContext{
		ManualID:   m.Record.ManualID,
		Title:      m.Record.Title,
		SourceURL:  m.Record.SourceURL,
		Markdown:   m.Record.Markdown,
		Images:     images,
		Similarity: m.Similarity,
	}, m.Similarity, nil
}

func (o *Orchestrator) answerContext(ctx context.Context, a Match[model.Answer]) (Context, float64, error) {
	out := AnswerContext{
		ManualID:   a.Record.ManualID,
		Content:    a.Record.Content,
		Similarity: a.Similarity,
	}
	manual, err := o.manuals.GetManual(ctx, a.Record.ManualID)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve answer manual: %w", err)
	}
	if manual != nil {
		out.Title = manual.Title
		out.SourceURL = manual.SourceURL
	}
	return out, a.Similarity, nil
}
