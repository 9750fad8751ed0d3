package retrieval

import "kbagent/internal/model"

// Context is the retrieved grounding handed to the answer-generation step.
// It is a closed variant type: the only implementations are ManualContext
// and AnswerContext, and consumers switch exhaustively on the concrete type
// instead of probing fields.
type Context interface {
	isContext()
}

// ManualContext is a match from the curated processed-manual collection.
type ManualContext struct {
	ManualID   uint
	Title      string
	SourceURL  string
	Markdown   string
	Images     []model.ManualImage
	Similarity float64
}

// AnswerContext is a match from the raw-answer collection.
type AnswerContext struct {
	ManualID   uint
	Title      string
	SourceURL  string
	Content    string
	Similarity float64
}

func (ManualContext) isContext() {}
func (AnswerContext) isContext() {}
