package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"kbagent/internal/embedding"
	"kbagent/internal/model"
	"kbagent/internal/repository"
)

// IngestService is the write path: it receives already-extracted document
// text from the ingestion collaborator and keeps the vector records
// current. Embeddings are computed before anything is persisted, so a
// record is only ever stored with a complete vector or none at all.
type IngestService struct {
	manualRepo    *repository.ManualRepository
	answerRepo    *repository.AnswerRepository
	processedRepo *repository.ProcessedManualRepository
	provider      embedding.Provider
}

func NewIngestService(
	manualRepo *repository.ManualRepository,
	answerRepo *repository.AnswerRepository,
	processedRepo *repository.ProcessedManualRepository,
	provider embedding.Provider,
) *IngestService {
	return &IngestService{
		manualRepo:    manualRepo,
		answerRepo:    answerRepo,
		processedRepo: processedRepo,
		provider:      provider,
	}
}

// IngestDocumentInput is one (title, text, sourceUrl) tuple from the
// document collaborator.
type IngestDocumentInput struct {
	Title     string
	Text      string
	SourceURL string
}

type IngestResult struct {
	Manual  model.Manual `json:"manual"`
	Indexed bool         `json:"indexed"`
}

// IngestDocument creates or refreshes the manual and its raw-answer vector
// record. A new record is embedded at first save; an existing one is
// re-embedded only when its text actually changed.
func (s *IngestService) IngestDocument(ctx context.Context, input IngestDocumentInput) (*IngestResult, error) {
	title := strings.TrimSpace(input.Title)
	text := strings.TrimSpace(input.Text)
	if title == "" || text == "" {
		return nil, ErrInvalidInput
	}

	manual, err := s.findOrCreateManual(ctx, title, input.SourceURL)
	if err != nil {
		return nil, err
	}

	answer, err := s.answerRepo.GetByManualID(ctx, manual.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case answer == nil:
		vec, err := s.provider.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed document %d: %w", manual.ID, err)
		}
		answer = &model.Answer{ManualID: manual.ID, Content: text}
		answer.SetVector(vec)
		if err := s.answerRepo.Create(ctx, answer); err != nil {
			return nil, err
		}
	case answer.Content != text || answer.Vector() == nil:
		vec, err := s.provider.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed document %d: %w", manual.ID, err)
		}
		answer.Content = text
		answer.SetVector(vec)
		if err := s.answerRepo.UpdateContentAndEmbedding(ctx, answer); err != nil {
			return nil, err
		}
	default:
		// Unchanged text with a valid embedding: nothing to do.
		return &IngestResult{Manual: *manual, Indexed: false}, nil
	}

	return &IngestResult{Manual: *manual, Indexed: true}, nil
}

// ProcessedManualInput is the curated rendition produced by the offline
// processing pipeline, with image references already resolved.
type ProcessedManualInput struct {
	Title    string
	Markdown string
	Images   []model.ManualImage
}

// IngestProcessedManual stores the curated record for a manual and embeds
// its markdown.
func (s *IngestService) IngestProcessedManual(ctx context.Context, manualID uint, input ProcessedManualInput) (*model.ProcessedManual, error) {
	markdown := strings.TrimSpace(input.Markdown)
	if manualID == 0 || markdown == "" {
		return nil, ErrInvalidInput
	}
	manual, err := s.manualRepo.GetManual(ctx, manualID)
	if err != nil {
		return nil, err
	}
	if manual == nil {
		return nil, ErrManualNotFound
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = manual.Title
	}

	vec, err := s.provider.Embed(ctx, markdown)
	if err != nil {
		return nil, fmt.Errorf("embed processed manual %d: %w", manualID, err)
	}

	pm, err := s.processedRepo.GetByManualID(ctx, manualID)
	if err != nil {
		return nil, err
	}
	if pm == nil {
		pm = &model.ProcessedManual{ManualID: manualID}
	}
	pm.Title = title
	pm.SourceURL = manual.SourceURL
	pm.Markdown = markdown
	pm.TotalImages = len(input.Images)
	pm.SetVector(vec)

	if pm.ID == 0 {
		if err := s.processedRepo.Create(ctx, pm); err != nil {
			return nil, err
		}
	} else {
		if err := s.processedRepo.UpdateContentAndEmbedding(ctx, pm); err != nil {
			return nil, err
		}
	}
	if err := s.processedRepo.ReplaceImages(ctx, pm.ID, input.Images); err != nil {
		return nil, err
	}
	return pm, nil
}

// ReindexManual forces a re-embedding of every vector record belonging to
// the manual. Used by the batch reindex worker; a corrupt stored embedding
// is repaired here.
func (s *IngestService) ReindexManual(ctx context.Context, manualID uint) error {
	manual, err := s.manualRepo.GetManual(ctx, manualID)
	if err != nil {
		return err
	}
	if manual == nil {
		return ErrManualNotFound
	}

	answer, err := s.answerRepo.GetByManualID(ctx, manualID)
	if err != nil {
		return err
	}
	if answer != nil && strings.TrimSpace(answer.Content) != "" {
		vec, err := s.provider.Embed(ctx, answer.Content)
		if err != nil {
			return fmt.Errorf("re-embed answer for manual %d: %w", manualID, err)
		}
		answer.SetVector(vec)
		if err := s.answerRepo.UpdateContentAndEmbedding(ctx, answer); err != nil {
			return err
		}
	}

	pm, err := s.processedRepo.GetByManualID(ctx, manualID)
	if err != nil {
		return err
	}
	if pm != nil && strings.TrimSpace(pm.Markdown) != "" {
		vec, err := s.provider.Embed(ctx, pm.Markdown)
		if err != nil {
			return fmt.Errorf("re-embed processed manual %d: %w", manualID, err)
		}
		pm.SetVector(vec)
		if err := s.processedRepo.UpdateContentAndEmbedding(ctx, pm); err != nil {
			return err
		}
	}

	log.Printf("reindexed manual %d (%s)", manual.ID, manual.Title)
	return nil
}

// DeleteManual removes the manual and cascades to its vector records and
// image metadata.
func (s *IngestService) DeleteManual(ctx context.Context, manualID uint) error {
	if manualID == 0 {
		return ErrInvalidInput
	}
	manual, err := s.manualRepo.GetManual(ctx, manualID)
	if err != nil {
		return err
	}
	if manual == nil {
		return ErrManualNotFound
	}
	if err := s.answerRepo.DeleteByManualID(ctx, manualID); err != nil {
		return err
	}
	if err := s.processedRepo.DeleteByManualID(ctx, manualID); err != nil {
		return err
	}
	return s.manualRepo.Delete(ctx, manualID)
}

// ListManuals returns the registered manuals.
func (s *IngestService) ListManuals(ctx context.Context) ([]model.Manual, error) {
	return s.manualRepo.List(ctx)
}

func (s *IngestService) findOrCreateManual(ctx context.Context, title, sourceURL string) (*model.Manual, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL != "" {
		manual, err := s.manualRepo.GetBySourceURL(ctx, sourceURL)
		if err != nil {
			return nil, err
		}
		if manual != nil {
			if manual.Title != title {
				manual.Title = title
				if err := s.manualRepo.Save(ctx, manual); err != nil {
					return nil, err
				}
			}
			return manual, nil
		}
	}
	manual := &model.Manual{Title: title, SourceURL: sourceURL}
	if err := s.manualRepo.Create(ctx, manual); err != nil {
		return nil, err
	}
	return manual, nil
}
