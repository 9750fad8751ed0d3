package model

import (
	"log"
	"time"

	"gorm.io/gorm"

	"kbagent/internal/vector"
)

// Collection tags distinguishing the two vector record populations that the
// orchestrator ranks independently before merging.
const (
	CollectionRawAnswer       = "raw-answer"
	CollectionProcessedManual = "processed-manual"
)

// Answer is the raw-answer vector record: the text supplied for a manual by
// the ingestion collaborator, paired with its embedding.
//
// Embedding is persisted as a JSON array of float32 and is either empty or
// a complete vector; it is never partially written. The parsed form lives
// in vec, populated once when the row is loaded and nil whenever the stored
// value is absent or fails validation.
type Answer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ManualID  uint      `gorm:"not null;uniqueIndex" json:"manual_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Embedding string    `gorm:"type:text" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	vec []float32 `gorm:"-"`
}

// AfterFind parses the stored embedding once at load time. A corrupt value
// leaves vec nil, so the record scans as "no embedding" rather than raising
// or scoring as zero; the corruption is logged so the record can be
// re-embedded.
func (a *Answer) AfterFind(*gorm.DB) error {
	var ok bool
	a.vec, ok = vector.Parse(a.Embedding)
	if !ok && a.Embedding != "" {
		log.Printf("corrupt embedding on %s record %d, needs re-embedding", CollectionRawAnswer, a.ID)
	}
	return nil
}

// Vector returns the parsed embedding, or nil when absent/corrupt.
func (a *Answer) Vector() []float32 {
	return a.vec
}

// SetVector stores vec in both the serialized column and the parsed field.
// An invalid vector clears the embedding instead of persisting garbage.
func (a *Answer) SetVector(vec []float32) {
	if !vector.IsValid(vec) {
		a.Embedding = ""
		a.vec = nil
		return
	}
	a.Embedding = vector.Encode(vec)
	a.vec = vec
}
