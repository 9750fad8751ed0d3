package model

import (
	"log"
	"time"

	"gorm.io/gorm"

	"kbagent/internal/vector"
)

// ProcessedManual is the curated vector record for a manual: the cleaned
// markdown rendition produced by the offline processing pipeline, embedded
// for retrieval. Curated content outranks raw answers on similarity ties.
type ProcessedManual struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ManualID    uint      `gorm:"not null;uniqueIndex" json:"manual_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	SourceURL   string    `gorm:"size:512" json:"source_url"`
	Markdown    string    `gorm:"type:text;not null" json:"markdown"`
	Embedding   string    `gorm:"type:text" json:"-"`
	TotalImages int       `json:"total_images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	vec []float32 `gorm:"-"`
}

// ManualImage is image metadata extracted alongside a processed manual.
// Only the reference is kept; the service never downloads or decodes image
// bytes.
type ManualImage struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ProcessedManualID uint      `gorm:"not null;index" json:"processed_manual_id"`
	URL               string    `gorm:"size:512;not null" json:"url"`
	AltText           string    `gorm:"size:255" json:"alt_text"`
	Position          int       `json:"position"`
	CreatedAt         time.Time `json:"created_at"`
}

// AfterFind parses the stored embedding once at load time, logging corrupt
// values so the record can be re-embedded.
func (m *ProcessedManual) AfterFind(*gorm.DB) error {
	var ok bool
	m.vec, ok = vector.Parse(m.Embedding)
	if !ok && m.Embedding != "" {
		log.Printf("corrupt embedding on %s record %d, needs re-embedding", CollectionProcessedManual, m.ID)
	}
	return nil
}

// Vector returns the parsed embedding, or nil when absent/corrupt.
func (m *ProcessedManual) Vector() []float32 {
	return m.vec
}

// SetVector stores vec in both the serialized column and the parsed field.
func (m *ProcessedManual) SetVector(vec []float32) {
	if !vector.IsValid(vec) {
		m.Embedding = ""
		m.vec = nil
		return
	}
	m.Embedding = vector.Encode(vec)
	m.vec = vec
}
