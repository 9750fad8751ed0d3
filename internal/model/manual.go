package model

import "time"

// Manual is a knowledge-base document registered by the ingestion
// collaborator. The text itself lives in the vector records that reference
// it; the manual row carries identity and provenance.
type Manual struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	SourceURL string    `gorm:"size:512;uniqueIndex" json:"source_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
