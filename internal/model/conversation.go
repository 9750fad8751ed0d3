package model

import "time"

// Turn roles. A conversation alternates question and answer turns.
const (
	RoleQuestion = "question"
	RoleAnswer   = "answer"
)

// Conversation groups the turns of one ongoing session behind an opaque
// external handle.
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:64;not null;uniqueIndex" json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is one question or answer in a conversation. Turns are append-only:
// rows are never mutated or reordered, and insertion order is chronological
// order.
type Turn struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ConversationID  uint      `gorm:"not null;index" json:"conversation_id"`
	Role            string    `gorm:"size:16;not null" json:"role"`
	Text            string    `gorm:"type:text;not null" json:"text"`
	RelatedManualID uint      `json:"related_manual_id,omitempty"`
	Similarity      float64   `json:"similarity,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
