package model

import "time"

// Document status lifecycle. A document only moves forward:
// received -> extracted -> indexed, or any state -> failed.
const (
	StatusReceived  = "received"
	StatusExtracted = "extracted"
	StatusIndexed   = "indexed"
	StatusFailed    = "failed"
)

type Document struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	UserID       string    `gorm:"size:64;not null;index" json:"user_id"`
	OriginalName string    `gorm:"size:256;not null" json:"original_name"`
	MediaType    string    `gorm:"size:128;not null" json:"media_type"`
	StoragePath  string    `gorm:"size:512;not null" json:"-"`
	SizeBytes    int64     `json:"size_bytes"`
	Status       string    `gorm:"size:16;not null;index" json:"status"`
	FailReason   string    `gorm:"size:512" json:"fail_reason,omitempty"`
	ChunkCount   int       `json:"chunk_count"`
	Embedder     string    `gorm:"size:128" json:"embedder,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
