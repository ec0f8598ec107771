package model

import "time"

// IngestionEvent records one status transition of a document during
// the ingestion pipeline. Events are published to RabbitMQ and
// persisted asynchronously, so a slow audit trail never blocks an upload.
type IngestionEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID string    `gorm:"size:64;not null;index" json:"document_id"`
	UserID     string    `gorm:"size:64;not null;index" json:"user_id"`
	Status     string    `gorm:"size:16;not null" json:"status"`
	Detail     string    `gorm:"size:1024" json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
