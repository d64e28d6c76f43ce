package db

import (
	"time"

	"gorm.io/datatypes"
)

// Event is one append-only transcript row. Ordering is (created_at, id); rows
// are never updated or deleted.
type Event struct {
	ID            uint           `gorm:"primaryKey"`
	GameID        uint           `gorm:"index;not null"`
	ParticipantID *uint          `gorm:"index"`
	Role          string         `gorm:"size:16;not null"`
	Action        string         `gorm:"size:32;not null"`
	CardID        *int           `gorm:"index"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time      `gorm:"index;not null"`
}
