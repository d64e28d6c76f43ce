package db

import "time"

// Session ties a browser cookie to a stable participant identity and the
// moderator flag, so redemption and gameplay survive reconnects.
type Session struct {
	ID            string    `gorm:"primaryKey;size:64"`
	ParticipantID string    `gorm:"size:26;index"`
	Moderator     bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}
