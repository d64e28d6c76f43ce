package db

import "time"

// Game is the durable record of one session lifecycle run. Rows are never
// deleted; a reset retires the row and a new one is created on the next open.
type Game struct {
	ID         uint      `gorm:"primaryKey"`
	PublicID   string    `gorm:"size:26;uniqueIndex;not null"`
	State      string    `gorm:"size:32;not null"`
	SecretCard int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
	Tokens     []AccessToken
	Bindings   []RoleBinding
	Events     []Event
}

// Participant is an anonymized identity, independent of any game or role.
// Retained forever for audit.
type Participant struct {
	ID         uint      `gorm:"primaryKey"`
	PublicID   string    `gorm:"size:26;uniqueIndex;not null"`
	CreatedAt  time.Time `gorm:"not null"`
	LastSeenAt time.Time `gorm:"not null"`
}

// AccessToken is a single-use invitation into a specific game's waiting room.
// RedeemedAt and ParticipantID stay null until redemption.
type AccessToken struct {
	ID            uint       `gorm:"primaryKey"`
	Token         string     `gorm:"size:64;uniqueIndex;not null"`
	GameID        uint       `gorm:"index;not null"`
	ParticipantID *uint      `gorm:"index"`
	ExpiresAt     *time.Time `gorm:"index"`
	RedeemedAt    *time.Time
	CreatedAt     time.Time `gorm:"not null"`
}

// RoleBinding maps (game, participant) to a role. One row per pair; a role
// switch rewrites the same row.
type RoleBinding struct {
	ID            uint      `gorm:"primaryKey"`
	GameID        uint      `gorm:"index;not null;uniqueIndex:idx_bindings_game_participant"`
	ParticipantID uint      `gorm:"not null;uniqueIndex:idx_bindings_game_participant"`
	Role          string    `gorm:"size:16;not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// EliminatedCard records a card flipped down by the guesser. The unique index
// makes re-elimination a no-op rather than a duplicate.
type EliminatedCard struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null;uniqueIndex:idx_eliminated_game_card"`
	CardID    int       `gorm:"not null;uniqueIndex:idx_eliminated_game_card"`
	CreatedAt time.Time `gorm:"not null"`
}
