package server

import (
	"strings"
	"sync"
	"time"

	"guesswho/internal/db"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type tokenRecord struct {
	Token         string
	GameID        string
	GameDBID      uint
	ParticipantID string
	CreatedAt     time.Time
	ExpiresAt     *time.Time
	RedeemedAt    *time.Time
}

// tokenRegistry issues and redeems single-use invitation tokens. Redemption
// is a check-and-set: in Postgres a conditional UPDATE on redeemed_at, in
// memory a swap under the lock. Exactly one concurrent redeemer wins.
type tokenRegistry struct {
	db     *gorm.DB
	mu     sync.Mutex
	tokens map[string]*tokenRecord
}

func newTokenRegistry(conn *gorm.DB) *tokenRegistry {
	return &tokenRegistry{
		db:     conn,
		tokens: make(map[string]*tokenRecord),
	}
}

func newTokenValue() string {
	return strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
}

// Issue creates an unredeemed token bound to the given game.
func (r *tokenRegistry) Issue(game *Game, ttl time.Duration) (*tokenRecord, error) {
	record := &tokenRecord{
		Token:     newTokenValue(),
		GameID:    game.ID,
		GameDBID:  game.DBID,
		CreatedAt: timeNowUTC(),
	}
	if ttl > 0 {
		expires := record.CreatedAt.Add(ttl)
		record.ExpiresAt = &expires
	}
	if r.db != nil {
		row := db.AccessToken{
			Token:     record.Token,
			GameID:    game.DBID,
			ExpiresAt: record.ExpiresAt,
		}
		if err := r.db.Create(&row).Error; err != nil {
			return nil, ErrPersistenceFailure
		}
	}
	r.mu.Lock()
	r.tokens[record.Token] = record
	r.mu.Unlock()
	return record, nil
}

// Lookup classifies a token without redeeming it.
func (r *tokenRegistry) Lookup(token string) (*tokenRecord, error) {
	r.mu.Lock()
	record, ok := r.tokens[token]
	r.mu.Unlock()
	if !ok {
		if r.db == nil {
			return nil, ErrTokenNotFound
		}
		loaded, err := r.loadFromDB(token)
		if err != nil {
			return nil, err
		}
		record = loaded
	}
	if record.RedeemedAt != nil {
		return nil, ErrTokenAlreadyUsed
	}
	if record.ExpiresAt != nil && timeNowUTC().After(*record.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return record, nil
}

// Redeem marks the token used by the participant. Returns ErrTokenAlreadyUsed
// when another caller got there first.
func (r *tokenRegistry) Redeem(token, participantID string, participantDBID uint) error {
	now := timeNowUTC()
	if r.db != nil {
		updates := map[string]any{"redeemed_at": now}
		if participantDBID != 0 {
			updates["participant_id"] = participantDBID
		}
		result := r.db.Model(&db.AccessToken{}).
			Where("token = ? AND redeemed_at IS NULL", token).
			Updates(updates)
		if result.Error != nil {
			return ErrPersistenceFailure
		}
		if result.RowsAffected == 0 {
			return ErrTokenAlreadyUsed
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.tokens[token]
	if !ok {
		if r.db != nil {
			// Redeemed durably; the cache entry is rebuilt on next lookup.
			return nil
		}
		return ErrTokenNotFound
	}
	if r.db == nil && record.RedeemedAt != nil {
		return ErrTokenAlreadyUsed
	}
	record.RedeemedAt = &now
	record.ParticipantID = participantID
	return nil
}

// Unredeem rolls a redemption back, used when the waiting room filled between
// the conditional update and seating.
func (r *tokenRegistry) Unredeem(token string) {
	if r.db != nil {
		_ = r.db.Model(&db.AccessToken{}).
			Where("token = ?", token).
			Updates(map[string]any{"redeemed_at": nil, "participant_id": nil}).Error
	}
	r.mu.Lock()
	if record, ok := r.tokens[token]; ok {
		record.RedeemedAt = nil
		record.ParticipantID = ""
	}
	r.mu.Unlock()
}

func (r *tokenRegistry) loadFromDB(token string) (*tokenRecord, error) {
	var row db.AccessToken
	if err := r.db.Where("token = ?", token).First(&row).Error; err != nil {
		return nil, ErrTokenNotFound
	}
	var game db.Game
	if err := r.db.First(&game, row.GameID).Error; err != nil {
		return nil, ErrTokenNotFound
	}
	record := &tokenRecord{
		Token:      row.Token,
		GameID:     game.PublicID,
		GameDBID:   game.ID,
		CreatedAt:  row.CreatedAt,
		ExpiresAt:  row.ExpiresAt,
		RedeemedAt: row.RedeemedAt,
	}
	r.mu.Lock()
	r.tokens[token] = record
	r.mu.Unlock()
	return record, nil
}
