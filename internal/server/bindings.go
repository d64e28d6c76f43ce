package server

import (
	"sync"

	"guesswho/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// bindingTable is the durable role-binding store with a write-through cache.
// Writes hit Postgres first and only update the cache after the row is down;
// reads prefer the cache and fall back to the database on a miss, so an
// authorization check right after a bind always sees the new role.
type bindingTable struct {
	db    *gorm.DB
	mu    sync.Mutex
	cache map[string]map[string]string
}

func newBindingTable(conn *gorm.DB) *bindingTable {
	return &bindingTable{
		db:    conn,
		cache: make(map[string]map[string]string),
	}
}

// Write persists (game, participant) -> role, overwriting any previous role
// for the pair.
func (b *bindingTable) Write(gameID string, gameDBID uint, participantID string, participantDBID uint, role string) error {
	if b.db != nil {
		row := db.RoleBinding{
			GameID:        gameDBID,
			ParticipantID: participantDBID,
			Role:          role,
		}
		err := b.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game_id"}, {Name: "participant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return ErrPersistenceFailure
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bindings := b.cache[gameID]
	if bindings == nil {
		bindings = make(map[string]string)
		b.cache[gameID] = bindings
	}
	bindings[participantID] = role
	return nil
}

// Delete vacates a participant's binding in the game. The durable row goes
// first so a failed delete never leaves a stale cache entry authorizing a
// vacated role.
func (b *bindingTable) Delete(gameID string, gameDBID uint, participantID string, participantDBID uint) error {
	if b.db != nil && gameDBID != 0 && participantDBID != 0 {
		err := b.db.Where("game_id = ? AND participant_id = ?", gameDBID, participantDBID).
			Delete(&db.RoleBinding{}).Error
		if err != nil {
			return ErrPersistenceFailure
		}
	}
	b.mu.Lock()
	delete(b.cache[gameID], participantID)
	b.mu.Unlock()
	return nil
}

// Role reports the participant's bound role in the game, if any.
func (b *bindingTable) Role(gameID string, gameDBID uint, participantID string, participantDBID uint) (string, bool) {
	b.mu.Lock()
	role, ok := b.cache[gameID][participantID]
	b.mu.Unlock()
	if ok {
		return role, true
	}
	if b.db == nil || gameDBID == 0 || participantDBID == 0 {
		return "", false
	}
	var row db.RoleBinding
	err := b.db.Where("game_id = ? AND participant_id = ?", gameDBID, participantDBID).
		First(&row).Error
	if err != nil {
		return "", false
	}
	b.mu.Lock()
	bindings := b.cache[gameID]
	if bindings == nil {
		bindings = make(map[string]string)
		b.cache[gameID] = bindings
	}
	bindings[participantID] = row.Role
	b.mu.Unlock()
	return row.Role, true
}

// Authorize is the anti-spoofing gate every gameplay action passes through.
func (b *bindingTable) Authorize(gameID string, gameDBID uint, participantID string, participantDBID uint, requiredRole string) bool {
	role, ok := b.Role(gameID, gameDBID, participantID, participantDBID)
	return ok && role == requiredRole
}
