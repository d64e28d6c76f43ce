package server

import (
	"sync"
	"time"

	"guesswho/internal/db"
	"guesswho/internal/ids"

	"gorm.io/gorm"
)

type participantRecord struct {
	PublicID   string
	DBID       uint
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// directory holds participant identities. Identities are created on first
// token redemption and never deleted; they are independent of games and
// roles. Runs against Postgres when configured, in memory otherwise.
type directory struct {
	db   *gorm.DB
	mu   sync.Mutex
	byID map[string]*participantRecord
}

func newDirectory(conn *gorm.DB) *directory {
	return &directory{
		db:   conn,
		byID: make(map[string]*participantRecord),
	}
}

func (d *directory) Create() (*participantRecord, error) {
	now := timeNowUTC()
	record := &participantRecord{
		PublicID:   ids.New(),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if d.db != nil {
		row := db.Participant{
			PublicID:   record.PublicID,
			LastSeenAt: now,
		}
		if err := d.db.Create(&row).Error; err != nil {
			return nil, ErrPersistenceFailure
		}
		record.DBID = row.ID
	}
	d.mu.Lock()
	d.byID[record.PublicID] = record
	d.mu.Unlock()
	return record, nil
}

func (d *directory) Lookup(publicID string) (*participantRecord, bool) {
	d.mu.Lock()
	record, ok := d.byID[publicID]
	d.mu.Unlock()
	if ok {
		return record, true
	}
	if d.db == nil {
		return nil, false
	}
	var row db.Participant
	if err := d.db.Where("public_id = ?", publicID).First(&row).Error; err != nil {
		return nil, false
	}
	record = &participantRecord{
		PublicID:   row.PublicID,
		DBID:       row.ID,
		CreatedAt:  row.CreatedAt,
		LastSeenAt: row.LastSeenAt,
	}
	d.mu.Lock()
	d.byID[publicID] = record
	d.mu.Unlock()
	return record, true
}

// Touch refreshes last-seen. Best effort; a failed write never blocks a
// gameplay command.
func (d *directory) Touch(publicID string) {
	now := timeNowUTC()
	d.mu.Lock()
	if record, ok := d.byID[publicID]; ok {
		record.LastSeenAt = now
	}
	d.mu.Unlock()
	if d.db != nil {
		_ = d.db.Model(&db.Participant{}).
			Where("public_id = ?", publicID).
			Update("last_seen_at", now).Error
	}
}
