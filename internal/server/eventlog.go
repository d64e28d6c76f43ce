package server

import (
	"encoding/json"
	"sync"
	"time"

	"guesswho/internal/db"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event is one transcript entry. Seq is the ordering key and the replay
// cursor; in database mode it is the row id, so the transcript order is the
// committed append order.
type Event struct {
	Seq           uint      `json:"seq"`
	GameID        string    `json:"game_id"`
	Role          string    `json:"role"`
	Action        string    `json:"action"`
	Text          string    `json:"text,omitempty"`
	CardID        *int      `json:"card_id,omitempty"`
	ParticipantID string    `json:"participant_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// eventLog is the append-only transcript. Appends go to Postgres first; the
// in-memory tail only grows after the row is durable, and a failed write
// leaves no trace. Entries survive session reset -- the map is keyed by game
// id and never pruned.
type eventLog struct {
	db      *gorm.DB
	mu      sync.Mutex
	nextSeq uint
	events  map[string][]Event
}

func newEventLog(conn *gorm.DB) *eventLog {
	return &eventLog{
		db:      conn,
		nextSeq: 1,
		events:  make(map[string][]Event),
	}
}

// Append records the event. The caller only broadcasts after a nil return.
func (l *eventLog) Append(gameDBID uint, participantDBID *uint, event Event) (Event, error) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = timeNowUTC()
	}
	if l.db != nil {
		payload, err := json.Marshal(EventPayload{
			Text:        event.Text,
			CardID:      event.CardID,
			Participant: event.ParticipantID,
		})
		if err != nil {
			return Event{}, ErrPersistenceFailure
		}
		row := db.Event{
			GameID:        gameDBID,
			ParticipantID: participantDBID,
			Role:          event.Role,
			Action:        event.Action,
			CardID:        event.CardID,
			Payload:       datatypes.JSON(payload),
			CreatedAt:     event.CreatedAt,
		}
		if err := l.db.Create(&row).Error; err != nil {
			return Event{}, ErrPersistenceFailure
		}
		event.Seq = row.ID
	}
	l.mu.Lock()
	if event.Seq == 0 {
		event.Seq = l.nextSeq
	}
	if event.Seq >= l.nextSeq {
		l.nextSeq = event.Seq + 1
	}
	l.insertLocked(event)
	l.mu.Unlock()
	return event, nil
}

// insertLocked keeps the tail sorted by Seq. Database-mode appends can reach
// the lock out of row-id order when two writers race, so a straight append is
// not enough.
func (l *eventLog) insertLocked(event Event) {
	tail := l.events[event.GameID]
	i := len(tail)
	for i > 0 && tail[i-1].Seq > event.Seq {
		i--
	}
	tail = append(tail, Event{})
	copy(tail[i+1:], tail[i:])
	tail[i] = event
	l.events[event.GameID] = tail
}

func (l *eventLog) hasGame(gameID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.events[gameID]
	return ok
}

// Read returns events for a game ordered by Seq, strictly after the sinceSeq
// cursor. limit <= 0 means no limit. Calling Read again with the last
// returned Seq continues the sequence without gaps or duplicates.
func (l *eventLog) Read(gameID string, gameDBID uint, sinceSeq uint, limit int) ([]Event, error) {
	l.mu.Lock()
	tail, ok := l.events[gameID]
	var copied []Event
	if ok {
		copied = make([]Event, len(tail))
		copy(copied, tail)
	}
	l.mu.Unlock()

	if !ok && l.db != nil && gameDBID != 0 {
		return l.readFromDB(gameID, gameDBID, sinceSeq, limit)
	}

	out := make([]Event, 0, len(copied))
	for _, event := range copied {
		if event.Seq <= sinceSeq {
			continue
		}
		out = append(out, event)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (l *eventLog) readFromDB(gameID string, gameDBID uint, sinceSeq uint, limit int) ([]Event, error) {
	// order by id alone: it is the cursor, and created_at can disagree
	// with commit order under concurrent appends
	query := l.db.Where("game_id = ? AND id > ?", gameDBID, sinceSeq).
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []db.Event
	if err := query.Find(&rows).Error; err != nil {
		return nil, ErrPersistenceFailure
	}
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		event := Event{
			Seq:       row.ID,
			GameID:    gameID,
			Role:      row.Role,
			Action:    row.Action,
			CardID:    row.CardID,
			CreatedAt: row.CreatedAt,
		}
		var payload EventPayload
		if err := json.Unmarshal(row.Payload, &payload); err == nil {
			event.Text = payload.Text
			event.ParticipantID = payload.Participant
		}
		out = append(out, event)
	}
	return out, nil
}
