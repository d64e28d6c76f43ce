package server

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"sync"
	"time"

	"guesswho/internal/db"

	"gorm.io/gorm"
)

// sessionStore maps a browser cookie to the caller's identity: the moderator
// flag set at login and the participant id minted at first token redemption.
// Gameplay commands are tied to this identity, never to a client-supplied
// role label.
type sessionStore struct {
	db       *gorm.DB
	mu       sync.Mutex
	sessions map[string]sessionData
}

type sessionData struct {
	Moderator     bool
	ParticipantID string
}

func newSessionStore(conn *gorm.DB) *sessionStore {
	return &sessionStore{
		db:       conn,
		sessions: make(map[string]sessionData),
	}
}

func (s *sessionStore) SetModerator(w http.ResponseWriter, r *http.Request, moderator bool) {
	id := s.ensureSessionID(w, r)
	if s.db == nil {
		s.mu.Lock()
		data := s.sessions[id]
		data.Moderator = moderator
		s.sessions[id] = data
		s.mu.Unlock()
		return
	}
	record := db.Session{
		ID:            id,
		Moderator:     moderator,
		ParticipantID: s.participantIDFromDB(id),
	}
	_ = s.db.Save(&record).Error
}

func (s *sessionStore) IsModerator(w http.ResponseWriter, r *http.Request) bool {
	id := s.ensureSessionID(w, r)
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.sessions[id].Moderator
	}
	var record db.Session
	if err := s.db.Where("id = ?", id).First(&record).Error; err != nil {
		return false
	}
	return record.Moderator
}

func (s *sessionStore) SetParticipant(w http.ResponseWriter, r *http.Request, participantID string) {
	if participantID == "" {
		return
	}
	id := s.ensureSessionID(w, r)
	if s.db == nil {
		s.mu.Lock()
		data := s.sessions[id]
		data.ParticipantID = participantID
		s.sessions[id] = data
		s.mu.Unlock()
		return
	}
	record := db.Session{
		ID:            id,
		ParticipantID: participantID,
		Moderator:     s.moderatorFromDB(id),
	}
	_ = s.db.Save(&record).Error
}

func (s *sessionStore) ParticipantID(w http.ResponseWriter, r *http.Request) string {
	id := s.ensureSessionID(w, r)
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.sessions[id].ParticipantID
	}
	return s.participantIDFromDB(id)
}

func (s *sessionStore) participantIDFromDB(id string) string {
	var record db.Session
	if err := s.db.Where("id = ?", id).First(&record).Error; err != nil {
		return ""
	}
	return record.ParticipantID
}

func (s *sessionStore) moderatorFromDB(id string) bool {
	var record db.Session
	if err := s.db.Where("id = ?", id).First(&record).Error; err != nil {
		return false
	}
	return record.Moderator
}

func (s *sessionStore) ensureSessionID(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie("gw_session")
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := newSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     "gw_session",
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("sess-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", buf)
}
