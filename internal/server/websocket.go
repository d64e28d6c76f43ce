package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// wsHub tracks the live observer channels: every connection joins its game's
// broadcast group, and connections that identify a participant also join that
// participant's private group for role and redirect notices. Delivery is
// best-effort, at-most-once; a disconnected channel catches up through the
// transcript.
type wsHub struct {
	mu           sync.Mutex
	games        map[string]map[*websocket.Conn]struct{}
	participants map[string]map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		games:        make(map[string]map[*websocket.Conn]struct{}),
		participants: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) Add(gameID, participantID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.games[gameID]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.games[gameID] = group
	}
	group[conn] = struct{}{}
	if participantID != "" {
		private := h.participants[participantID]
		if private == nil {
			private = make(map[*websocket.Conn]struct{})
			h.participants[participantID] = private
		}
		private[conn] = struct{}{}
	}
}

func (h *wsHub) Remove(gameID, participantID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.games[gameID]
	if group != nil {
		delete(group, conn)
		if len(group) == 0 {
			delete(h.games, gameID)
		}
	}
	if participantID != "" {
		private := h.participants[participantID]
		if private != nil {
			delete(private, conn)
			if len(private) == 0 {
				delete(h.participants, participantID)
			}
		}
	}
	_ = conn.Close()
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcast delivers to every channel observing the game.
func (h *wsHub) Broadcast(gameID string, payload any) {
	h.mu.Lock()
	group := h.games[gameID]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(gameID, "", conn)
		}
	}
}

// NotifyParticipant delivers privately to the channels bound to one
// participant identity.
func (h *wsHub) NotifyParticipant(participantID string, payload any) {
	h.mu.Lock()
	private := h.participants[participantID]
	conns := make([]*websocket.Conn, 0, len(private))
	for conn := range private {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove("", participantID, conn)
		}
	}
}

// clientMessage is an inbound frame on the live channel. Chat is validated
// and logged like any other action; signal frames are forwarded opaque to the
// target participant and never inspected or logged.
type clientMessage struct {
	Type    string          `json:"type"`
	Role    string          `json:"role,omitempty"`
	Text    string          `json:"text,omitempty"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	gameID, ok := parseWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, exists := s.store.GetGame(gameID); !exists {
		http.NotFound(w, r)
		return
	}
	// identity comes from the session cookie, never from the query; the
	// query parameter only opts in to the private channel and must match
	isModerator := s.sessions.IsModerator(w, r)
	participantID := r.URL.Query().Get("participant_id")
	if participantID != "" {
		if participantID != s.sessions.ParticipantID(w, r) {
			writeError(w, http.StatusForbidden, "participant mismatch")
			return
		}
		if _, known := s.participants.Lookup(participantID); !known {
			writeError(w, http.StatusForbidden, "unknown participant")
			return
		}
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected game_id=%s participant_id=%s remote=%s", gameID, participantID, r.RemoteAddr)
	s.ws.Add(gameID, participantID, conn)
	if participantID != "" {
		s.participants.Touch(participantID)
	}
	if game, ok := s.store.GetGame(gameID); ok {
		s.ws.Send(conn, s.snapshot(game, false))
	}
	go s.readWS(gameID, participantID, isModerator, conn)
}

func (s *Server) readWS(gameID, participantID string, isModerator bool, conn *websocket.Conn) {
	defer s.ws.Remove(gameID, participantID, conn)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected game_id=%s participant_id=%s error=%v", gameID, participantID, err)
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.ws.Send(conn, map[string]string{"type": "error", "error": "invalid message"})
			continue
		}
		switch msg.Type {
		case "chat":
			if msg.Role == roleModerator && !isModerator {
				s.ws.Send(conn, map[string]string{"type": "error", "error": "moderator session required"})
				continue
			}
			if _, err := s.submitAction(gameID, participantID, msg.Role, actionChat, msg.Text, nil); err != nil {
				s.ws.Send(conn, map[string]string{"type": "error", "error": err.Error()})
				continue
			}
		case "signal":
			if msg.To == "" || participantID == "" {
				s.ws.Send(conn, map[string]string{"type": "error", "error": "signal requires a target"})
				continue
			}
			s.ws.NotifyParticipant(msg.To, map[string]any{
				"type":    "signal",
				"from":    participantID,
				"payload": msg.Payload,
			})
		default:
			s.ws.Send(conn, map[string]string{"type": "error", "error": "unknown message type"})
		}
	}
}
