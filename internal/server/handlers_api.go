package server

import (
	"log"
	"net/http"
	"strconv"
)

type joinRequest struct {
	Token string `json:"token"`
}

type actionRequest struct {
	ParticipantID string `json:"participant_id,omitempty"`
	Role          string `json:"role"`
	Action        string `json:"action"`
	Text          string `json:"text,omitempty"`
	CardID        *int   `json:"card_id,omitempty"`
}

type eliminateRequest struct {
	ParticipantID string `json:"participant_id,omitempty"`
	CardID        int    `json:"card_id"`
}

func (s *Server) handleGameSubroutes(w http.ResponseWriter, r *http.Request) {
	gameID, action, ok := parseGamePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		switch action {
		case "":
			s.handleGetGame(w, r, gameID)
		case "events":
			s.handleEvents(w, r, gameID)
		case "waiting":
			s.handleListWaiting(w, r, gameID)
		case "assigned":
			s.handleListAssigned(w, r, gameID)
		default:
			http.NotFound(w, r)
		}
	case http.MethodPost:
		switch action {
		case "close", "start", "end", "reset":
			s.handleControl(w, r, gameID, action)
		case "tokens":
			s.handleGenerateTokens(w, r, gameID)
		case "roles":
			s.handleAssignRole(w, r, gameID)
		case "roles/switch":
			s.handleSwitchRole(w, r, gameID)
		case "kick":
			s.handleKick(w, r, gameID)
		case "actions":
			s.handleSubmitAction(w, r, gameID)
		case "eliminate":
			s.handleEliminate(w, r, gameID)
		default:
			http.NotFound(w, r)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request, gameID string) {
	game, ok := s.store.GetGame(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(game, s.sessions.IsModerator(w, r)))
}

// handleJoin redeems an invitation token and seats the caller in the waiting
// room. The participant identity sticks to the session cookie, so a retry or
// reconnect resolves to the same participant.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "join") {
		return
	}
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	record, err := s.tokens.Lookup(req.Token)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	game, ok := s.store.GetGame(record.GameID)
	if !ok || game.State != stateOpen {
		writeCoreError(w, ErrGameNotJoinable)
		return
	}

	participantID := s.sessions.ParticipantID(w, r)
	var participant *participantRecord
	if participantID != "" {
		participant, _ = s.participants.Lookup(participantID)
	}
	if participant == nil {
		participant, err = s.participants.Create()
		if err != nil {
			writeCoreError(w, err)
			return
		}
		s.sessions.SetParticipant(w, r, participant.PublicID)
	}

	if err := s.tokens.Redeem(req.Token, participant.PublicID, participant.DBID); err != nil {
		writeCoreError(w, err)
		return
	}
	game, position, err := s.store.AddWaiting(record.GameID, participant.PublicID)
	if err != nil {
		s.tokens.Unredeem(req.Token)
		writeCoreError(w, err)
		return
	}
	s.participants.Touch(participant.PublicID)

	if _, err := s.appendAndBroadcast(game, Event{
		GameID:        game.ID,
		Role:          "participant",
		Action:        "join",
		ParticipantID: participant.PublicID,
	}); err != nil {
		// the seat and redemption stand; the caller retries against a
		// recovered transcript store
		log.Printf("join event not recorded game_id=%s error=%v", game.ID, err)
		writeCoreError(w, err)
		return
	}
	log.Printf("participant joined game_id=%s participant_id=%s position=%d state=%s",
		game.ID, participant.PublicID, position, game.State)

	if game.State == stateReady {
		if err := s.autoAssignRoles(game.ID); err != nil {
			log.Printf("auto assign failed game_id=%s error=%v", game.ID, err)
		}
	}
	s.broadcastGameUpdate(game)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"game_id":          game.ID,
		"participant_id":   participant.PublicID,
		"waiting_position": position,
		"state":            game.State,
	})
}

// handleJoinStatus is the polling fallback for clients without a live
// channel.
func (s *Server) handleJoinStatus(w http.ResponseWriter, r *http.Request) {
	participantID := r.URL.Query().Get("participant_id")
	if participantID == "" {
		participantID = s.sessions.ParticipantID(w, r)
	}
	if participantID == "" {
		writeError(w, http.StatusBadRequest, "participant_id is required")
		return
	}
	for _, summary := range s.store.ListGameSummaries() {
		game, ok := s.store.GetGame(summary.ID)
		if !ok {
			continue
		}
		if position, waiting := game.waitingPosition(participantID); waiting {
			writeJSON(w, http.StatusOK, map[string]any{
				"status":   "waiting",
				"game_id":  game.ID,
				"position": position,
			})
			return
		}
		if role, bound := game.roleOf(participantID); bound {
			status := "ready"
			if game.State == stateInProgress {
				status = "in_game"
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"status":  status,
				"game_id": game.ID,
				"role":    role,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "idle"})
}

// handleSubmitAction is the generic gameplay entry point: question, answer,
// chat, moderator note. The acting identity comes from the session; a body
// participant_id is only accepted when it matches.
func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request, gameID string) {
	var req actionRequest
	if err := readJSON(r.Body, &req); err != nil || req.Role == "" || req.Action == "" {
		writeError(w, http.StatusBadRequest, "role and action are required")
		return
	}
	participantID, ok := s.resolveCaller(w, r, req.ParticipantID, req.Role)
	if !ok {
		return
	}
	event, err := s.submitAction(gameID, participantID, req.Role, req.Action, req.Text, req.CardID)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"event":  event,
	})
}

func (s *Server) handleEliminate(w http.ResponseWriter, r *http.Request, gameID string) {
	var req eliminateRequest
	if err := readJSON(r.Body, &req); err != nil || req.CardID <= 0 {
		writeError(w, http.StatusBadRequest, "card_id is required")
		return
	}
	participantID, ok := s.resolveCaller(w, r, req.ParticipantID, rolePlayer2)
	if !ok {
		return
	}
	_, fresh, err := s.eliminateCard(gameID, participantID, req.CardID)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"card_id": req.CardID,
		"new":     fresh,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, gameID string) {
	game, ok := s.store.GetGame(gameID)
	gameDBID := uint(0)
	if ok {
		if game.DBID == 0 {
			_ = s.ensureGameDBID(game)
		}
		gameDBID = game.DBID
	} else if s.db != nil {
		gameDBID = s.lookupRetiredGameDBID(gameID)
		if gameDBID == 0 && !s.log.hasGame(gameID) {
			http.NotFound(w, r)
			return
		}
	} else if !s.log.hasGame(gameID) {
		http.NotFound(w, r)
		return
	}

	var sinceSeq uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since cursor")
			return
		}
		sinceSeq = value
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = value
	}
	events, err := s.log.Read(gameID, gameDBID, uint(sinceSeq), limit)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id": gameID,
		"events":  events,
	})
}

// resolveCaller enforces that gameplay commands act as the session identity.
// Moderator-role commands require the moderator session instead.
func (s *Server) resolveCaller(w http.ResponseWriter, r *http.Request, claimedParticipant, role string) (string, bool) {
	if role == roleModerator {
		if !s.requireModerator(w, r) {
			return "", false
		}
		return "", true
	}
	participantID := s.sessions.ParticipantID(w, r)
	if participantID == "" {
		writeError(w, http.StatusForbidden, "no participant identity")
		return "", false
	}
	if claimedParticipant != "" && claimedParticipant != participantID {
		writeError(w, http.StatusForbidden, "participant mismatch")
		return "", false
	}
	return participantID, true
}
