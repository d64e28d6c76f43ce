package server

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/skip2/go-qrcode"
)

type generateTokensRequest struct {
	Count int `json:"count"`
}

type assignRoleRequest struct {
	ParticipantID string `json:"participant_id"`
	Role          string `json:"role"`
	Switch        bool   `json:"switch,omitempty"`
}

func (s *Server) handleOpenEntry(w http.ResponseWriter, r *http.Request) {
	if !s.requireModerator(w, r) {
		return
	}
	game, err := s.openEntry()
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"game_id": game.ID,
		"state":   game.State,
	})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	if !s.requireModerator(w, r) {
		return
	}
	summaries := s.store.ListGameSummaries()
	games := make([]map[string]any, 0, len(summaries))
	for _, summary := range summaries {
		games = append(games, map[string]any{
			"game_id": summary.ID,
			"state":   summary.State,
			"waiting": summary.Waiting,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request, gameID, action string) {
	if !s.requireModerator(w, r) {
		return
	}
	var game *Game
	var err error
	switch action {
	case "close":
		game, err = s.closeEntry(gameID)
	case "start":
		game, err = s.startGame(gameID)
	case "end":
		game, err = s.endGame(gameID)
	case "reset":
		err = s.resetSession(gameID)
	}
	if err != nil {
		writeCoreError(w, err)
		return
	}
	response := map[string]any{
		"status":  "ok",
		"game_id": gameID,
	}
	if game != nil {
		response["state"] = game.State
	}
	writeJSON(w, http.StatusOK, response)
}

// handleGenerateTokens mints single-use invitation tokens for a game. The
// default response is JSON; format=csv returns the token/URL sheet the
// moderator hands out.
func (s *Server) handleGenerateTokens(w http.ResponseWriter, r *http.Request, gameID string) {
	if !s.requireModerator(w, r) {
		return
	}
	game, ok := s.store.GetGame(gameID)
	if !ok {
		writeCoreError(w, ErrGameNotFound)
		return
	}
	if game.State != stateOpen {
		writeCoreError(w, ErrGameNotJoinable)
		return
	}
	count := 2
	if r.Body != nil && r.ContentLength != 0 {
		var req generateTokensRequest
		if err := readJSON(r.Body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Count > 0 {
			count = req.Count
		}
	}
	if count > 100 {
		writeError(w, http.StatusBadRequest, "count too large")
		return
	}

	ttl := time.Duration(s.cfg.TokenTTLHours) * time.Hour
	records := make([]*tokenRecord, 0, count)
	for i := 0; i < count; i++ {
		record, err := s.tokens.Issue(game, ttl)
		if err != nil {
			writeCoreError(w, err)
			return
		}
		records = append(records, record)
	}
	log.Printf("tokens issued game_id=%s count=%d ttl_hours=%d", gameID, count, s.cfg.TokenTTLHours)

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-tokens.csv", gameID))
		out := csv.NewWriter(w)
		_ = out.Write([]string{"token", "join_url"})
		for _, record := range records {
			_ = out.Write([]string{record.Token, s.joinURL(record.Token)})
		}
		out.Flush()
		return
	}

	tokens := make([]map[string]any, 0, len(records))
	for _, record := range records {
		entry := map[string]any{
			"token":    record.Token,
			"join_url": s.joinURL(record.Token),
		}
		if record.ExpiresAt != nil {
			entry["expires_at"] = record.ExpiresAt
		}
		tokens = append(tokens, entry)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"game_id": gameID,
		"tokens":  tokens,
	})
}

func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request, gameID string) {
	s.bindRole(w, r, gameID, false)
}

// handleSwitchRole is the explicit switch route; the old holder is vacated.
func (s *Server) handleSwitchRole(w http.ResponseWriter, r *http.Request, gameID string) {
	s.bindRole(w, r, gameID, true)
}

func (s *Server) bindRole(w http.ResponseWriter, r *http.Request, gameID string, forceSwitch bool) {
	if !s.requireModerator(w, r) {
		return
	}
	var req assignRoleRequest
	if err := readJSON(r.Body, &req); err != nil || req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "participant_id and role are required")
		return
	}
	if req.Role != rolePlayer1 && req.Role != rolePlayer2 {
		writeError(w, http.StatusBadRequest, "role must be player1 or player2")
		return
	}
	game, err := s.assignRole(gameID, req.ParticipantID, req.Role, forceSwitch || req.Switch)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	s.broadcastGameUpdate(game)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"game_id":        gameID,
		"participant_id": req.ParticipantID,
		"role":           req.Role,
	})
}

// handleKick removes a participant from the waiting room. Their token stays
// redeemed; re-entry needs a fresh one.
func (s *Server) handleKick(w http.ResponseWriter, r *http.Request, gameID string) {
	if !s.requireModerator(w, r) {
		return
	}
	var req struct {
		ParticipantID string `json:"participant_id"`
	}
	if err := readJSON(r.Body, &req); err != nil || req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "participant_id is required")
		return
	}
	game, ok := s.store.GetGame(gameID)
	if !ok {
		writeCoreError(w, ErrGameNotFound)
		return
	}
	if _, waiting := game.waitingPosition(req.ParticipantID); !waiting {
		writeCoreError(w, ErrParticipantNotFound)
		return
	}
	s.store.RemoveWaiting(gameID, req.ParticipantID)
	if _, err := s.appendAndBroadcast(game, Event{
		GameID:        game.ID,
		Role:          roleModerator,
		Action:        "kick",
		ParticipantID: req.ParticipantID,
	}); err != nil {
		log.Printf("kick event not recorded game_id=%s error=%v", game.ID, err)
		writeCoreError(w, err)
		return
	}
	s.ws.NotifyParticipant(req.ParticipantID, map[string]string{
		"type":    "kicked",
		"game_id": game.ID,
	})
	s.broadcastGameUpdate(game)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"game_id": gameID,
	})
}

func (s *Server) handleListWaiting(w http.ResponseWriter, r *http.Request, gameID string) {
	if !s.requireModerator(w, r) {
		return
	}
	game, ok := s.store.GetGame(gameID)
	if !ok {
		writeCoreError(w, ErrGameNotFound)
		return
	}
	waiting := make([]map[string]any, 0, len(game.Waiting))
	for i, entry := range game.Waiting {
		waiting = append(waiting, map[string]any{
			"participant_id": entry.ParticipantID,
			"arrived_at":     entry.ArrivedAt,
			"position":       i + 1,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id": gameID,
		"state":   game.State,
		"waiting": waiting,
	})
}

func (s *Server) handleListAssigned(w http.ResponseWriter, r *http.Request, gameID string) {
	if !s.requireModerator(w, r) {
		return
	}
	game, ok := s.store.GetGame(gameID)
	if !ok {
		writeCoreError(w, ErrGameNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id": gameID,
		"state":   game.State,
		"roles":   game.Roles,
	})
}

// handleTokenQR renders an invitation token's join URL as a PNG so the
// moderator can show it on a shared screen.
func (s *Server) handleTokenQR(w http.ResponseWriter, r *http.Request) {
	if !s.requireModerator(w, r) {
		return
	}
	token, ok := parseTokenQRPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, err := s.tokens.Lookup(token); err != nil {
		writeCoreError(w, err)
		return
	}
	png, err := qrcode.Encode(s.joinURL(token), qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "qr encoding failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (s *Server) joinURL(token string) string {
	return fmt.Sprintf("%s/join?token=%s", s.cfg.BaseURL, token)
}
