package server

import (
	"crypto/subtle"
	"log"
	"net/http"
)

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "login") {
		return
	}
	var req loginRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}
	if s.cfg.ModeratorPassword == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.ModeratorPassword)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	s.sessions.SetModerator(w, r, true)
	log.Printf("moderator logged in remote=%s", r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.SetModerator(w, r, false)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireModerator gates every privileged command. The transport resolves the
// caller from the session cookie; no request field is trusted for this.
func (s *Server) requireModerator(w http.ResponseWriter, r *http.Request) bool {
	if s.sessions.IsModerator(w, r) {
		return true
	}
	writeError(w, http.StatusUnauthorized, "moderator login required")
	return false
}
