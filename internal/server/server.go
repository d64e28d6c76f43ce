package server

import (
	"net/http"

	"guesswho/internal/config"

	"gorm.io/gorm"
)

type Server struct {
	store        *Store
	db           *gorm.DB
	ws           *wsHub
	cfg          config.Config
	sessions     *sessionStore
	participants *directory
	tokens       *tokenRegistry
	bindings     *bindingTable
	log          *eventLog
	limiter      *rateLimiter
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	return &Server{
		store:        NewStore(),
		db:           conn,
		ws:           newWSHub(),
		cfg:          cfg,
		sessions:     newSessionStore(conn),
		participants: newDirectory(conn),
		tokens:       newTokenRegistry(conn),
		bindings:     newBindingTable(conn),
		log:          newEventLog(conn),
		limiter:      newRateLimiter(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("POST /api/games", s.handleOpenEntry)
	mux.HandleFunc("GET /api/games", s.handleListGames)
	mux.HandleFunc("GET /api/games/", s.handleGameSubroutes)
	mux.HandleFunc("POST /api/games/", s.handleGameSubroutes)
	mux.HandleFunc("POST /api/join", s.handleJoin)
	mux.HandleFunc("GET /api/join/status", s.handleJoinStatus)
	mux.HandleFunc("GET /api/tokens/", s.handleTokenQR)
	mux.HandleFunc("GET /ws/games/", s.handleWebsocket)
	return mux
}
