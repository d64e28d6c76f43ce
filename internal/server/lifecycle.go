package server

import (
	"log"
	"math/big"

	"crypto/rand"
)

// openEntry allocates a new game, picks its secret card and opens the waiting
// room. The previous session, if any, is untouched; game ids never repeat.
func (s *Server) openEntry() (*Game, error) {
	game := s.store.OpenEntry(pickSecretCard(s.cfg.DeckSize))
	if err := s.persistGame(game); err != nil {
		s.store.RetireGame(game.ID)
		return nil, err
	}
	if _, err := s.appendAndBroadcast(game, Event{
		GameID: game.ID,
		Role:   roleModerator,
		Action: "open",
	}); err != nil {
		log.Printf("open event not recorded game_id=%s error=%v", game.ID, err)
		s.store.RetireGame(game.ID)
		return nil, err
	}
	log.Printf("entry opened game_id=%s", game.ID)
	return game, nil
}

func (s *Server) closeEntry(gameID string) (*Game, error) {
	return s.transition(gameID, "close", stateClosed, stateOpen)
}

// startGame moves READY to IN_PROGRESS once both roles are bound, and sends
// each player a private redirect notice.
func (s *Server) startGame(gameID string) (*Game, error) {
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.State != stateReady {
			return ErrInvalidStateTransition
		}
		if game.Roles[rolePlayer1] == "" || game.Roles[rolePlayer2] == "" {
			return ErrInvalidStateTransition
		}
		previous := game.State
		game.State = stateInProgress
		if err := s.persistState(game); err != nil {
			game.State = previous
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.appendAndBroadcast(game, Event{
		GameID: game.ID,
		Role:   roleModerator,
		Action: "start",
	}); err != nil {
		log.Printf("start event not recorded game_id=%s error=%v", game.ID, err)
		return nil, err
	}
	for role, participantID := range game.Roles {
		s.ws.NotifyParticipant(participantID, map[string]string{
			"type":    "redirect",
			"game_id": game.ID,
			"role":    role,
		})
	}
	log.Printf("game started game_id=%s", game.ID)
	return game, nil
}

func (s *Server) endGame(gameID string) (*Game, error) {
	return s.transition(gameID, "end", stateEnded, stateInProgress)
}

// resetSession retires an ended or closed game. The durable rows and the
// transcript for the old id stay readable forever; the next session starts
// from a fresh openEntry with a new id.
func (s *Server) resetSession(gameID string) error {
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.State != stateEnded && game.State != stateClosed {
			return ErrInvalidStateTransition
		}
		game.Waiting = nil
		game.Roles = make(map[string]string)
		return nil
	})
	if err != nil {
		return err
	}
	if _, err := s.appendAndBroadcast(game, Event{
		GameID: game.ID,
		Role:   roleModerator,
		Action: "reset",
	}); err != nil {
		log.Printf("reset event not recorded game_id=%s error=%v", game.ID, err)
		return err
	}
	s.store.RetireGame(gameID)
	log.Printf("session reset game_id=%s", gameID)
	return nil
}

// transition applies a simple moderator state change guarded by the expected
// current state.
func (s *Server) transition(gameID, action, to string, from ...string) (*Game, error) {
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		allowed := false
		for _, state := range from {
			if game.State == state {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrInvalidStateTransition
		}
		previous := game.State
		game.State = to
		if err := s.persistState(game); err != nil {
			game.State = previous
			return err
		}
		if to == stateClosed {
			game.Waiting = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.appendAndBroadcast(game, Event{
		GameID: game.ID,
		Role:   roleModerator,
		Action: action,
	}); err != nil {
		log.Printf("%s event not recorded game_id=%s error=%v", action, game.ID, err)
		return nil, err
	}
	log.Printf("game %s game_id=%s state=%s", action, game.ID, game.State)
	return game, nil
}

// pickSecretCard draws the hidden card for a new game from a deck of the
// configured size, 1-based.
func pickSecretCard(deckSize int) int {
	if deckSize <= 0 {
		deckSize = 24
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(deckSize)))
	if err != nil {
		return 1
	}
	return int(n.Int64()) + 1
}
