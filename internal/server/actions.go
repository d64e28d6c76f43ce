package server

import "log"

// submitAction validates, logs, and fans out one gameplay action. The caller
// identity comes from the session layer; the claimed role is only accepted if
// the binding table (or the moderator gate) backs it. A rejected action has
// no side effects and is reported to the caller only.
func (s *Server) submitAction(gameID, participantID, claimedRole, action, text string, cardID *int) (Event, error) {
	game, ok := s.store.GetGame(gameID)
	if !ok {
		return Event{}, ErrGameNotFound
	}
	switch claimedRole {
	case rolePlayer1, rolePlayer2:
		if participantID == "" {
			return Event{}, ErrRoleMismatch
		}
		if !s.bindings.Authorize(game.ID, game.DBID, participantID, s.participantDBID(participantID), claimedRole) {
			return Event{}, ErrRoleMismatch
		}
	case roleModerator:
		// the transport layer verified the moderator session before
		// routing here
	default:
		return Event{}, ErrRoleMismatch
	}
	switch action {
	case actionEliminate:
		// elimination keeps its own record; route through the idempotent path
		if claimedRole != rolePlayer2 || cardID == nil {
			return Event{}, ErrRoleMismatch
		}
		event, _, err := s.eliminateCard(gameID, participantID, *cardID)
		return event, err
	case actionQuestion, actionAnswer:
		// re-check under the store lock so a concurrent end cannot slip
		// a gameplay action past the transition
		if _, err := s.store.UpdateGame(gameID, func(game *Game) error {
			if game.State != stateInProgress {
				return ErrInvalidStateTransition
			}
			return nil
		}); err != nil {
			return Event{}, err
		}
	case actionChat, actionNote:
		// allowed throughout the session
	default:
		return Event{}, ErrInvalidStateTransition
	}
	if participantID != "" {
		s.participants.Touch(participantID)
	}
	event, err := s.appendAndBroadcast(game, Event{
		GameID:        game.ID,
		Role:          claimedRole,
		Action:        action,
		Text:          text,
		CardID:        cardID,
		ParticipantID: participantID,
	})
	if err != nil {
		return Event{}, err
	}
	log.Printf("action recorded game_id=%s role=%s action=%s", game.ID, claimedRole, action)
	return event, nil
}

// eliminateCard flips a card down for the guesser. Repeats are a no-op: no
// second record, no second event, still a success to the caller.
func (s *Server) eliminateCard(gameID, participantID string, cardID int) (Event, bool, error) {
	game, ok := s.store.GetGame(gameID)
	if !ok {
		return Event{}, false, ErrGameNotFound
	}
	if !s.bindings.Authorize(game.ID, game.DBID, participantID, s.participantDBID(participantID), rolePlayer2) {
		return Event{}, false, ErrRoleMismatch
	}
	var fresh bool
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.State != stateInProgress {
			return ErrInvalidStateTransition
		}
		if _, done := game.Eliminated[cardID]; done {
			return nil
		}
		if err := s.persistElimination(game, cardID); err != nil {
			return err
		}
		game.Eliminated[cardID] = timeNowUTC()
		fresh = true
		return nil
	})
	if err != nil {
		return Event{}, false, err
	}
	if !fresh {
		return Event{}, false, nil
	}
	event, err := s.appendAndBroadcast(game, Event{
		GameID:        game.ID,
		Role:          rolePlayer2,
		Action:        actionEliminate,
		CardID:        &cardID,
		ParticipantID: participantID,
	})
	if err != nil {
		// drop the memory mark so a retry re-records the event; the
		// durable row survives and the next persist tolerates it
		_, _ = s.store.UpdateGame(gameID, func(game *Game) error {
			delete(game.Eliminated, cardID)
			return nil
		})
		log.Printf("eliminate event not recorded game_id=%s card_id=%d error=%v", game.ID, cardID, err)
		return Event{}, false, err
	}
	s.broadcastGameUpdate(game)
	log.Printf("card eliminated game_id=%s card_id=%d", game.ID, cardID)
	return event, true, nil
}

// appendAndBroadcast persists the event and only then fans it out, so an
// observer never sees an event that is missing from the transcript.
func (s *Server) appendAndBroadcast(game *Game, event Event) (Event, error) {
	if game.DBID == 0 {
		_ = s.ensureGameDBID(game)
	}
	var participantDBID *uint
	if id := s.participantDBID(event.ParticipantID); id != 0 {
		participantDBID = &id
	}
	stored, err := s.log.Append(game.DBID, participantDBID, event)
	if err != nil {
		return Event{}, err
	}
	s.ws.Broadcast(game.ID, map[string]any{
		"type":  "event",
		"event": stored,
	})
	return stored, nil
}
