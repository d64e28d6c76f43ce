package server

import "log"

// assignRole binds a participant to a role. Re-binding the same pair is a
// no-op. When allowSwitch is false a role held by someone else is a conflict;
// with allowSwitch the previous holder is vacated first, durably, so the old
// authorization dies before the new one exists.
func (s *Server) assignRole(gameID, participantID, role string, allowSwitch bool) (*Game, error) {
	record, ok := s.participants.Lookup(participantID)
	if !ok {
		return nil, ErrParticipantNotFound
	}
	var vacated string
	var changed bool
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.State != stateReady && game.State != stateInProgress {
			return ErrInvalidStateTransition
		}
		holder := game.Roles[role]
		if holder == participantID {
			return nil
		}
		if holder != "" && !allowSwitch {
			return ErrRoleConflict
		}
		oldRole, hadRole := game.roleOf(participantID)
		if !hadRole {
			if _, waiting := game.waitingPosition(participantID); !waiting {
				return ErrParticipantNotFound
			}
		}
		if holder != "" {
			if err := s.bindings.Delete(game.ID, game.DBID, holder, s.participantDBID(holder)); err != nil {
				return err
			}
		}
		if holder != "" && holder != participantID {
			// the vacated holder goes back to the waiting room so the
			// moderator can seat them again
			game.Waiting = append(game.Waiting, WaitingEntry{
				ParticipantID: holder,
				ArrivedAt:     timeNowUTC(),
			})
		}
		if err := s.bindings.Write(game.ID, game.DBID, participantID, record.DBID, role); err != nil {
			return err
		}
		if hadRole {
			delete(game.Roles, oldRole)
		}
		vacated = holder
		changed = true
		game.Roles[role] = participantID
		removeWaitingLocked(game, participantID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		// idempotent re-bind, nothing to record
		return game, nil
	}
	action := "role_assigned"
	if allowSwitch {
		action = "role_switched"
	}
	if _, err := s.appendAndBroadcast(game, Event{
		GameID:        game.ID,
		Role:          roleModerator,
		Action:        action,
		Text:          role,
		ParticipantID: participantID,
	}); err != nil {
		log.Printf("role event not recorded game_id=%s error=%v", game.ID, err)
		return nil, err
	}
	s.ws.NotifyParticipant(participantID, map[string]string{
		"type":    "role",
		"game_id": game.ID,
		"role":    role,
	})
	if vacated != "" && vacated != participantID {
		s.ws.NotifyParticipant(vacated, map[string]string{
			"type":    "role",
			"game_id": game.ID,
			"role":    "",
		})
	}
	log.Printf("role bound game_id=%s participant_id=%s role=%s switch=%t", game.ID, participantID, role, allowSwitch)
	return game, nil
}

// autoAssignRoles gives the two waiting participants provisional roles by
// arrival order once the room fills. The moderator can still switch them
// before or after start.
func (s *Server) autoAssignRoles(gameID string) error {
	var first, second string
	_, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.State != stateReady || len(game.Roles) > 0 {
			return nil
		}
		if len(game.Waiting) < waitingCapacity {
			return nil
		}
		first = game.Waiting[0].ParticipantID
		second = game.Waiting[1].ParticipantID
		firstDBID := s.participantDBID(first)
		secondDBID := s.participantDBID(second)
		if err := s.bindings.Write(game.ID, game.DBID, first, firstDBID, rolePlayer1); err != nil {
			return err
		}
		if err := s.bindings.Write(game.ID, game.DBID, second, secondDBID, rolePlayer2); err != nil {
			return err
		}
		game.Roles[rolePlayer1] = first
		game.Roles[rolePlayer2] = second
		game.Waiting = nil
		return nil
	})
	if err != nil {
		return err
	}
	if first == "" {
		return nil
	}
	for participantID, role := range map[string]string{first: rolePlayer1, second: rolePlayer2} {
		s.ws.NotifyParticipant(participantID, map[string]string{
			"type":    "role",
			"game_id": gameID,
			"role":    role,
		})
	}
	log.Printf("roles auto-assigned game_id=%s player1=%s player2=%s", gameID, first, second)
	return nil
}

func removeWaitingLocked(game *Game, participantID string) {
	for i, entry := range game.Waiting {
		if entry.ParticipantID == participantID {
			game.Waiting = append(game.Waiting[:i], game.Waiting[i+1:]...)
			return
		}
	}
}
