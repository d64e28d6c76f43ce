package server

import "sort"

// snapshot is the full observable state of a session, sent to a channel on
// connect and after state changes. The secret card only appears when the
// reader passed the moderator gate.
func (s *Server) snapshot(game *Game, includeSecret bool) map[string]any {
	waiting := make([]map[string]any, 0, len(game.Waiting))
	for i, entry := range game.Waiting {
		waiting = append(waiting, map[string]any{
			"participant_id": entry.ParticipantID,
			"position":       i + 1,
			"arrived_at":     entry.ArrivedAt,
		})
	}
	roles := make(map[string]string, len(game.Roles))
	for role, participantID := range game.Roles {
		roles[role] = participantID
	}
	eliminated := make([]int, 0, len(game.Eliminated))
	for cardID := range game.Eliminated {
		eliminated = append(eliminated, cardID)
	}
	sort.Ints(eliminated)

	out := map[string]any{
		"type":       "snapshot",
		"game_id":    game.ID,
		"state":      game.State,
		"created_at": game.CreatedAt,
		"waiting":    waiting,
		"roles":      roles,
		"eliminated": eliminated,
	}
	if includeSecret {
		out["secret_card"] = game.SecretCard
	}
	return out
}

func (s *Server) broadcastGameUpdate(game *Game) {
	if s.ws == nil {
		return
	}
	s.ws.Broadcast(game.ID, s.snapshot(game, false))
}
