package server

import (
	"sort"
	"sync"
	"time"

	"guesswho/internal/ids"
)

// Store is the registry of live sessions, keyed by game id. Every mutation of
// a game's state runs under the store lock; games are independent otherwise.
type Store struct {
	mu    sync.Mutex
	games map[string]*Game
}

func NewStore() *Store {
	return &Store{
		games: make(map[string]*Game),
	}
}

// OpenEntry allocates a fresh game in OPEN state with an empty waiting room.
func (s *Store) OpenEntry(secretCard int) *Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	game := &Game{
		ID:         ids.New(),
		State:      stateOpen,
		SecretCard: secretCard,
		CreatedAt:  timeNowUTC(),
		Roles:      make(map[string]string),
		Eliminated: make(map[int]time.Time),
	}
	s.games[game.ID] = game
	return game
}

func (s *Store) GetGame(id string) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	return game, ok
}

// UpdateGame runs update with the store lock held. If update returns an
// error the game is left as the closure left it, so closures must not
// mutate before their last failure check.
func (s *Store) UpdateGame(id string, update func(game *Game) error) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	if err := update(game); err != nil {
		return nil, err
	}
	return game, nil
}

// AddWaiting places a participant in the waiting room. Re-adding the same
// participant returns the existing position so redemption retries are safe.
// Filling the second slot flips the game to READY.
func (s *Store) AddWaiting(gameID, participantID string) (*Game, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[gameID]
	if !ok {
		return nil, 0, ErrGameNotFound
	}
	if position, found := game.waitingPosition(participantID); found {
		return game, position, nil
	}
	if game.State != stateOpen {
		return nil, 0, ErrGameNotJoinable
	}
	if len(game.Waiting) >= waitingCapacity {
		return nil, 0, ErrCapacityExceeded
	}
	game.Waiting = append(game.Waiting, WaitingEntry{
		ParticipantID: participantID,
		ArrivedAt:     timeNowUTC(),
	})
	if len(game.Waiting) == waitingCapacity {
		game.State = stateReady
	}
	return game, len(game.Waiting), nil
}

// RemoveWaiting drops a participant from the waiting room, used when a
// redemption has to be rolled back.
func (s *Store) RemoveWaiting(gameID, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[gameID]
	if !ok {
		return
	}
	for i, entry := range game.Waiting {
		if entry.ParticipantID == participantID {
			game.Waiting = append(game.Waiting[:i], game.Waiting[i+1:]...)
			break
		}
	}
	if game.State == stateReady && len(game.Waiting) < waitingCapacity {
		game.State = stateOpen
	}
}

// RetireGame removes a game from the live registry. The historical rows and
// transcript stay queryable; only the in-memory session is gone.
func (s *Store) RetireGame(id string) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return nil, false
	}
	delete(s.games, id)
	return game, true
}

func (s *Store) ListGameSummaries() []GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]GameSummary, 0, len(s.games))
	for _, game := range s.games {
		list = append(list, GameSummary{
			ID:      game.ID,
			State:   game.State,
			Waiting: len(game.Waiting),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
