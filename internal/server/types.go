package server

import "time"

const (
	stateClosed     = "CLOSED"
	stateOpen       = "OPEN"
	stateReady      = "READY"
	stateInProgress = "IN_PROGRESS"
	stateEnded      = "ENDED"
)

const (
	rolePlayer1   = "player1"
	rolePlayer2   = "player2"
	roleModerator = "moderator"
)

const (
	actionQuestion  = "question"
	actionAnswer    = "answer"
	actionChat      = "chat"
	actionNote      = "note"
	actionEliminate = "eliminate"
)

// waitingCapacity is the fixed number of player slots per game. A redemption
// beyond it is rejected, not queued.
const waitingCapacity = 2

type GameSummary struct {
	ID      string
	State   string
	Waiting int
}

// Game is the live per-session state. All mutation happens inside the
// Store's lock.
type Game struct {
	ID         string
	DBID       uint
	State      string
	SecretCard int
	CreatedAt  time.Time
	Waiting    []WaitingEntry
	Roles      map[string]string
	Eliminated map[int]time.Time
}

type WaitingEntry struct {
	ParticipantID string
	ArrivedAt     time.Time
}

// roleOf returns the role currently bound to a participant in this game.
func (g *Game) roleOf(participantID string) (string, bool) {
	for role, holder := range g.Roles {
		if holder == participantID {
			return role, true
		}
	}
	return "", false
}

func (g *Game) waitingPosition(participantID string) (int, bool) {
	for i, entry := range g.Waiting {
		if entry.ParticipantID == participantID {
			return i + 1, true
		}
	}
	return 0, false
}
