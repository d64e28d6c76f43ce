package server

import (
	"errors"

	"guesswho/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/gorm/clause"
)

func (s *Server) persistGame(game *Game) error {
	if s.db == nil {
		return nil
	}
	record := db.Game{
		PublicID:   game.ID,
		State:      game.State,
		SecretCard: game.SecretCard,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return ErrPersistenceFailure
	}
	game.DBID = record.ID
	return nil
}

func (s *Server) persistState(game *Game) error {
	if s.db == nil {
		return nil
	}
	if game.DBID == 0 {
		if err := s.ensureGameDBID(game); err != nil {
			return err
		}
	}
	if game.DBID == 0 {
		return ErrGameNotFound
	}
	if err := s.db.Model(&db.Game{}).Where("id = ?", game.DBID).
		Update("state", game.State).Error; err != nil {
		return ErrPersistenceFailure
	}
	return nil
}

// persistElimination inserts the (game, card) row. The unique index plus
// DoNothing makes a repeat elimination write nothing.
func (s *Server) persistElimination(game *Game, cardID int) error {
	if s.db == nil {
		return nil
	}
	if game.DBID == 0 {
		if err := s.ensureGameDBID(game); err != nil {
			return err
		}
	}
	record := db.EliminatedCard{
		GameID: game.DBID,
		CardID: cardID,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return ErrPersistenceFailure
	}
	return nil
}

func (s *Server) ensureGameDBID(game *Game) error {
	if s.db == nil || game.DBID != 0 {
		return nil
	}
	var record db.Game
	if err := s.db.Where("public_id = ?", game.ID).First(&record).Error; err != nil {
		return nil
	}
	game.DBID = record.ID
	return nil
}

// participantDBID resolves the durable row id for a participant public id,
// zero when running without a database.
func (s *Server) participantDBID(participantID string) uint {
	if participantID == "" {
		return 0
	}
	record, ok := s.participants.Lookup(participantID)
	if !ok {
		return 0
	}
	return record.DBID
}

// lookupRetiredGameDBID finds the durable row for a game that is no longer
// live, so its transcript stays readable after reset.
func (s *Server) lookupRetiredGameDBID(gameID string) uint {
	if s.db == nil {
		return 0
	}
	var record db.Game
	if err := s.db.Where("public_id = ?", gameID).First(&record).Error; err != nil {
		return 0
	}
	return record.ID
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
