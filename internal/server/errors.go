package server

import (
	"errors"
	"net/http"
)

var (
	ErrGameNotFound           = errors.New("game not found")
	ErrInvalidStateTransition = errors.New("not allowed in current game state")
	ErrCapacityExceeded       = errors.New("waiting room is full")
	ErrTokenNotFound          = errors.New("invalid token")
	ErrTokenExpired           = errors.New("token expired")
	ErrTokenAlreadyUsed       = errors.New("token already used")
	ErrGameNotJoinable        = errors.New("game is not open for entry")
	ErrRoleConflict           = errors.New("role already held by another participant")
	ErrRoleMismatch           = errors.New("participant is not bound to that role")
	ErrParticipantNotFound    = errors.New("participant not found")
	ErrPersistenceFailure     = errors.New("durable write failed")
)

// errorStatus maps core failures to HTTP statuses for the transport layer.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrGameNotFound), errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRoleMismatch):
		return http.StatusForbidden
	case errors.Is(err, ErrPersistenceFailure):
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}
