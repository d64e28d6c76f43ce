package server

import (
	"errors"
	"testing"
)

func TestAddWaitingFillsToReady(t *testing.T) {
	store := NewStore()
	game := store.OpenEntry(7)
	if game.State != stateOpen {
		t.Fatalf("expected OPEN, got %s", game.State)
	}

	_, position, err := store.AddWaiting(game.ID, "alpha")
	if err != nil || position != 1 {
		t.Fatalf("expected position 1, got %d (%v)", position, err)
	}
	updated, position, err := store.AddWaiting(game.ID, "beta")
	if err != nil || position != 2 {
		t.Fatalf("expected position 2, got %d (%v)", position, err)
	}
	if updated.State != stateReady {
		t.Fatalf("expected READY after second arrival, got %s", updated.State)
	}
}

func TestAddWaitingRepeatKeepsPosition(t *testing.T) {
	store := NewStore()
	game := store.OpenEntry(3)

	_, first, err := store.AddWaiting(game.ID, "alpha")
	if err != nil {
		t.Fatalf("add waiting: %v", err)
	}
	updated, again, err := store.AddWaiting(game.ID, "alpha")
	if err != nil {
		t.Fatalf("repeat add waiting: %v", err)
	}
	if again != first {
		t.Fatalf("expected stable position %d, got %d", first, again)
	}
	if len(updated.Waiting) != 1 {
		t.Fatalf("expected one waiting entry, got %d", len(updated.Waiting))
	}
	if updated.State != stateOpen {
		t.Fatalf("expected still OPEN, got %s", updated.State)
	}
}

func TestAddWaitingCapacity(t *testing.T) {
	store := NewStore()
	game := store.OpenEntry(3)
	if _, _, err := store.AddWaiting(game.ID, "alpha"); err != nil {
		t.Fatalf("add waiting: %v", err)
	}
	if _, _, err := store.AddWaiting(game.ID, "beta"); err != nil {
		t.Fatalf("add waiting: %v", err)
	}
	if _, _, err := store.AddWaiting(game.ID, "gamma"); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestUpdateGameUnknownID(t *testing.T) {
	store := NewStore()
	_, err := store.UpdateGame("missing", func(game *Game) error { return nil })
	if !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRetireGameRemovesFromListing(t *testing.T) {
	store := NewStore()
	game := store.OpenEntry(5)
	if _, ok := store.RetireGame(game.ID); !ok {
		t.Fatalf("expected retire to succeed")
	}
	if _, ok := store.GetGame(game.ID); ok {
		t.Fatalf("expected retired game to be gone")
	}
	if len(store.ListGameSummaries()) != 0 {
		t.Fatalf("expected empty listing")
	}

	second := store.OpenEntry(5)
	if second.ID == game.ID {
		t.Fatalf("expected a fresh id after retirement")
	}
}
