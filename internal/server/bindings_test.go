package server

import "testing"

func TestBindingWriteAndAuthorize(t *testing.T) {
	table := newBindingTable(nil)
	if err := table.Write("g1", 0, "alpha", 0, rolePlayer1); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !table.Authorize("g1", 0, "alpha", 0, rolePlayer1) {
		t.Fatalf("expected alpha authorized as player1")
	}
	if table.Authorize("g1", 0, "alpha", 0, rolePlayer2) {
		t.Fatalf("alpha must not pass as player2")
	}
	if table.Authorize("g1", 0, "beta", 0, rolePlayer1) {
		t.Fatalf("unbound participant must not pass")
	}
	if table.Authorize("g2", 0, "alpha", 0, rolePlayer1) {
		t.Fatalf("binding must not leak across games")
	}
}

func TestBindingOverwriteReplacesRole(t *testing.T) {
	table := newBindingTable(nil)
	if err := table.Write("g1", 0, "alpha", 0, rolePlayer1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := table.Write("g1", 0, "alpha", 0, rolePlayer2); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	role, ok := table.Role("g1", 0, "alpha", 0)
	if !ok || role != rolePlayer2 {
		t.Fatalf("expected player2 after overwrite, got %q (%t)", role, ok)
	}
}

func TestBindingDeleteVacates(t *testing.T) {
	table := newBindingTable(nil)
	if err := table.Write("g1", 0, "alpha", 0, rolePlayer1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := table.Delete("g1", 0, "alpha", 0); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := table.Role("g1", 0, "alpha", 0); ok {
		t.Fatalf("expected no role after delete")
	}
}
