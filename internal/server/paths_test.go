package server

import "testing"

func TestParseGamePath(t *testing.T) {
	cases := []struct {
		path   string
		gameID string
		action string
		ok     bool
	}{
		{"/api/games/abc", "abc", "", true},
		{"/api/games/abc/", "abc", "", true},
		{"/api/games/abc/events", "abc", "events", true},
		{"/api/games/abc/tokens", "abc", "tokens", true},
		{"/api/games/abc/roles/switch", "abc", "roles/switch", true},
		{"/api/games/", "", "", false},
		{"/api/games/abc/events/extra", "", "", false},
	}
	for _, tc := range cases {
		gameID, action, ok := parseGamePath(tc.path)
		if gameID != tc.gameID || action != tc.action || ok != tc.ok {
			t.Fatalf("parseGamePath(%q) = %q %q %t, want %q %q %t",
				tc.path, gameID, action, ok, tc.gameID, tc.action, tc.ok)
		}
	}
}

func TestParseWebsocketPath(t *testing.T) {
	if gameID, ok := parseWebsocketPath("/ws/games/abc"); !ok || gameID != "abc" {
		t.Fatalf("expected abc, got %q %t", gameID, ok)
	}
	if _, ok := parseWebsocketPath("/ws/games/"); ok {
		t.Fatalf("expected failure on empty id")
	}
}

func TestParseTokenQRPath(t *testing.T) {
	if token, ok := parseTokenQRPath("/api/tokens/deadbeef/qr"); !ok || token != "deadbeef" {
		t.Fatalf("expected deadbeef, got %q %t", token, ok)
	}
	if _, ok := parseTokenQRPath("/api/tokens/deadbeef"); ok {
		t.Fatalf("expected failure without qr suffix")
	}
}
