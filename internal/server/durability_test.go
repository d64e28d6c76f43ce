package server

import (
	"net/http"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// unreachableDB opens a handle that accepts writes lazily and fails them on
// first use, standing in for a transcript store that went away mid-session.
func unreachableDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(postgres.Open(
		"host=127.0.0.1 port=9 user=guesswho dbname=guesswho sslmode=disable connect_timeout=1",
	), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("skipping test; lazy database handle unavailable: %v", err)
	}
	return conn
}

func TestOpenEntryFailsWhenTranscriptUnavailable(t *testing.T) {
	srv := New(nil, testConfig())
	srv.log = newEventLog(unreachableDB(t))
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	mod := newTestClient(t, ts)
	moderatorLogin(t, mod)

	resp := mod.do(t, http.MethodPost, "/api/games", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, resp.StatusCode)
	}

	// the half-opened game is rolled back, not left dangling
	if games := srv.store.ListGameSummaries(); len(games) != 0 {
		t.Fatalf("expected no games after failed open, got %d", len(games))
	}
}

func TestEliminateRetriesAfterTranscriptFailure(t *testing.T) {
	srv := New(nil, testConfig())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	mod, _, p2, gameID, _, _ := startedGame(t, ts)

	healthy := srv.log
	srv.log = newEventLog(unreachableDB(t))

	resp := p2.do(t, http.MethodPost, "/api/games/"+gameID+"/eliminate", map[string]any{"card_id": 5})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, resp.StatusCode)
	}
	resp = mod.do(t, http.MethodGet, "/api/games/"+gameID, nil)
	if eliminated := decodeBody(t, resp)["eliminated"].([]any); len(eliminated) != 0 {
		t.Fatalf("expected no eliminations after failed record, got %#v", eliminated)
	}

	// once the transcript store is back the same command lands whole
	srv.log = healthy
	resp = p2.do(t, http.MethodPost, "/api/games/"+gameID+"/eliminate", map[string]any{"card_id": 5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d on retry, got %d", http.StatusOK, resp.StatusCode)
	}
	resp = mod.do(t, http.MethodGet, "/api/games/"+gameID+"/events", nil)
	count := 0
	for _, raw := range decodeBody(t, resp)["events"].([]any) {
		entry := raw.(map[string]any)
		if entry["action"] == actionEliminate {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one eliminate event after retry, got %d", count)
	}
}
