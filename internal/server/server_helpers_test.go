package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
)

// testClient is one browser identity: its cookie jar carries the session
// across requests, so moderator login and participant identity stick.
type testClient struct {
	http *http.Client
	base string
}

func newTestClient(t *testing.T, ts *httptest.Server) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testClient{
		http: &http.Client{Jar: jar},
		base: ts.URL,
	}
}

func (c *testClient) do(t *testing.T, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func moderatorLogin(t *testing.T, c *testClient) {
	t.Helper()
	resp := c.do(t, http.MethodPost, "/api/login", map[string]string{
		"password": testConfig().ModeratorPassword,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func openGame(t *testing.T, c *testClient) string {
	t.Helper()
	resp := c.do(t, http.MethodPost, "/api/games", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["game_id"].(string)
}

func issueTokens(t *testing.T, c *testClient, gameID string, count int) []string {
	t.Helper()
	resp := c.do(t, http.MethodPost, "/api/games/"+gameID+"/tokens", map[string]any{
		"count": count,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	entries, ok := body["tokens"].([]any)
	if !ok || len(entries) != count {
		t.Fatalf("expected %d tokens, got %#v", count, body["tokens"])
	}
	tokens := make([]string, 0, count)
	for _, entry := range entries {
		tokens = append(tokens, entry.(map[string]any)["token"].(string))
	}
	return tokens
}

func joinWithToken(t *testing.T, c *testClient, token string) map[string]any {
	t.Helper()
	resp := c.do(t, http.MethodPost, "/api/join", map[string]string{
		"token": token,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

// readyGame opens a game, seats two participants and returns everything a
// gameplay test needs.
func readyGame(t *testing.T, ts *httptest.Server) (mod, p1, p2 *testClient, gameID, id1, id2 string) {
	t.Helper()
	mod = newTestClient(t, ts)
	moderatorLogin(t, mod)
	gameID = openGame(t, mod)
	tokens := issueTokens(t, mod, gameID, 2)

	p1 = newTestClient(t, ts)
	p2 = newTestClient(t, ts)
	body1 := joinWithToken(t, p1, tokens[0])
	body2 := joinWithToken(t, p2, tokens[1])
	id1 = body1["participant_id"].(string)
	id2 = body2["participant_id"].(string)
	return mod, p1, p2, gameID, id1, id2
}

func startedGame(t *testing.T, ts *httptest.Server) (mod, p1, p2 *testClient, gameID, id1, id2 string) {
	t.Helper()
	mod, p1, p2, gameID, id1, id2 = readyGame(t, ts)
	resp := mod.do(t, http.MethodPost, "/api/games/"+gameID+"/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return mod, p1, p2, gameID, id1, id2
}
