package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func checkName(t *testing.T, engine http.Handler, name string) CheckNameResponse {
	t.Helper()

	body, _ := json.Marshal(CheckNameRequest{Name: name})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users/check", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp CheckNameResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestCheckNameAvailable(t *testing.T) {
	engine, _, _ := createTestRouter(t)

	if resp := checkName(t, engine, "alice"); !resp.Available {
		t.Fatal("unclaimed name must be available")
	}
}

func TestCheckNameTakenByOnlineClaim(t *testing.T) {
	engine, st, _ := createTestRouter(t)

	if err := st.RegisterName(context.Background(), "alice", "u1", "board"); err != nil {
		t.Fatalf("register name: %v", err)
	}
	if resp := checkName(t, engine, "alice"); resp.Available {
		t.Fatal("online claim must block the name")
	}
}

func TestCheckNameGuestPrefixNeverAvailable(t *testing.T) {
	engine, _, _ := createTestRouter(t)

	if resp := checkName(t, engine, "User 1234"); resp.Available {
		t.Fatal("guest-prefixed names must never be claimable")
	}
}

func TestListActiveUsers(t *testing.T) {
	engine, st, _ := createTestRouter(t)

	ctx := context.Background()
	if err := st.RegisterName(ctx, "alice", "u1", "board"); err != nil {
		t.Fatalf("register name: %v", err)
	}
	if err := st.RegisterName(ctx, "bob", "u2", "board"); err != nil {
		t.Fatalf("register name: %v", err)
	}
	if err := st.SetOnline(ctx, "bob", false); err != nil {
		t.Fatalf("set offline: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Users       []GlobalNameResponse `json:"users"`
		ActiveNames []string             `json:"active_names"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Users) != 2 {
		t.Fatalf("user count = %d, want 2", len(resp.Users))
	}
	online := map[string]bool{}
	for _, u := range resp.Users {
		online[u.Name] = u.IsOnline
	}
	if !online["alice"] || online["bob"] {
		t.Fatalf("unexpected online flags: %v", online)
	}
}
