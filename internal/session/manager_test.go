package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/areactl/pkg/api"
)

// newBackend returns a fake backend that accepts one credential pair and
// serves a profile for the issued token.
func newBackend(t *testing.T, profileStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login/":
			var creds map[string]string
			json.NewDecoder(r.Body).Decode(&creds)
			if creds["email"] != "u@example.com" || creds["password"] != "hunter2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"access_token":  "tok-access",
				"refresh_token": "tok-refresh",
			})
		case "/auth/me/":
			if r.Header.Get("Authorization") != "Bearer tok-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if profileStatus != http.StatusOK {
				w.WriteHeader(profileStatus)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"id":    "u1",
				"email": "u@example.com",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newManager(t *testing.T, serverURL string) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	client := api.New(serverURL)
	m := NewManager(client, NewStore(dir))
	client.SetTokenSource(m.Token)
	client.SetUnauthorizedHook(m.Invalidate)
	return m, dir
}

func TestLoginEstablishesSession(t *testing.T) {
	server := newBackend(t, http.StatusOK)
	defer server.Close()

	m, dir := newManager(t, server.URL)

	var got []Status
	m.Subscribe(func(s Status) { got = append(got, s) })

	if err := m.Login(context.Background(), "u@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}

	if !m.Authenticated() {
		t.Error("expected authenticated after login")
	}
	if m.Token() != "tok-access" {
		t.Errorf("expected stored access token, got %q", m.Token())
	}
	user := m.CurrentUser()
	if user == nil || user.Email != "u@example.com" {
		t.Errorf("expected cached profile, got %+v", user)
	}
	if len(got) != 1 || got[0] != Authenticated {
		t.Errorf("expected one Authenticated notification, got %v", got)
	}

	// Persisted with owner-only perms.
	path := filepath.Join(dir, "session.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("session file missing: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 perms, got %v", info.Mode().Perm())
	}
}

func TestLoginBadCredentials(t *testing.T) {
	server := newBackend(t, http.StatusOK)
	defer server.Close()

	m, _ := newManager(t, server.URL)

	err := m.Login(context.Background(), "u@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if m.Authenticated() {
		t.Error("expected anonymous after failed login")
	}
}

func TestProfileFetchFailureIsNonFatal(t *testing.T) {
	server := newBackend(t, http.StatusInternalServerError)
	defer server.Close()

	m, _ := newManager(t, server.URL)

	if err := m.Login(context.Background(), "u@example.com", "hunter2"); err != nil {
		t.Fatalf("login should succeed despite profile failure: %v", err)
	}
	if !m.Authenticated() {
		t.Error("expected authenticated with token but no profile")
	}
	if m.CurrentUser() != nil {
		t.Errorf("expected nil profile, got %+v", m.CurrentUser())
	}
}

func TestProfileFetch401DoesNotTearDownNewSession(t *testing.T) {
	// The profile endpoint answering 401 during Establish must not bounce
	// the freshly stored token through Invalidate.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	m, _ := newManager(t, server.URL)

	if err := m.Establish(context.Background(), api.TokenPair{AccessToken: "tok"}); err != nil {
		t.Fatal(err)
	}
	if !m.Authenticated() {
		t.Error("expected session to survive profile 401")
	}
}

func TestRestoreFromDisk(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Save(&State{AccessToken: "persisted", CurrentUser: &api.User{ID: "u1"}}); err != nil {
		t.Fatal(err)
	}

	m := NewManager(api.New("http://unused"), store)
	if !m.Authenticated() {
		t.Error("expected restored session to be authenticated")
	}
	if m.Token() != "persisted" {
		t.Errorf("expected restored token, got %q", m.Token())
	}
	if m.CurrentUser() == nil || m.CurrentUser().ID != "u1" {
		t.Error("expected restored profile")
	}
}

func TestRestoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "session.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	m := NewManager(api.New("http://unused"), NewStore(dir))
	if m.Authenticated() {
		t.Error("expected anonymous manager for corrupt state")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	server := newBackend(t, http.StatusOK)
	defer server.Close()

	m, dir := newManager(t, server.URL)
	if err := m.Login(context.Background(), "u@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}

	var got []Status
	m.Subscribe(func(s Status) { got = append(got, s) })

	if err := m.Logout(); err != nil {
		t.Fatal(err)
	}
	if m.Authenticated() {
		t.Error("expected anonymous after logout")
	}
	if _, err := os.Stat(filepath.Join(dir, "session.json")); !os.IsNotExist(err) {
		t.Error("expected session file removed")
	}
	if len(got) != 1 || got[0] != Anonymous {
		t.Errorf("expected one Anonymous notification, got %v", got)
	}
}

func TestUnauthorizedRequestInvalidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	dir := t.TempDir()
	store := NewStore(dir)
	store.Save(&State{AccessToken: "stale"})

	client := api.New(server.URL)
	m := NewManager(client, store)
	client.SetTokenSource(m.Token)
	client.SetUnauthorizedHook(m.Invalidate)

	client.Get(context.Background(), "/areas/")
	if m.Authenticated() {
		t.Error("expected session invalidated after 401")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	m := NewManager(api.New("http://unused"), NewStore(t.TempDir()))

	calls := 0
	unsub := m.Subscribe(func(Status) { calls++ })
	m.notify(Authenticated)
	unsub()
	m.notify(Anonymous)

	if calls != 1 {
		t.Errorf("expected 1 call after unsubscribe, got %d", calls)
	}
}

func TestClaims(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	signed, err := token.SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatal(err)
	}
	store.Save(&State{AccessToken: signed})

	m := NewManager(api.New("http://unused"), store)
	claims := m.Claims()
	if claims == nil {
		t.Fatal("expected decoded claims")
	}
	if claims.Subject != "u1" {
		t.Errorf("expected subject u1, got %q", claims.Subject)
	}
	if claims.ExpiresAt.Year() != 2030 {
		t.Errorf("expected expiry in 2030, got %v", claims.ExpiresAt)
	}
}

func TestClaimsOpaqueToken(t *testing.T) {
	store := NewStore(t.TempDir())
	store.Save(&State{AccessToken: "not-a-jwt"})

	m := NewManager(api.New("http://unused"), store)
	if m.Claims() != nil {
		t.Error("expected nil claims for opaque token")
	}
}
