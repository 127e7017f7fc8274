// Package backendtest provides an in-process fake of the voting backend.
package backendtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-mvp-voting/backend"
	"github.com/jrsteele09/go-mvp-voting/token"
	"github.com/jrsteele09/go-mvp-voting/users"
	"github.com/rs/zerolog"
)

// Recorded is one request received by the fake.
type Recorded struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
	Body          []byte
}

// Server routes on exact "METHOD /path" keys; unknown routes get a JSON 404.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
	requests []Recorded
}

func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func key(method, path string) string {
	return method + " " + path
}

// Handle registers or replaces the handler for method and path.
func (s *Server) Handle(method, path string, handler http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[key(method, path)] = handler
}

// HandleJSON always answers method and path with status and body.
func (s *Server) HandleJSON(method, path string, status int, body any) {
	s.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, body)
	})
}

func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key(method, path)]
}

func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// Client returns a backend client pointed at the fake with logging disabled.
func (s *Server) Client(t *testing.T) *backend.Client {
	t.Helper()
	client, err := backend.NewClient(s.URL, backend.WithLogger(zerolog.Nop()), backend.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("backend.NewClient: %v", err)
	}
	return client
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	k := key(r.Method, r.URL.Path)

	s.mu.Lock()
	s.calls[k]++
	s.requests = append(s.requests, Recorded{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
		Body:          body,
	})
	handler, ok := s.handlers[k]
	s.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"message": "route not found: " + k})
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	handler(w, r)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// Message writes the backend's {success:false, message} error shape.
func Message(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{"success": false, "message": message})
}

// AuthOK is a successful login response for a regular user.
func AuthOK(accessToken, refreshToken string, expiresAt time.Time, user *users.User) backend.AuthResponse {
	return backend.AuthResponse{
		Success:      true,
		UserType:     string(users.RoleUser),
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    token.Timestamp{Time: expiresAt},
		User:         user,
	}
}

// AdminOK is a successful login response for an admin.
func AdminOK(accessToken string, expiresAt time.Time, admin *users.Admin) backend.AuthResponse {
	return backend.AuthResponse{
		Success:   true,
		UserType:  string(users.RoleAdmin),
		Token:     accessToken,
		ExpiresAt: token.Timestamp{Time: expiresAt},
		Admin:     admin,
	}
}

// TestUser is a fixture voter.
func TestUser() *users.User {
	return &users.User{ID: "u-1", Email: "ana@club.test", Name: "Ana", Active: true}
}

func TestAdmin() *users.Admin {
	return &users.Admin{ID: "a-1", Email: "admin@club.test", Name: "Admin", Active: true}
}
