package oauth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
)

// redirect is what the provider handed back on the callback route.
type redirect struct {
	code string
	err  error
}

// CallbackServer captures the provider redirect on a loopback address,
// standing in for the browser redirect route. It serves the callback
// exactly once; later hits get a plain "already handled" page.
type CallbackServer struct {
	state    string
	srv      *http.Server
	listener net.Listener
	once     sync.Once
	results  chan redirect
}

// NewCallbackServer creates a server for one redirect carrying the given
// state value.
func NewCallbackServer(state string) *CallbackServer {
	s := &CallbackServer{
		state:   state,
		results: make(chan redirect, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)
	s.srv = &http.Server{Handler: mux}
	return s
}

// Start listens on 127.0.0.1 and returns the redirect URI to register
// with the consent URL. Port 0 picks a free port, which only works when
// the OAuth app allows a wildcard loopback redirect.
func (s *CallbackServer) Start(port int) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", fmt.Errorf("listen for oauth callback: %w", err)
	}
	s.listener = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("oauth callback server", "error", err)
		}
	}()
	return fmt.Sprintf("http://%s/callback", ln.Addr().String()), nil
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if s.state != "" && q.Get("state") != s.state {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, "State mismatch. Close this tab and retry the sign-in.\n")
		return
	}

	delivered := false
	s.once.Do(func() {
		s.results <- redirect{code: q.Get("code")}
		delivered = true
	})
	if !delivered {
		io.WriteString(w, "Sign-in already handled. You can close this tab.\n")
		return
	}
	io.WriteString(w, "Sign-in received. You can close this tab and return to the terminal.\n")
}

// Wait blocks until the redirect arrives or ctx is done, and returns the
// authorization code. The code may be empty when the provider sent none;
// Exchange turns that into ErrNoCode.
func (s *CallbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-s.results:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts the server down.
func (s *CallbackServer) Close() {
	s.srv.Close()
}
