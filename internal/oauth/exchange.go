// Package oauth converts a Google authorization code into a session. The
// provider-side exchange happens on the backend; this client builds the
// consent URL, captures the redirect, and submits the code.
package oauth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/user/areactl/internal/session"
	"github.com/user/areactl/pkg/api"
)

// ErrNoCode is returned when the provider redirect carried no
// authorization code. The text is user-facing copy.
var ErrNoCode = errors.New("No code provided by Google.")

// ErrExchangeFailed is the generic user-facing failure for a rejected
// exchange; the raw cause is logged, not surfaced.
var ErrExchangeFailed = errors.New("Google sign-in failed, please try again")

// AuthCodeURL builds the Google consent URL for the authorization-code
// flow. No client secret is involved; the backend performs the
// provider-side exchange.
func AuthCodeURL(clientID, redirectURI, state string) string {
	cfg := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Endpoint:    google.Endpoint,
		Scopes:      []string{"openid", "email", "profile"},
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Flow is the one-shot code-for-session exchange. It runs once per
// invocation; the only cancellation path is the context.
type Flow struct {
	api         *api.Client
	sessions    *session.Manager
	redirectURI string
}

// NewFlow wires the exchange to the backend client and session manager.
// redirectURI must match the one the consent URL was built with.
func NewFlow(client *api.Client, sessions *session.Manager, redirectURI string) *Flow {
	return &Flow{api: client, sessions: sessions, redirectURI: redirectURI}
}

// Exchange submits the authorization code to the backend and establishes
// the resulting session. An empty code fails immediately without any
// network call. A failed profile fetch after a successful exchange does
// not fail the flow.
func (f *Flow) Exchange(ctx context.Context, code string) error {
	if code == "" {
		return ErrNoCode
	}

	var pair api.TokenPair
	err := f.api.PostInto(ctx, "/auth/google/login/", map[string]string{
		"code":         code,
		"redirect_uri": f.redirectURI,
	}, &pair)
	if err != nil {
		slog.Error("oauth exchange failed", "error", err)
		return ErrExchangeFailed
	}

	return f.sessions.Establish(ctx, pair)
}
