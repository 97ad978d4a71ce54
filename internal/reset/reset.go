// Package reset drives the two halves of the password-reset flow: the
// email request and the token-bearing confirmation, including the
// server-rendered fallback for deployments without a confirm endpoint.
package reset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/user/areactl/pkg/api"
)

// Client-side validation failures, surfaced before any network call.
var (
	ErrPasswordRequired = errors.New("password and confirmation are required")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Identifier locates a pending reset. Token alone is valid; UID depends on
// the shape the backend put in the reset email.
type Identifier struct {
	UID   string
	Token string
}

// ParseIdentifier splits a combined link segment at the first '-': the
// part before is the uid, everything after (which may itself contain '-')
// is the token. A segment with no dash is a bare token.
func ParseIdentifier(segment string) Identifier {
	if i := strings.Index(segment, "-"); i >= 0 {
		return Identifier{UID: segment[:i], Token: segment[i+1:]}
	}
	return Identifier{Token: segment}
}

// combined re-joins the identifier into the link-segment form.
func (id Identifier) combined() string {
	if id.UID != "" {
		return id.UID + "-" + id.Token
	}
	return id.Token
}

// Outcome describes a confirm attempt that did not hard-fail.
type Outcome struct {
	// FallbackURL is set when the confirm endpoint is absent on this
	// deployment (404) and the server-rendered page should be opened
	// instead. Non-fatal.
	FallbackURL string
}

// Flow talks to the backend's password endpoints. webBase is the public
// web root used to build the server-rendered fallback URL; it defaults to
// the API base when empty.
type Flow struct {
	api     *api.Client
	webBase string
}

// NewFlow creates a Flow against the given client.
func NewFlow(client *api.Client, webBase string) *Flow {
	return &Flow{api: client, webBase: strings.TrimRight(webBase, "/")}
}

// Request asks the backend to email a reset link. A success response never
// reveals whether the address exists.
func (f *Flow) Request(ctx context.Context, email string) error {
	_, err := f.api.Post(ctx, "/auth/password/reset/", map[string]string{"email": email})
	if err != nil {
		return shapeError(err)
	}
	return nil
}

// Confirm validates the password pair locally, then submits the new
// password with the identifier. A 404 from the backend means the confirm
// endpoint does not exist on this deployment; that is reported through
// Outcome.FallbackURL rather than as an error.
func (f *Flow) Confirm(ctx context.Context, ident Identifier, password, confirm string) (*Outcome, error) {
	if password == "" || confirm == "" {
		return nil, ErrPasswordRequired
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	body := map[string]string{"new_password": password}
	if ident.UID != "" {
		body["uid"] = ident.UID
	}
	if ident.Token != "" {
		body["token"] = ident.Token
	}

	_, err := f.api.Post(ctx, "/auth/password/reset/confirm/", body)
	if err == nil {
		return &Outcome{}, nil
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return &Outcome{FallbackURL: f.webBase + "/reset/" + ident.combined()}, nil
	}
	return nil, shapeError(err)
}

// shapeError renders backend failures for display: decoded detail first,
// then the raw body, then "Erreur <status>". Transport failures get a
// distinct network wrap. The French copy matches the backend's reset
// emails and is part of the contract.
func shapeError(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Detail != "":
			return errors.New(apiErr.Detail)
		case apiErr.Body != "":
			return errors.New(apiErr.Body)
		default:
			return fmt.Errorf("Erreur %d", apiErr.Status)
		}
	}
	if errors.Is(err, api.ErrNetwork) {
		return fmt.Errorf("erreur réseau: %w", err)
	}
	return err
}
