package api

import "time"

// Service is a third-party integration exposing Actions and Reactions.
type Service struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	IconURL        string `json:"icon_url,omitempty"`
	ActionsCount   int    `json:"actions_count"`
	ReactionsCount int    `json:"reactions_count"`
}

// ServiceDetail is a Service plus its full capability catalog.
type ServiceDetail struct {
	Service
	Actions   []Action   `json:"actions"`
	Reactions []Reaction `json:"reactions"`
}

// Action is a triggering capability exposed by a Service.
type Action struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Service     string `json:"service"`
}

// Reaction is an effect capability exposed by a Service.
type Reaction struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Service     string `json:"service"`
}

// Area binds one Action to one Reaction: when the action fires with
// ConfigAction, perform the reaction with ConfigReaction. The config blobs
// are opaque; their schema is service-specific and owned by the backend.
type Area struct {
	ID             string         `json:"id"`
	Action         string         `json:"action"`
	Reaction       string         `json:"reaction"`
	ConfigAction   map[string]any `json:"config_action"`
	ConfigReaction map[string]any `json:"config_reaction"`
	Enabled        bool           `json:"enabled"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AreaDraft is the creation payload for an Area. The backend assigns ID and
// CreatedAt.
type AreaDraft struct {
	Action         string         `json:"action"`
	Reaction       string         `json:"reaction"`
	ConfigAction   map[string]any `json:"config_action"`
	ConfigReaction map[string]any `json:"config_reaction"`
	Enabled        bool           `json:"enabled"`
}

// ExecutionLog records one firing of an Area. Append-only on the backend;
// the client only reads it.
type ExecutionLog struct {
	ID         string    `json:"id"`
	AreaID     string    `json:"area_id"`
	ExecutedAt time.Time `json:"executed_at"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
}

// Credential is third-party token material attached to a Service
// subscription.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

// Subscription links the current user to a Service via a stored Credential.
type Subscription struct {
	ID        string    `json:"id"`
	Service   string    `json:"service"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPair is the session token material returned by login and by the
// OAuth code exchange.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// User is the authenticated user's profile from /auth/me/.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}
