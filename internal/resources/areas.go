// Package resources maintains in-memory mirrors of the backend's resource
// collections. The mirrors are caches, not sources of truth: every
// mutation re-fetches the full collection (write-through invalidation)
// instead of patching in place, so concurrent backend changes are picked
// up at the cost of an extra round-trip.
package resources

import (
	"context"
	"net/url"
	"sync"

	"github.com/user/areactl/pkg/api"
)

// AreaStore mirrors the authenticated user's Area collection.
type AreaStore struct {
	api *api.Client

	mu      sync.RWMutex
	areas   []api.Area
	loading bool
	err     error
}

// NewAreaStore creates an empty store bound to the given client.
func NewAreaStore(client *api.Client) *AreaStore {
	return &AreaStore{api: client}
}

// Refresh replaces the cached collection with the backend's. Safe to call
// concurrently and repeatedly; overlapping calls race and the last
// response to arrive wins, which can briefly show stale data.
func (s *AreaStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	var areas []api.Area
	err := s.api.GetInto(ctx, "/areas/", &areas)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = err
		return err
	}
	s.areas = areas
	return nil
}

// Areas returns a snapshot of the cached collection.
func (s *AreaStore) Areas() []api.Area {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Area, len(s.areas))
	copy(out, s.areas)
	return out
}

// Loading reports whether a Refresh is in flight.
func (s *AreaStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last Refresh failure, cleared at the start of every new
// attempt.
func (s *AreaStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Create submits a new Area, then unconditionally re-fetches the
// collection. The creation response is returned so callers can read the
// assigned id; a refresh failure is recorded in the store state rather
// than failing the create.
func (s *AreaStore) Create(ctx context.Context, draft api.AreaDraft) (*api.Area, error) {
	var created api.Area
	if err := s.api.PostInto(ctx, "/areas/", draft, &created); err != nil {
		return nil, err
	}
	s.Refresh(ctx)
	return &created, nil
}

// Delete removes an Area, then unconditionally re-fetches the collection.
func (s *AreaStore) Delete(ctx context.Context, id string) error {
	if _, err := s.api.Delete(ctx, "/areas/"+url.PathEscape(id)+"/"); err != nil {
		return err
	}
	s.Refresh(ctx)
	return nil
}

// Logs fetches execution history, filtered to one area when areaID is
// non-empty and unfiltered otherwise.
func (s *AreaStore) Logs(ctx context.Context, areaID string) ([]api.ExecutionLog, error) {
	path := "/areas/logs/"
	if areaID != "" {
		path += "?area=" + url.QueryEscape(areaID)
	}
	var logs []api.ExecutionLog
	if err := s.api.GetInto(ctx, path, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
