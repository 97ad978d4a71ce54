package resources

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/user/areactl/pkg/api"
)

// catalogFanout bounds the concurrent per-service catalog fetches during a
// Refresh.
const catalogFanout = 4

// ServiceStore mirrors the Service catalog plus each service's Action and
// Reaction lists. Services are immutable from the client's perspective, so
// the only mutations here are subscription calls.
type ServiceStore struct {
	api *api.Client

	mu        sync.RWMutex
	services  []api.Service
	actions   map[string][]api.Action
	reactions map[string][]api.Reaction
	loading   bool
	err       error
}

// NewServiceStore creates an empty store bound to the given client.
func NewServiceStore(client *api.Client) *ServiceStore {
	return &ServiceStore{api: client}
}

// Refresh lists the services, fans out the per-service catalog fetches
// under a bounded errgroup, and replaces the whole mirror at once. Same
// race semantics as AreaStore.Refresh: last response wins.
func (s *ServiceStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	services, actions, reactions, err := s.fetchAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = err
		return err
	}
	s.services = services
	s.actions = actions
	s.reactions = reactions
	return nil
}

func (s *ServiceStore) fetchAll(ctx context.Context) ([]api.Service, map[string][]api.Action, map[string][]api.Reaction, error) {
	var services []api.Service
	if err := s.api.GetInto(ctx, "/services/", &services); err != nil {
		return nil, nil, nil, err
	}

	actions := make(map[string][]api.Action, len(services))
	reactions := make(map[string][]api.Reaction, len(services))
	var catMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(catalogFanout)
	for _, svc := range services {
		svc := svc
		g.Go(func() error {
			var acts []api.Action
			if err := s.api.GetInto(gctx, "/services/"+url.PathEscape(svc.ID)+"/actions/", &acts); err != nil {
				return err
			}
			var reacts []api.Reaction
			if err := s.api.GetInto(gctx, "/services/"+url.PathEscape(svc.ID)+"/reactions/", &reacts); err != nil {
				return err
			}
			catMu.Lock()
			actions[svc.ID] = acts
			reactions[svc.ID] = reacts
			catMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return services, actions, reactions, nil
}

// Services returns a snapshot of the cached service list.
func (s *ServiceStore) Services() []api.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Service, len(s.services))
	copy(out, s.services)
	return out
}

// Service returns the cached service with the given id, or nil.
func (s *ServiceStore) Service(id string) *api.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.services {
		if s.services[i].ID == id {
			svc := s.services[i]
			return &svc
		}
	}
	return nil
}

// Actions returns the cached Action list for a service.
func (s *ServiceStore) Actions(id string) []api.Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actions[id]
}

// Reactions returns the cached Reaction list for a service.
func (s *ServiceStore) Reactions(id string) []api.Reaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reactions[id]
}

// Loading reports whether a Refresh is in flight.
func (s *ServiceStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last Refresh failure, cleared at the start of every new
// attempt.
func (s *ServiceStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Detail fetches one service with its full catalog, bypassing the cache.
func (s *ServiceStore) Detail(ctx context.Context, id string) (*api.ServiceDetail, error) {
	var detail api.ServiceDetail
	if err := s.api.GetInto(ctx, "/services/"+url.PathEscape(id)+"/", &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Subscriptions lists the current user's service subscriptions.
func (s *ServiceStore) Subscriptions(ctx context.Context) ([]api.Subscription, error) {
	var subs []api.Subscription
	if err := s.api.GetInto(ctx, "/services/subscriptions/", &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Subscribe links a third-party credential to a service for the current
// user. No refresh follows: subscription state is not part of the service
// list shape.
func (s *ServiceStore) Subscribe(ctx context.Context, id string, cred api.Credential) error {
	_, err := s.api.Post(ctx, "/services/"+url.PathEscape(id)+"/subscribe", cred)
	return err
}

// Unsubscribe removes the current user's credential for a service. No
// refresh follows, for the same reason as Subscribe.
func (s *ServiceStore) Unsubscribe(ctx context.Context, id string) error {
	_, err := s.api.Delete(ctx, "/services/"+url.PathEscape(id)+"/unsubscribe")
	return err
}
