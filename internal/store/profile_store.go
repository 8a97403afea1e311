package store

import (
	"context"
	"sync"

	"bakehouse/internal/api"
	"bakehouse/internal/device"
	"bakehouse/internal/domain"
	applog "bakehouse/internal/log"
)

// ProfileStore is a write-through cache over the backend profile: every
// successful fetch or update lands in the device cache, and Cached()
// serves the last-known copy for prefill when offline.
type ProfileStore struct {
	mu      sync.Mutex
	client  *api.Client
	repo    *device.ProfileRepo
	loading bool
	err     string
}

func NewProfileStore(client *api.Client, repo *device.ProfileRepo) *ProfileStore {
	return &ProfileStore{client: client, repo: repo}
}

func (s *ProfileStore) Fetch(ctx context.Context) (domain.Customer, error) {
	s.begin()
	cu, err := s.client.Profile(ctx)
	if err != nil {
		s.fail(err)
		return domain.Customer{}, err
	}
	s.done()
	if err := s.repo.Save(cu); err != nil {
		applog.Error("profile.cache", err, nil)
	}
	return cu, nil
}

func (s *ProfileStore) Update(ctx context.Context, cu domain.Customer) (domain.Customer, error) {
	s.begin()
	updated, err := s.client.UpdateProfile(ctx, cu)
	if err != nil {
		s.fail(err)
		return domain.Customer{}, err
	}
	s.done()
	if err := s.repo.Save(updated); err != nil {
		applog.Error("profile.cache", err, nil)
	}
	return updated, nil
}

// Cached returns the last persisted profile without touching the network.
func (s *ProfileStore) Cached() (domain.Customer, bool) {
	cu, ok, err := s.repo.Load()
	if err != nil {
		applog.Error("profile.cache.read", err, nil)
		return domain.Customer{}, false
	}
	return cu, ok
}

func (s *ProfileStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *ProfileStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ProfileStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *ProfileStore) done() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *ProfileStore) fail(err error) {
	s.mu.Lock()
	s.loading = false
	s.err = err.Error()
	s.mu.Unlock()
}
