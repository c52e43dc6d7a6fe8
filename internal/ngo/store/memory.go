package store

import (
	"context"
	"sort"
	"sync"

	"givebridge/internal/ngo/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
)

type InMemory struct {
	mu   sync.RWMutex
	ngos map[id.UserID]*models.NGO
}

func NewInMemory() *InMemory {
	return &InMemory{ngos: make(map[id.UserID]*models.NGO)}
}

func (s *InMemory) Create(_ context.Context, n *models.NGO) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ngos[n.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	for _, existing := range s.ngos {
		if existing.RegistrationNumber == n.RegistrationNumber {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.ngos[n.ID] = n.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, ngoID id.UserID) (*models.NGO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.ngos[ngoID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return n.Clone(), nil
}

// Update persists the verification columns of an existing profile.
func (s *InMemory) Update(_ context.Context, n *models.NGO) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ngos[n.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.ngos[n.ID] = n.Clone()
	return nil
}

// ListByStatus returns profiles in status, oldest registration first.
// An empty status lists every profile.
func (s *InMemory) ListByStatus(_ context.Context, status models.Status) ([]*models.NGO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.NGO, 0, len(s.ngos))
	for _, n := range s.ngos {
		if status != "" && n.Status != status {
			continue
		}
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
