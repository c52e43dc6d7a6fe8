package store

import (
	"context"
	"sort"
	"sync"

	"givebridge/internal/donation/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	pstrings "givebridge/pkg/platform/strings"
)

// InMemory is a process-local donation store. Records are cloned on the way
// in and out so callers never share state with the map.
type InMemory struct {
	mu        sync.RWMutex
	donations map[id.DonationID]*models.Donation
}

func NewInMemory() *InMemory {
	return &InMemory{donations: make(map[id.DonationID]*models.Donation)}
}

func (s *InMemory) Create(_ context.Context, d *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.donations[d.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.donations[d.ID] = d.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, donationID id.DonationID) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donations[donationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

// Update replaces the record when the stored version equals expectedVersion.
func (s *InMemory) Update(_ context.Context, d *models.Donation, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.donations[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	s.donations[d.ID] = d.Clone()
	return nil
}

func (s *InMemory) Delete(_ context.Context, donationID id.DonationID, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.donations[donationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	delete(s.donations, donationID)
	return nil
}

func (s *InMemory) ListAvailable(_ context.Context, filter models.ListFilter) ([]*models.Donation, error) {
	filter = filter.Normalize()
	search := pstrings.NormalizeSearch(filter.Search)

	s.mu.RLock()
	matches := make([]*models.Donation, 0)
	for _, d := range s.donations {
		if d.Status != models.StatusAvailable || !filter.HasCategory(d.Category) {
			continue
		}
		if search != "" && !pstrings.ContainsFold(d.Title, search) && !pstrings.ContainsFold(d.Description, search) {
			continue
		}
		if filter.Near != nil && !filter.Near.Contains(d.Location.Point()) {
			continue
		}
		matches = append(matches, d.Clone())
	}
	s.mu.RUnlock()

	sortNewestFirst(matches)
	return page(matches, filter.Offset, filter.Limit), nil
}

func (s *InMemory) ListNearby(_ context.Context, q models.GeoQuery, limit int) ([]models.NearbyResult, error) {
	s.mu.RLock()
	results := make([]models.NearbyResult, 0)
	for _, d := range s.donations {
		if d.Status != models.StatusAvailable {
			continue
		}
		dist := q.Origin.DistanceKm(d.Location.Point())
		if dist > q.RadiusKm {
			continue
		}
		results = append(results, models.NearbyResult{Donation: d.Clone(), DistanceKm: dist})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceKm == results[j].DistanceKm {
			return results[i].Donation.CreatedAt.After(results[j].Donation.CreatedAt)
		}
		return results[i].DistanceKm < results[j].DistanceKm
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *InMemory) ListByDonor(_ context.Context, donorID id.UserID) ([]*models.Donation, error) {
	s.mu.RLock()
	out := make([]*models.Donation, 0)
	for _, d := range s.donations {
		if d.DonorID == donorID {
			out = append(out, d.Clone())
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(ds []*models.Donation) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].ID.String() < ds[j].ID.String()
		}
		return ds[i].CreatedAt.After(ds[j].CreatedAt)
	})
}

func page(ds []*models.Donation, offset, limit int) []*models.Donation {
	if offset >= len(ds) {
		return []*models.Donation{}
	}
	end := offset + limit
	if end > len(ds) {
		end = len(ds)
	}
	return ds[offset:end]
}
