package models

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListFilter narrows listAvailable. Zero values mean "no restriction".
type ListFilter struct {
	Categories []Category
	Search     string
	Near       *GeoQuery
	Limit      int
	Offset     int
}

// Normalize clamps paging to sane bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// HasCategory reports whether c passes the category restriction.
func (f ListFilter) HasCategory(c Category) bool {
	if len(f.Categories) == 0 {
		return true
	}
	for _, want := range f.Categories {
		if want == c {
			return true
		}
	}
	return false
}

// NearbyResult pairs a donation with its distance from the query origin.
type NearbyResult struct {
	Donation   *Donation
	DistanceKm float64
}
