package handler

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"givebridge/internal/donation/models"
	dErrors "givebridge/pkg/domain-errors"
)

type locationRequest struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// CreateDonationRequest is the body of POST /api/donations. Amount accepts a
// JSON number or a numeric string so decimals arrive unrounded; exponent forms
// like 1e3 are accepted when they resolve to whole cents.
type CreateDonationRequest struct {
	Category     string           `json:"category"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Quantity     *int             `json:"quantity,omitempty"`
	Location     *locationRequest `json:"location"`
	PickupOption string           `json:"pickupOption"`
	FoodExpiry   *time.Time       `json:"foodExpiry,omitempty"`
	Amount       *json.Number     `json:"amount,omitempty"`
	Urgency      string           `json:"urgency"`
	Images       []string         `json:"images,omitempty"`
}

// Normalize trims free-text fields.
func (r *CreateDonationRequest) Normalize() {
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.PickupOption = strings.ToLower(strings.TrimSpace(r.PickupOption))
	r.Urgency = strings.ToLower(strings.TrimSpace(r.Urgency))
	if r.Location != nil {
		r.Location.Address = strings.TrimSpace(r.Location.Address)
	}
}

func (r *CreateDonationRequest) Params() models.NewDonationParams {
	p := models.NewDonationParams{
		Category:     r.Category,
		Title:        r.Title,
		Description:  r.Description,
		Quantity:     r.Quantity,
		PickupOption: r.PickupOption,
		FoodExpiry:   r.FoodExpiry,
		Urgency:      r.Urgency,
		Images:       r.Images,
	}
	if r.Location != nil {
		p.Location = models.Location{Address: r.Location.Address, Lat: r.Location.Lat, Lng: r.Location.Lng}
	}
	if r.Amount != nil {
		amount := r.Amount.String()
		p.Amount = &amount
	}
	return p
}

// StatusChangeRequest is the body of PATCH /api/donations/{id}/status.
type StatusChangeRequest struct {
	Status string  `json:"status"`
	Reason *string `json:"reason,omitempty"`
}

func (r *StatusChangeRequest) Validate() error {
	if strings.TrimSpace(r.Status) == "" {
		return dErrors.Validation("invalid status change", []dErrors.FieldError{
			{Field: "status", Message: "status is required"},
		})
	}
	return nil
}

// queryParser accumulates field errors while reading query parameters.
type queryParser struct {
	q       url.Values
	details []dErrors.FieldError
}

func (p *queryParser) float(key string) (float64, bool) {
	raw := strings.TrimSpace(p.q.Get(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.details = append(p.details, dErrors.FieldError{Field: key, Message: key + " must be a number"})
		return 0, false
	}
	return v, true
}

func (p *queryParser) integer(key string) int {
	raw := strings.TrimSpace(p.q.Get(key))
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		p.details = append(p.details, dErrors.FieldError{Field: key, Message: key + " must be a non-negative integer"})
		return 0
	}
	return v
}

func (p *queryParser) categories() []models.Category {
	var out []models.Category
	for _, raw := range p.q["category"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			c, err := models.ParseCategory(part)
			if err != nil {
				p.details = append(p.details, dErrors.FieldError{Field: "category", Message: "unknown category " + strconv.Quote(part)})
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

// geo reads lat, lng and radiusKm. All three must be present together.
func (p *queryParser) geo(required bool) *models.GeoQuery {
	lat, hasLat := p.float("lat")
	lng, hasLng := p.float("lng")
	radius, hasRadius := p.float("radiusKm")
	if !hasLat && !hasLng && !hasRadius && !required {
		return nil
	}
	if !hasLat || !hasLng || !hasRadius {
		if len(p.details) == 0 {
			p.details = append(p.details, dErrors.FieldError{Field: "lat,lng,radiusKm", Message: "lat, lng and radiusKm must be given together"})
		}
		return nil
	}
	return &models.GeoQuery{Origin: models.GeoPoint{Lat: lat, Lng: lng}, RadiusKm: radius}
}

func (p *queryParser) err() error {
	if len(p.details) == 0 {
		return nil
	}
	return dErrors.Validation("invalid query parameters", p.details)
}

func parseListFilter(q url.Values) (models.ListFilter, error) {
	p := &queryParser{q: q}
	f := models.ListFilter{
		Categories: p.categories(),
		Search:     q.Get("q"),
		Near:       p.geo(false),
		Limit:      p.integer("limit"),
		Offset:     p.integer("offset"),
	}
	return f, p.err()
}

func parseNearbyQuery(q url.Values) (models.GeoQuery, error) {
	p := &queryParser{q: q}
	g := p.geo(true)
	if err := p.err(); err != nil {
		return models.GeoQuery{}, err
	}
	return *g, nil
}
