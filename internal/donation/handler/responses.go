package handler

import (
	"time"

	"givebridge/internal/donation/models"
)

type locationResponse struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// DonationResponse is the wire form of a donation.
type DonationResponse struct {
	ID                 string           `json:"id"`
	DonorID            string           `json:"donorId"`
	Category           string           `json:"category"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Quantity           *int             `json:"quantity,omitempty"`
	Location           locationResponse `json:"location"`
	PickupOption       string           `json:"pickupOption"`
	Urgency            string           `json:"urgency"`
	Images             []string         `json:"images"`
	FoodExpiry         *time.Time       `json:"foodExpiry,omitempty"`
	Amount             *string          `json:"amount,omitempty"`
	Status             string           `json:"status"`
	AcceptedBy         *string          `json:"acceptedBy"`
	AcceptedAt         *time.Time       `json:"acceptedAt"`
	CollectedAt        *time.Time       `json:"collectedAt"`
	CompletedAt        *time.Time       `json:"completedAt"`
	CancelledAt        *time.Time       `json:"cancelledAt"`
	CancellationReason *string          `json:"cancellationReason"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
	Version            int              `json:"version"`
}

func toDonationResponse(d *models.Donation) DonationResponse {
	resp := DonationResponse{
		ID:          d.ID.String(),
		DonorID:     d.DonorID.String(),
		Category:    d.Category.String(),
		Title:       d.Title,
		Description: d.Description,
		Location: locationResponse{
			Address: d.Location.Address,
			Lat:     d.Location.Lat,
			Lng:     d.Location.Lng,
		},
		PickupOption:       d.PickupOption.String(),
		Urgency:            d.Urgency.String(),
		Images:             d.Images,
		Status:             d.Status.String(),
		AcceptedAt:         d.AcceptedAt,
		CollectedAt:        d.CollectedAt,
		CompletedAt:        d.CompletedAt,
		CancelledAt:        d.CancelledAt,
		CancellationReason: d.CancellationReason,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		Version:            d.Version,
	}
	if resp.Images == nil {
		resp.Images = []string{}
	}
	if d.AcceptedBy != nil {
		v := d.AcceptedBy.String()
		resp.AcceptedBy = &v
	}
	switch det := d.Details.(type) {
	case models.FoodDetails:
		q, exp := det.Quantity, det.Expiry
		resp.Quantity, resp.FoodExpiry = &q, &exp
	case models.FinancialDetails:
		a := det.Amount()
		resp.Amount = &a
	case models.ItemDetails:
		q := det.Quantity
		resp.Quantity = &q
	}
	return resp
}

// donationEnvelope is the success body of single-donation responses.
type donationEnvelope struct {
	Success   bool             `json:"success"`
	Donation  DonationResponse `json:"donation"`
	Timestamp time.Time        `json:"timestamp"`
}

// DonationListResponse is the data of list responses.
type DonationListResponse struct {
	Donations []DonationResponse `json:"donations"`
	Count     int                `json:"count"`
	Limit     int                `json:"limit,omitempty"`
	Offset    int                `json:"offset,omitempty"`
}

func toListResponse(ds []*models.Donation) DonationListResponse {
	out := DonationListResponse{Donations: make([]DonationResponse, 0, len(ds)), Count: len(ds)}
	for _, d := range ds {
		out.Donations = append(out.Donations, toDonationResponse(d))
	}
	return out
}

// NearbyDonationResponse adds the great-circle distance from the query origin.
type NearbyDonationResponse struct {
	DonationResponse
	DistanceKm float64 `json:"distanceKm"`
}

type NearbyListResponse struct {
	Donations []NearbyDonationResponse `json:"donations"`
	Count     int                      `json:"count"`
	RadiusKm  float64                  `json:"radiusKm"`
}

func toNearbyResponse(results []models.NearbyResult, radiusKm float64) NearbyListResponse {
	out := NearbyListResponse{
		Donations: make([]NearbyDonationResponse, 0, len(results)),
		Count:     len(results),
		RadiusKm:  radiusKm,
	}
	for _, r := range results {
		out.Donations = append(out.Donations, NearbyDonationResponse{
			DonationResponse: toDonationResponse(r.Donation),
			DistanceKm:       r.DistanceKm,
		})
	}
	return out
}
