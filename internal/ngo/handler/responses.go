package handler

import (
	"time"

	"givebridge/internal/ngo/models"
)

type NGOResponse struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	RegistrationNumber string     `json:"registrationNumber"`
	ContactEmail       string     `json:"contactEmail"`
	Status             string     `json:"status"`
	RejectionReason    *string    `json:"rejectionReason,omitempty"`
	VerifiedAt         *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type NGOListResponse struct {
	NGOs  []NGOResponse `json:"ngos"`
	Count int           `json:"count"`
}

func toNGOResponse(n *models.NGO) NGOResponse {
	return NGOResponse{
		ID:                 n.ID.String(),
		Name:               n.Name,
		RegistrationNumber: n.RegistrationNumber,
		ContactEmail:       n.ContactEmail,
		Status:             n.Status.String(),
		RejectionReason:    n.RejectionReason,
		VerifiedAt:         n.VerifiedAt,
		CreatedAt:          n.CreatedAt,
		UpdatedAt:          n.UpdatedAt,
	}
}

func toListResponse(ngos []*models.NGO) NGOListResponse {
	out := NGOListResponse{NGOs: make([]NGOResponse, 0, len(ngos)), Count: len(ngos)}
	for _, n := range ngos {
		out.NGOs = append(out.NGOs, toNGOResponse(n))
	}
	return out
}
