package handler

import "givebridge/internal/ngo/service"

type RegisterProfileRequest struct {
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber"`
	ContactEmail       string `json:"contactEmail"`
}

func (r *RegisterProfileRequest) Params() service.RegisterParams {
	return service.RegisterParams{
		Name:               r.Name,
		RegistrationNumber: r.RegistrationNumber,
		ContactEmail:       r.ContactEmail,
	}
}

type RejectRequest struct {
	Reason string `json:"reason"`
}
