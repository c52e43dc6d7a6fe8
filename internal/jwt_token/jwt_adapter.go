package jwttoken

import (
	authmw "givebridge/pkg/platform/middleware/auth"
)

// JWTServiceAdapter exposes JWTService through the auth middleware contract.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	p, err := claims.Principal()
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{Principal: p, JTI: claims.ID}, nil
}
