package token

import (
	"flowgate/internal/platform/middleware"
)

// ServiceAdapter bridges the token service to the middleware's validator
// interface without the middleware importing this package's claim type.
type ServiceAdapter struct {
	service *Service
}

func NewServiceAdapter(service *Service) *ServiceAdapter {
	return &ServiceAdapter{service: service}
}

func (a *ServiceAdapter) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{
		ActorID: claims.ActorID,
		Role:    claims.Role,
	}, nil
}
