package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
)

const tokenIssuer = "emocircle"

// IdentityService verifies facilitator tokens. Accounts live with an
// external identity provider that signs HS256 tokens with the shared secret;
// Issue exists for development and the `token` command.
type IdentityService interface {
	Issue(facilitatorID string) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString string) (*models.FacilitatorClaims, error)
}

type identityService struct {
	secret []byte
	expiry time.Duration
}

// NewIdentityService builds the service from the shared secret.
func NewIdentityService(secret string, expiry time.Duration) IdentityService {
	return &identityService{secret: []byte(secret), expiry: expiry}
}

func (s *identityService) Issue(facilitatorID string) (string, time.Time, error) {
	facilitatorID = strings.TrimSpace(facilitatorID)
	if facilitatorID == "" {
		return "", time.Time{}, fmt.Errorf("%w: facilitator id is required", pkg.ErrValidation)
	}

	now := time.Now()
	expiresAt := now.Add(s.expiry)
	claims := &models.FacilitatorClaims{
		FacilitatorID: facilitatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   facilitatorID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *identityService) ValidateToken(tokenString string) (*models.FacilitatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.FacilitatorClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.FacilitatorClaims)
	if !ok || !token.Valid || claims.FacilitatorID == "" {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}
	return claims, nil
}
