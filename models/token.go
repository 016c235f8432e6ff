package models

import "github.com/golang-jwt/jwt/v5"

// FacilitatorClaims is the JWT payload issued by the identity provider.
// FacilitatorID is the opaque owner id of the facilitator's sessions.
type FacilitatorClaims struct {
	FacilitatorID string `json:"facilitator_id"`
	jwt.RegisteredClaims
}
