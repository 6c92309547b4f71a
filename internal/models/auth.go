package models

import (
	"github.com/golang-jwt/jwt/v5"
)

const TokenTypeBearer = "bearer"

// TokenClaims are the claims carried by an access token. The subject is the
// user's email.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
