package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

type Service interface {
	Issue(subject string) (*TokenResponse, error)
	Verify(token string) (*Claims, error)
	Enabled() bool
}

type Middleware interface {
	Handler() gin.HandlerFunc
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// ClaimsKey is the gin context key holding the verified *Claims.
const ClaimsKey = "auth.claims"
