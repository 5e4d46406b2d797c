package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"PCHAT/relay/internal/config"
)

type Claims struct {
	jwt.RegisteredClaims
}

type ServiceImpl struct {
	config config.JWTConfig
	now    func() time.Time
}

func NewServiceImpl(config config.JWTConfig) *ServiceImpl {
	if config.ExpiryHours <= 0 {
		config.ExpiryHours = 24
	}
	return &ServiceImpl{config: config, now: time.Now}
}

// Enabled reports whether a signing secret is configured. Without one the
// relay accepts every request.
func (s *ServiceImpl) Enabled() bool {
	return s.config.SecretKey != ""
}

func (s *ServiceImpl) Issue(subject string) (*TokenResponse, error) {
	if !s.Enabled() {
		return nil, errors.New("jwt secret key is not configured")
	}
	if subject == "" {
		return nil, errors.New("subject is required")
	}

	now := s.now()
	expiresAt := now.Add(time.Hour * time.Duration(s.config.ExpiryHours))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	tokenString, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &TokenResponse{Token: tokenString, ExpiresAt: expiresAt.Unix()}, nil
}

func (s *ServiceImpl) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(s.config.SecretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
