package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type MiddlewareImpl struct {
	service Service
}

func NewMiddlewareImpl(service Service) *MiddlewareImpl {
	return &MiddlewareImpl{service: service}
}

// Handler requires a valid bearer token when the service is enabled and is a
// no-op otherwise.
func (m *MiddlewareImpl) Handler() gin.HandlerFunc {
	if !m.service.Enabled() {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	return func(ctx *gin.Context) {
		token, ok := bearerToken(ctx.GetHeader("Authorization"))
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		claims, err := m.service.Verify(token)
		if err != nil {
			slog.Info("rejected token", "error", err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		ctx.Set(ClaimsKey, claims)
		ctx.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
