package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
	"github.com/sankalp-sachan/ATTENDLY/pkg/logger"
	"github.com/sankalp-sachan/ATTENDLY/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated models.User.
const ContextUserKey = "currentUser"

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			msg := "invalid authorization header"
			if c.GetHeader("Authorization") == "" {
				msg = "missing bearer token"
			}
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthorized, msg))
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			response.Abort(c, err)
			return
		}

		SetUser(c, claims.User())
		c.Next()
	}
}

// SetUser stores the caller on the context. Tests use it to skip token parsing.
func SetUser(c *gin.Context, user models.User) {
	c.Set(ContextUserKey, user)
	c.Set(logger.UserIDKey, user.ID)
}

// CurrentUser returns the authenticated caller.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok && user.ID != ""
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
