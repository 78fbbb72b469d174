package middleware

import (
	"net/http"
	"strings"
	"time"

	"auctionWatch/pkg/logger"
	"auctionWatch/pkg/utils"

	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Message string `json:"message"`
}

// AuthMiddleware guards the mutating analysis endpoints with a bearer JWT
// verified against the configured secret. Read endpoints stay open; only
// triggering a run requires a token.
func AuthMiddleware(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, errorBody{Message: "missing authorization header"})
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid authorization format"})
			}

			claims, err := utils.ParseJWT(tokenParts[1], key)
			if err != nil {
				logger.Error("Failed to parse JWT", err)
				return c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid token"})
			}

			expAt, err := claims.GetExpirationTime()
			if err != nil || expAt == nil {
				return c.JSON(http.StatusForbidden, errorBody{Message: "token has no expiration"})
			}
			if time.Now().After(expAt.Time) {
				return c.JSON(http.StatusForbidden, errorBody{Message: "token expired"})
			}

			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)

			return next(c)
		}
	}
}

// RequireRole allows only the given roles past. Used on top of
// AuthMiddleware for analyst-only operations.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, errorBody{Message: "insufficient role"})
		}
	}
}
