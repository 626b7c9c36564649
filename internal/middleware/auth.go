package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Talalkassab/manfaa-api/pkg/jwtutil"
	"github.com/Talalkassab/manfaa-api/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequireAuth creates a middleware that validates JWT tokens and rejects
// requests without a valid session
func RequireAuth(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			claims, err := claimsFromHeader(c, jwtUtil)
			if err != nil {
				log.Warn("Authentication failed", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}

			c.Set("user", claims)
			return next(c)
		}
	}
}

// OptionalAuth resolves claims when a token is present but lets anonymous
// requests through. File visibility checks downstream treat the missing
// claims as an anonymous requester.
func OptionalAuth(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}

			claims, err := claimsFromHeader(c, jwtUtil)
			if err != nil {
				// An invalid token is not the same as no token
				logger.FromContext(c).Warn("Invalid token on optional-auth route", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}

			c.Set("user", claims)
			return next(c)
		}
	}
}

// RequireAdmin rejects requests whose claims do not carry the admin role.
// Must run after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("user").(*jwtutil.UserClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			if !claims.IsAdmin() {
				logger.FromContext(c).Warn("Non-admin access attempt on admin route",
					zap.Uint("user_id", claims.UserID))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access required"})
			}
			return next(c)
		}
	}
}

// ClaimsFrom returns the authenticated user claims from the context, or nil
// for anonymous requests
func ClaimsFrom(c echo.Context) *jwtutil.UserClaims {
	claims, ok := c.Get("user").(*jwtutil.UserClaims)
	if !ok {
		return nil
	}
	return claims
}

func claimsFromHeader(c echo.Context, jwtUtil *jwtutil.JWTUtil) (*jwtutil.UserClaims, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingHeader
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errInvalidHeader
	}

	claims, err := jwtUtil.ValidateToken(parts[1])
	if err != nil {
		return nil, errInvalidToken
	}
	return claims, nil
}

var (
	errMissingHeader = errors.New("missing authorization header")
	errInvalidHeader = errors.New("invalid authorization header format")
	errInvalidToken  = errors.New("invalid or expired token")
)
