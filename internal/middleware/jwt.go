package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/interview-eval-api/internal/utils"
)

const subjectLocal = "subject"

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// JWTProtected validates HMAC-signed bearer tokens and stores the token subject on the request.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get(fiber.HeaderAuthorization)
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errUnexpectedSigningMethod
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if subject := strings.TrimSpace(claims.Subject); subject != "" {
			c.Locals(subjectLocal, subject)
		}

		return c.Next()
	}
}

// SubjectFromContext returns the authenticated token subject, if any.
func SubjectFromContext(c *fiber.Ctx) string {
	if value, ok := c.Locals(subjectLocal).(string); ok {
		return value
	}
	return ""
}
