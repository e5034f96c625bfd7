package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/coverlane/coverlane/common/errors"
)

const callerKey = "caller"

// authMiddleware resolves the caller identity from a bearer token. The token
// subject is the caller's UUID; signature verification is HMAC over the
// configured secret. Key custody itself lives outside this service.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			errors.Abort(c, errors.Unauthorized("missing bearer token"))
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.Unauthorized("unexpected signing method %v", t.Header["alg"])
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			errors.Abort(c, errors.Unauthorized("invalid token"))
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil {
			errors.Abort(c, errors.Unauthorized("token has no subject"))
			return
		}
		caller, err := uuid.Parse(subject)
		if err != nil {
			errors.Abort(c, errors.Unauthorized("token subject is not a valid identity"))
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// caller returns the authenticated caller identity set by authMiddleware.
func caller(c *gin.Context) uuid.UUID {
	v, _ := c.Get(callerKey)
	id, _ := v.(uuid.UUID)
	return id
}
