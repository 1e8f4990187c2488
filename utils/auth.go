package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims identify the staff member and the organization every request is scoped to.
type Claims struct {
	OrgID string `json:"orgId"`
	jwt.RegisteredClaims
}

// GenerateToken issues an HS256 token for a user acting in an organization.
func GenerateToken(userID, orgID, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT secret not set")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		OrgID: orgID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// AuthMiddleware verifies the bearer token and puts userId and orgId on the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		var claims Claims
		token, err := jwt.ParseWithClaims(bearerToken(header), &claims, keyFunc,
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		)
		if err != nil || !token.Valid {
			RespondWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		if claims.OrgID == "" {
			RespondWithError(c, http.StatusUnauthorized, "Token has no organization")
			return
		}

		c.Set("userId", claims.Subject)
		c.Set("orgId", claims.OrgID)
		c.Next()
	}
}
