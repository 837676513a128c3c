// Package auth mints and parses the HS256 session tokens handed out after a
// successful wallet challenge.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the wallet address as the subject and the session id as
// the JWT ID.
type Claims struct {
	jwt.RegisteredClaims
}

func (c *Claims) Address() string   { return c.Subject }
func (c *Claims) SessionID() string { return c.ID }

// GenerateToken signs a token for address bound to sessionID, valid from
// issuedAt until issuedAt+validity.
func GenerateToken(address, sessionID string, secretKey []byte, issuedAt time.Time, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(validity)),
		},
	})
	return token.SignedString(secretKey)
}

// ParseToken validates tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired, anything else invalid common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
