// Package auth issues and verifies identity tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is what a token says about its bearer.
type Identity struct {
	UserID int64
	Email  string
	Name   string
}

// Claims are the registered claims plus the portal identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Identity returns the identity carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Name: c.Name}
}

// now is a seam for tests that need to move the clock.
var now = time.Now

// GenerateToken signs an HS256 token for id that expires ttl from now.
func GenerateToken(id Identity, secretKey []byte, ttl time.Duration) (string, time.Time, error) {
	issued := now()
	expires := issued.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID: id.UserID,
		Email:  id.Email,
		Name:   id.Name,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expires, nil
}

// ParseToken verifies signature and expiry and returns the claims.
// Expired tokens yield common.ErrTokenExpired; anything else that fails
// (bad signature, wrong algorithm, garbage) yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
