// Package token issues access tokens and one-time reset tokens.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"crm_backend/platform/httpkit"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenType marks tokens accepted by the auth middleware.
const AccessTokenType = "access"

// GenerateRandomToken returns size random bytes, hex encoded.
func GenerateRandomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func HashSHA256(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// IssueAccessToken signs an HS256 access token for the user.
func IssueAccessToken(userID uuid.UUID, role, secret string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := httpkit.AccessClaims{
		Role: role,
		Type: AccessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
