package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// VerificationTTL is how long an email verification link stays usable
	VerificationTTL = 24 * time.Hour
	// ResendInterval is the minimum gap between two verification emails
	ResendInterval = 60 * time.Second
)

// NewVerificationToken returns a random token and the hash to store for it
func NewVerificationToken() (token, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	token = hex.EncodeToString(b)
	return token, HashVerificationToken(token), nil
}

// HashVerificationToken returns the hex SHA-256 of token
func HashVerificationToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
