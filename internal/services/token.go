package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"
)

const (
	inviteTokenBytes = 32
	pinDigits        = 6
)

var pinSpace = big.NewInt(1_000_000)

// GenerateInviteToken returns 256 random bits, hex encoded.
func GenerateInviteToken() (string, error) {
	b := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GeneratePIN returns a uniformly random numeric PIN, zero padded.
func GeneratePIN() (string, error) {
	n, err := rand.Int(rand.Reader, pinSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate pin: %w", err)
	}
	return fmt.Sprintf("%0*d", pinDigits, n.Int64()), nil
}

func ExpiresAt(now time.Time, d time.Duration) time.Time {
	return now.Add(d)
}

// JoinLink builds the shareable redemption link for token.
func JoinLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/family/join?token=" + url.QueryEscape(token)
}
