package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// CSRFGenerator generates and validates CSRF tokens using HMAC-SHA256.
// Tokens are derived from the learner ID and a secret key, so no server-side
// token storage is needed.
type CSRFGenerator struct {
	secret []byte
}

func NewCSRFGenerator(secret []byte) *CSRFGenerator {
	return &CSRFGenerator{secret: secret}
}

// GenerateToken returns the CSRF token for the given learner
func (g *CSRFGenerator) GenerateToken(learnerID string) (string, error) {
	if learnerID == "" {
		return "", fmt.Errorf("learner ID is required")
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(learnerID))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// ValidateToken reports whether token is the valid CSRF token for learnerID
func (g *CSRFGenerator) ValidateToken(learnerID, token string) bool {
	if learnerID == "" || token == "" {
		return false
	}
	expected, err := g.GenerateToken(learnerID)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(token))
}
