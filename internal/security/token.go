package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid learner token")

const tokenIssuer = "englishdrills"

// NewLearnerID creates an anonymous learner identifier
func NewLearnerID() string {
	return uuid.New().String()
}

// LearnerClaims identifies an anonymous learner; the ID is the subject
type LearnerClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies learner identity tokens with HS256
type TokenIssuer struct {
	key []byte
	ttl time.Duration
}

func NewTokenIssuer(key []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, ttl: ttl}
}

// Issue returns a signed token for learnerID and its expiry
func (i *TokenIssuer) Issue(learnerID string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(i.ttl)
	claims := &LearnerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   learnerID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign learner token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token and returns the learner ID it carries
func (i *TokenIssuer) Parse(tokenString string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	claims := &LearnerClaims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return i.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
