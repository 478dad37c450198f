package security

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key purposes passed to DeriveKey
const (
	PurposeLearnerToken = "learner-token"
	PurposeCSRF         = "csrf"
)

// DeriveKey derives a 32-byte key for one purpose from the application secret
func DeriveKey(secret, purpose string) []byte {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("englishdrills/"+purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails after 255*32 bytes
		panic(err)
	}
	return key
}
