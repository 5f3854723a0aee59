package domain

import (
	"fmt"
	"time"
)

// UserProfile is the per-identity record. EncryptedCredential is an opaque
// hex blob produced client-side against the worker pool's public key; the
// core stores and returns it without ever decrypting it.
type UserProfile struct {
	Identity            string    `json:"identity"`
	EncryptedCredential *string   `json:"encrypted_credential,omitempty"`
	AnalysesPerformed   uint64    `json:"analyses_performed"`
	CreatedAt           time.Time `json:"created_at"`
	LastActive          time.Time `json:"last_active"`
}

// minEncryptedCredentialHex is 12 iv + 16 tag bytes, hex-encoded; a blob of
// exactly this length carries no ciphertext bytes.
const minEncryptedCredentialHex = 56

// ValidateEncryptedCredential checks the opaque blob is plausible ciphertext:
// hex-encoded and long enough to hold the documented iv||tag||ciphertext
// layout. The structure itself is not validated.
func ValidateEncryptedCredential(blob string) error {
	if len(blob) < minEncryptedCredentialHex {
		return fmt.Errorf("encrypted credential too short")
	}
	for _, c := range blob {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return fmt.Errorf("encrypted credential is not hex")
		}
	}
	return nil
}
