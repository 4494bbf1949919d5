package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const verifierBytes = 48

// pkcePair is an RFC 7636 code verifier and its S256 challenge.
type pkcePair struct {
	Verifier  string
	Challenge string
}

func newPKCE() (pkcePair, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return pkcePair{}, fmt.Errorf("generate code verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(buf)
	return pkcePair{Verifier: verifier, Challenge: challengeFor(verifier)}, nil
}

func challengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
