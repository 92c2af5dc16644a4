package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

var (
	ErrInvalidToken  = errors.New("invalid or tampered token")
	ErrMissingSecret = errors.New("signing secret is not configured")
)

const signatureLen = 16

// TokenSigner issues and checks truncated HMAC-SHA256 signatures over opaque payloads.
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner returns a signer keyed with secret.
func NewTokenSigner(secret []byte) *TokenSigner {
	return &TokenSigner{secret: secret}
}

// Enabled reports whether a secret is configured.
func (s *TokenSigner) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Sign returns the base64url signature for payload.
func (s *TokenSigner) Sign(payload []byte) (string, error) {
	if !s.Enabled() {
		return "", ErrMissingSecret
	}
	return base64.RawURLEncoding.EncodeToString(s.sign(payload)[:signatureLen]), nil
}

// Verify checks that sig was produced by Sign for payload.
func (s *TokenSigner) Verify(payload []byte, sig string) error {
	if !s.Enabled() {
		return ErrMissingSecret
	}

	provided, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || len(provided) != signatureLen {
		return ErrInvalidToken
	}
	if !hmac.Equal(provided, s.sign(payload)[:signatureLen]) {
		return ErrInvalidToken
	}
	return nil
}

func (s *TokenSigner) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
