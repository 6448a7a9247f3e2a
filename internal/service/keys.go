package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDF info labels. Changing one rotates every value derived from it.
const (
	KeyPurposeResponseCache = "voicevault/response-cache/aes-256"
	KeyPurposeAuditSigning  = "voicevault/audit/hmac-sha256"
	KeyPurposeAccessToken   = "voicevault/access-token/hs256"
)

// DeriveKey expands masterKey into a 32-byte key bound to purpose.
func DeriveKey(masterKey, purpose string) ([]byte, error) {
	if len(masterKey) < 16 {
		return nil, fmt.Errorf("master key must be at least 16 bytes, got %d", len(masterKey))
	}
	r := hkdf.New(sha256.New, []byte(masterKey), nil, []byte(purpose))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving %s key: %w", purpose, err)
	}
	return key, nil
}

// ResolveKey returns configured when set, otherwise the hex-encoded key
// derived from masterKey for purpose.
func ResolveKey(configured, masterKey, purpose string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if masterKey == "" {
		return "", fmt.Errorf("no key configured for %s and no master key to derive it from", purpose)
	}
	key, err := DeriveKey(masterKey, purpose)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
