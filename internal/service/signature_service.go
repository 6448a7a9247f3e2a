package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSignatureService implements ports.SignatureService with HMAC-SHA256
// over the raw payload. The auditor signs transaction ids with it.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMACSignatureService.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

func macSum(secretKey, payload string) []byte {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// Sign returns the lowercase hex MAC of payload.
func (s *HMACSignatureService) Sign(secretKey string, payload string) string {
	return hex.EncodeToString(macSum(secretKey, payload))
}

// Verify accepts a hex signature in either case. Malformed hex never verifies.
func (s *HMACSignatureService) Verify(secretKey string, payload string, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(macSum(secretKey, payload), got)
}
