package service

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMasterKey = "voicevault-master-key-for-tests"

func TestDeriveKey_DeterministicPerPurpose(t *testing.T) {
	k1, err := DeriveKey(testMasterKey, KeyPurposeResponseCache)
	require.NoError(t, err)
	k2, err := DeriveKey(testMasterKey, KeyPurposeResponseCache)
	require.NoError(t, err)
	k3, err := DeriveKey(testMasterKey, KeyPurposeAuditSigning)
	require.NoError(t, err)

	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3, "purposes must yield independent keys")
}

func TestDeriveKey_ShortMaster(t *testing.T) {
	_, err := DeriveKey("short", KeyPurposeAccessToken)
	assert.Error(t, err)
}

func TestResolveKey(t *testing.T) {
	got, err := ResolveKey("explicit", testMasterKey, KeyPurposeAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "explicit", got)

	got, err = ResolveKey("", testMasterKey, KeyPurposeAccessToken)
	require.NoError(t, err)
	raw, err := hex.DecodeString(got)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	_, err = ResolveKey("", "", KeyPurposeAccessToken)
	assert.Error(t, err)
}
