package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"voicevault-gateway/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDestination = "0x1111111111111111111111111111111111111111"

func testIntent() domain.Intent {
	amount := decimal.NewFromInt(100)
	return domain.Intent{
		Action:      domain.ActionTransfer,
		Asset:       domain.AssetUSDC,
		Amount:      &amount,
		Destination: testDestination,
		RawText:     "transfer 100 usdc to " + testDestination,
	}
}

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestNewRunResponse_Rejected(t *testing.T) {
	t.Run("risk", func(t *testing.T) {
		status, resp := NewRunResponse(&domain.Rejected{
			Stage:   domain.StageRisk,
			Reasons: []string{"transfer exceeds limit"},
			Message: "Risk check failed: transfer exceeds limit",
			Intent:  testIntent(),
		})

		assert.Equal(t, http.StatusUnprocessableEntity, status)
		m := toMap(t, resp)
		assert.Equal(t, "rejected", m["status"])
		assert.Equal(t, false, m["approved"])
		assert.NotContains(t, m, "valid")
		assert.Equal(t, []any{"transfer exceeds limit"}, m["reasons"])
	})

	t.Run("security", func(t *testing.T) {
		_, resp := NewRunResponse(&domain.Rejected{Stage: domain.StageSecurity, Reasons: []string{"unsupported asset"}})

		m := toMap(t, resp)
		assert.Equal(t, false, m["valid"])
		assert.NotContains(t, m, "approved")
	})
}

func TestNewRunResponse_Failed(t *testing.T) {
	status, resp := NewRunResponse(&domain.Failed{
		Stage:   domain.StageParse,
		Error:   "parser unavailable",
		Message: "Command failed during the parse stage",
	})

	assert.Equal(t, http.StatusBadGateway, status)
	m := toMap(t, resp)
	assert.Equal(t, "failed", m["status"])
	assert.Equal(t, "parser unavailable", m["error"])
	assert.NotContains(t, m, "echo_intent")
}

func TestNewRunResponse_PendingConfirmation(t *testing.T) {
	status, resp := NewRunResponse(&domain.PendingConfirmation{
		Challenge: domain.TransactionChallenge{
			ChallengeID:   "ch-1",
			WalletID:      "w-1",
			UserID:        "user-1",
			UserToken:     "tok",
			EncryptionKey: "key",
			AppID:         "app-1",
		},
		Intent:  testIntent(),
		Message: "Transfer challenge created. Confirm with PIN to complete.",
	})

	assert.Equal(t, http.StatusAccepted, status)
	m := toMap(t, resp)
	assert.Equal(t, "pending_confirmation", m["status"])
	assert.Equal(t, true, m["requires_confirmation"])
	assert.Equal(t, "ch-1", m["challenge_id"])
	assert.Equal(t, "tok", m["user_token"])
	assert.Equal(t, "app-1", m["app_id"])

	echo := m["echo_intent"].(map[string]any)
	assert.Equal(t, testDestination, echo["destination"])
	assert.Equal(t, "transfer", echo["action"])
	assert.Equal(t, "USDC", echo["asset"])
	assert.Equal(t, "100", echo["amount"])
}

func TestNewRunResponse_Audited(t *testing.T) {
	status, resp := NewRunResponse(&domain.Audited{
		Record:  domain.AuditRecord{TransactionID: "sim_0a1b2c3d", Confirmed: true, ConfirmationHash: "abc"},
		Intent:  testIntent(),
		Message: "Transaction executed and confirmed",
	})

	assert.Equal(t, http.StatusOK, status)
	m := toMap(t, resp)
	assert.Equal(t, "audited", m["status"])
	assert.Equal(t, "sim_0a1b2c3d", m["transaction_id"])
	assert.Equal(t, true, m["confirmed"])
	assert.Equal(t, "abc", m["confirmation_hash"])
}
