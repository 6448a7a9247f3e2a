package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAction_Normalize(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   Action
	}{
		{"send becomes transfer", ActionSend, ActionTransfer},
		{"transfer unchanged", ActionTransfer, ActionTransfer},
		{"buy unchanged", ActionBuy, ActionBuy},
		{"unknown unchanged", ActionUnknown, ActionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.Normalize())
		})
	}
}

func TestAction_IsKnown(t *testing.T) {
	assert.True(t, ActionBuy.IsKnown())
	assert.True(t, ActionSell.IsKnown())
	assert.True(t, ActionTransfer.IsKnown())
	assert.True(t, ActionSend.IsKnown())
	assert.False(t, ActionUnknown.IsKnown())
	assert.False(t, Action("stake").IsKnown())
}

func TestAsset_Decimals(t *testing.T) {
	assert.Equal(t, int32(6), AssetUSDC.Decimals())
	assert.Equal(t, int32(18), AssetETH.Decimals())
	assert.Equal(t, int32(8), AssetBTC.Decimals())
	assert.Equal(t, int32(6), Asset("usdc").Decimals())
	assert.Equal(t, int32(6), AssetUnknown.Decimals())
}

func TestIntent_Summary(t *testing.T) {
	amt := decimal.NewFromInt(100)
	assert.Equal(t, "transfer 100 USDC", Intent{Action: ActionTransfer, Asset: AssetUSDC, Amount: &amt}.Summary())
	assert.Equal(t, "command", Intent{RawText: "hello"}.Summary())
}

func TestPortfolioSnapshot_PriceOf(t *testing.T) {
	snap := PortfolioSnapshot{
		Prices: map[Asset]decimal.Decimal{AssetETH: decimal.RequireFromString("1537.53")},
	}

	assert.True(t, snap.PriceOf(AssetETH).Equal(decimal.RequireFromString("1537.53")))
	assert.True(t, snap.PriceOf(AssetBTC).Equal(DefaultUnpricedAssetPrice))
	assert.True(t, snap.PriceOf(AssetUnknown).Equal(decimal.NewFromInt(1)))
}

func TestVerdict_Reject(t *testing.T) {
	v := Approve()
	assert.True(t, v.OK)
	assert.Empty(t, v.Reasons)

	v.Reject("first")
	v.Reject("second")
	assert.False(t, v.OK)
	assert.Equal(t, []string{"first", "second"}, v.Reasons)
}

func TestToDisplayUnits(t *testing.T) {
	raw := decimal.RequireFromString("1500000")
	assert.Equal(t, "1.5", ToDisplayUnits(raw, 6).String())
}

func TestFindBalance_CaseInsensitive(t *testing.T) {
	balances := []TokenBalance{
		{Token: Token{ID: "eth-id", Symbol: "ETH-SEPOLIA"}},
		{Token: Token{ID: "usdc-id", Symbol: "usdc", Decimals: 6}},
	}

	b, ok := FindBalance(balances, AssetUSDC)
	assert.True(t, ok)
	assert.Equal(t, "usdc-id", b.Token.ID)

	_, ok = FindBalance(balances, AssetBTC)
	assert.False(t, ok)
}

func TestCustodianTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		name  string
		state TransactionState
		want  bool
	}{
		{"initiated", TransactionStateInitiated, false},
		{"queued", TransactionStateQueued, false},
		{"sent", TransactionStateSent, false},
		{"confirmed", TransactionStateConfirmed, true},
		{"complete", TransactionStateComplete, true},
		{"failed", TransactionStateFailed, true},
		{"cancelled", TransactionStateCancelled, true},
		{"denied", TransactionStateDenied, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &CustodianTransaction{State: tt.state}
			assert.Equal(t, tt.want, tx.IsTerminal())
		})
	}
}

func TestCustodianTransaction_AuditRecord(t *testing.T) {
	done := &CustodianTransaction{ID: "tx-1", State: TransactionStateComplete, TxHash: "0xhash"}
	rec := done.AuditRecord()
	assert.Equal(t, AuditRecord{TransactionID: "tx-1", Confirmed: true, ConfirmationHash: "0xhash"}, rec)

	failed := &CustodianTransaction{ID: "tx-2", State: TransactionStateFailed, TxHash: "0xignored"}
	rec = failed.AuditRecord()
	assert.False(t, rec.Confirmed)
	assert.Empty(t, rec.ConfirmationHash)
}

func TestExecutionResult_Constructors(t *testing.T) {
	intent := Intent{Action: ActionTransfer, RawText: "transfer"}

	assert.Equal(t, ExecutionSkipped, ExecutionSkip(intent, "skip").Status)
	fail := ExecutionFail(intent, assert.AnError)
	assert.Equal(t, ExecutionFailed, fail.Status)
	assert.Equal(t, assert.AnError.Error(), fail.Error)
	assert.Equal(t, intent, fail.Intent)

	pending := ExecutionAwaitConfirmation(intent, TransactionChallenge{ChallengeID: "ch-1"})
	assert.Equal(t, ExecutionPending, pending.Status)
	assert.Equal(t, "ch-1", pending.Challenge.ChallengeID)

	done := ExecutionComplete(intent, "sim_1234abcd")
	assert.Equal(t, ExecutionCompleted, done.Status)
	assert.Equal(t, "sim_1234abcd", done.TransactionID)
}

func TestOutcome_Status(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    RunStatus
	}{
		{&Rejected{}, RunRejected},
		{&Failed{}, RunFailed},
		{&PendingConfirmation{}, RunPendingConfirmation},
		{&Audited{}, RunAudited},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.Status())
		})
	}
}

func TestBuildIdempotencyKey(t *testing.T) {
	assert.Equal(t, "user-1:abc-123", BuildIdempotencyKey("user-1", "abc-123"))
}
