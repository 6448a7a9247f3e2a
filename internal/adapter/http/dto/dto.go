package dto

import (
	"net/http"

	"voicevault-gateway/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ExecuteCommandRequest is the request body for a pipeline run.
type ExecuteCommandRequest struct {
	Text   string `json:"text" binding:"required,max=500,command_text"`
	UserID string `json:"user_id,omitempty" binding:"omitempty,max=128,safe_id"`
}

// ParseCommandRequest is the request body for the parse and check endpoints.
type ParseCommandRequest struct {
	Text string `json:"text" binding:"required,max=500,command_text"`
}

// CreateWalletRequest is the optional request body for wallet onboarding.
type CreateWalletRequest struct {
	UserID string `json:"user_id,omitempty" binding:"omitempty,max=128,safe_id"`
}

// TransactionPageQuery binds the pagination query of the transaction list.
type TransactionPageQuery struct {
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=50"`
	PageBefore string `form:"page_before" binding:"omitempty,safe_id"`
	PageAfter  string `form:"page_after" binding:"omitempty,safe_id"`
}

// EchoIntent repeats the parsed intent back to the client for correlation.
type EchoIntent struct {
	Action      string           `json:"action,omitempty"`
	Asset       string           `json:"asset,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Percent     *decimal.Decimal `json:"percent,omitempty"`
	Destination string           `json:"destination,omitempty"`
}

// RunResponse is the body of a pipeline run. Which fields are set depends
// on Status.
type RunResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`

	// rejected
	Approved *bool    `json:"approved,omitempty"`
	Valid    *bool    `json:"valid,omitempty"`
	Reasons  []string `json:"reasons,omitempty"`

	// failed
	Error string `json:"error,omitempty"`

	// pending_confirmation
	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
	ChallengeID          string `json:"challenge_id,omitempty"`
	UserID               string `json:"user_id,omitempty"`
	UserToken            string `json:"user_token,omitempty"`
	EncryptionKey        string `json:"encryption_key,omitempty"`
	AppID                string `json:"app_id,omitempty"`
	WalletID             string `json:"wallet_id,omitempty"`

	// audited
	TransactionID    string `json:"transaction_id,omitempty"`
	Confirmed        *bool  `json:"confirmed,omitempty"`
	ConfirmationHash string `json:"confirmation_hash,omitempty"`

	EchoIntent *EchoIntent `json:"echo_intent,omitempty"`
}

// NewRunResponse maps an outcome onto its response body and HTTP status:
// 200 audited, 202 pending confirmation, 422 rejected, 502 failed.
func NewRunResponse(outcome domain.Outcome) (int, RunResponse) {
	resp := RunResponse{Status: string(outcome.Status())}

	switch o := outcome.(type) {
	case *domain.Rejected:
		no := false
		if o.Stage == domain.StageSecurity {
			resp.Valid = &no
		} else {
			resp.Approved = &no
		}
		resp.Stage = string(o.Stage)
		resp.Reasons = o.Reasons
		resp.Message = o.Message
		resp.EchoIntent = NewEchoIntent(o.Intent)
		return http.StatusUnprocessableEntity, resp

	case *domain.Failed:
		resp.Stage = string(o.Stage)
		resp.Error = o.Error
		resp.Message = o.Message
		if o.Intent != nil {
			resp.EchoIntent = NewEchoIntent(*o.Intent)
		}
		return http.StatusBadGateway, resp

	case *domain.PendingConfirmation:
		resp.RequiresConfirmation = true
		resp.ChallengeID = o.Challenge.ChallengeID
		resp.UserID = o.Challenge.UserID
		resp.UserToken = o.Challenge.UserToken
		resp.EncryptionKey = o.Challenge.EncryptionKey
		resp.AppID = o.Challenge.AppID
		resp.WalletID = o.Challenge.WalletID
		resp.Message = o.Message
		resp.EchoIntent = NewEchoIntent(o.Intent)
		return http.StatusAccepted, resp

	case *domain.Audited:
		confirmed := o.Record.Confirmed
		resp.TransactionID = o.Record.TransactionID
		resp.Confirmed = &confirmed
		resp.ConfirmationHash = o.Record.ConfirmationHash
		resp.Message = o.Message
		resp.EchoIntent = NewEchoIntent(o.Intent)
		return http.StatusOK, resp
	}

	resp.Error = "unknown outcome"
	return http.StatusInternalServerError, resp
}

// NewEchoIntent copies the client-facing intent fields.
func NewEchoIntent(intent domain.Intent) *EchoIntent {
	return &EchoIntent{
		Action:      string(intent.Action),
		Asset:       string(intent.Asset),
		Amount:      intent.Amount,
		Percent:     intent.Percent,
		Destination: intent.Destination,
	}
}

// BalanceResponse is the response for the wallet balance query.
type BalanceResponse struct {
	UserID   string                `json:"user_id"`
	Balances []domain.TokenBalance `json:"balances"`
}

// TransactionListResponse wraps one page of custodian transactions.
type TransactionListResponse struct {
	Transactions []domain.CustodianTransaction `json:"transactions"`
	Count        int                           `json:"count"`
}

// TransferStatusResponse reports the final state of a confirmed transfer.
type TransferStatusResponse struct {
	TransactionID    string `json:"transaction_id"`
	Settled          bool   `json:"settled"`
	Confirmed        bool   `json:"confirmed"`
	ConfirmationHash string `json:"confirmation_hash,omitempty"`
}

// CheckResponse reports the read-only stages of a command without executing it.
type CheckResponse struct {
	Intent    domain.Intent            `json:"intent"`
	Portfolio domain.PortfolioSnapshot `json:"portfolio"`
	Risk      domain.Verdict           `json:"risk"`
	Security  domain.Verdict           `json:"security"`
	Approved  bool                     `json:"approved"`
}

// WalletOnboardingResponse is returned by wallet creation.
type WalletOnboardingResponse struct {
	UserID        string `json:"user_id"`
	ChallengeID   string `json:"challenge_id"`
	UserToken     string `json:"user_token"`
	EncryptionKey string `json:"encryption_key"`
	AppID         string `json:"app_id"`
	AccessToken   string `json:"access_token"`
	ExpiresAt     int64  `json:"expires_at"`
}
