package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a custodial wallet owned by a user of the wallet provider.
type Wallet struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Address     string    `json:"address"`
	Blockchain  string    `json:"blockchain"`
	State       string    `json:"state"`
	AccountType string    `json:"account_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Token describes an on-chain asset known to the wallet provider.
type Token struct {
	ID           string `json:"id"`
	Symbol       string `json:"symbol"`
	Name         string `json:"name,omitempty"`
	Decimals     int32  `json:"decimals"`
	Blockchain   string `json:"blockchain"`
	TokenAddress string `json:"token_address,omitempty"`
	IsNative     bool   `json:"is_native"`
}

// TokenBalance is a wallet's holding of one token.
// RawAmount is in the token's smallest unit; Amount is human-readable.
type TokenBalance struct {
	Token     Token           `json:"token"`
	RawAmount string          `json:"raw_amount"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ToDisplayUnits shifts a smallest-unit integer amount by the token's decimals.
func ToDisplayUnits(raw decimal.Decimal, decimals int32) decimal.Decimal {
	return raw.Shift(-decimals)
}

// FindBalance returns the first balance whose token symbol matches asset,
// compared case-insensitively.
func FindBalance(balances []TokenBalance, asset Asset) (TokenBalance, bool) {
	for _, b := range balances {
		if strings.EqualFold(b.Token.Symbol, string(asset)) {
			return b, true
		}
	}
	return TokenBalance{}, false
}

// SessionToken is a short-lived credential scoped to one provider user.
type SessionToken struct {
	UserToken     string `json:"user_token"`
	EncryptionKey string `json:"encryption_key"`
}

// FeeLevel selects the network fee tier for a transfer.
type FeeLevel string

const (
	FeeLevelLow    FeeLevel = "LOW"
	FeeLevelMedium FeeLevel = "MEDIUM"
	FeeLevelHigh   FeeLevel = "HIGH"
)

// TransferRequest asks the provider to create a transfer challenge.
// Either TokenID or TokenAddress+Blockchain identifies the token.
type TransferRequest struct {
	WalletID           string
	DestinationAddress string
	Amount             string // fixed-point decimal at the token's precision
	TokenID            string
	TokenAddress       string
	Blockchain         string
	FeeLevel           FeeLevel
}

// TransactionQuery selects a page of a wallet's transactions.
type TransactionQuery struct {
	WalletID   string
	PageSize   int
	PageBefore string
	PageAfter  string
}

// WalletStatus summarises whether a user has been onboarded.
type WalletStatus struct {
	UserID string  `json:"user_id"`
	Exists bool    `json:"exists"`
	Wallet *Wallet `json:"wallet,omitempty"`
}

// WalletOnboarding is returned when a new user is created. The challenge
// sets the user's PIN and creates the wallet once confirmed client-side.
type WalletOnboarding struct {
	UserID        string    `json:"user_id"`
	ChallengeID   string    `json:"challenge_id"`
	UserToken     string    `json:"user_token"`
	EncryptionKey string    `json:"encryption_key"`
	AppID         string    `json:"app_id"`
	AccessToken   string    `json:"access_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}
