package circle

import (
	"time"

	"voicevault-gateway/internal/core/domain"

	"github.com/shopspring/decimal"
)

// envelope is the {"data": ...} wrapper around every success response.
type envelope[T any] struct {
	Data T `json:"data"`
}

type userRequest struct {
	UserID string `json:"userId"`
}

type entityConfig struct {
	AppID string `json:"appId"`
}

type userToken struct {
	UserToken     string `json:"userToken"`
	EncryptionKey string `json:"encryptionKey"`
}

type initializeRequest struct {
	IdempotencyKey string   `json:"idempotencyKey"`
	Blockchains    []string `json:"blockchains"`
	AccountType    string   `json:"accountType"`
}

type challenge struct {
	ChallengeID string `json:"challengeId"`
}

type transferRequest struct {
	IdempotencyKey     string   `json:"idempotencyKey"`
	WalletID           string   `json:"walletId"`
	DestinationAddress string   `json:"destinationAddress"`
	Amounts            []string `json:"amounts"`
	TokenID            string   `json:"tokenId,omitempty"`
	TokenAddress       string   `json:"tokenAddress,omitempty"`
	Blockchain         string   `json:"blockchain,omitempty"`
	FeeLevel           string   `json:"feeLevel"`
}

type wallet struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Address     string    `json:"address"`
	Blockchain  string    `json:"blockchain"`
	State       string    `json:"state"`
	AccountType string    `json:"accountType"`
	CreateDate  time.Time `json:"createDate"`
}

type walletList struct {
	Wallets []wallet `json:"wallets"`
}

type token struct {
	ID           string `json:"id"`
	Blockchain   string `json:"blockchain"`
	TokenAddress string `json:"tokenAddress"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     int32  `json:"decimals"`
	IsNative     bool   `json:"isNative"`
}

type tokenBalance struct {
	Token      token     `json:"token"`
	Amount     string    `json:"amount"`
	UpdateDate time.Time `json:"updateDate"`
}

type balanceList struct {
	TokenBalances []tokenBalance `json:"tokenBalances"`
}

type transaction struct {
	ID                 string    `json:"id"`
	State              string    `json:"state"`
	TransactionType    string    `json:"transactionType"`
	WalletID           string    `json:"walletId"`
	Blockchain         string    `json:"blockchain"`
	TokenID            string    `json:"tokenId"`
	Amounts            []string  `json:"amounts"`
	SourceAddress      string    `json:"sourceAddress"`
	DestinationAddress string    `json:"destinationAddress"`
	TxHash             string    `json:"txHash"`
	ErrorReason        string    `json:"errorReason"`
	CreateDate         time.Time `json:"createDate"`
	UpdateDate         time.Time `json:"updateDate"`
}

type transactionList struct {
	Transactions []transaction `json:"transactions"`
}

type transactionItem struct {
	Transaction transaction `json:"transaction"`
}

func (w wallet) toDomain() domain.Wallet {
	return domain.Wallet{
		ID:          w.ID,
		UserID:      w.UserID,
		Address:     w.Address,
		Blockchain:  w.Blockchain,
		State:       w.State,
		AccountType: w.AccountType,
		CreatedAt:   w.CreateDate,
	}
}

// toDomain reads the amount as smallest units and shifts it by the token's
// decimals. Unparseable amounts are reported as zero.
func (b tokenBalance) toDomain() domain.TokenBalance {
	raw, err := decimal.NewFromString(b.Amount)
	if err != nil {
		raw = decimal.Zero
	}
	return domain.TokenBalance{
		Token: domain.Token{
			ID:           b.Token.ID,
			Symbol:       b.Token.Symbol,
			Name:         b.Token.Name,
			Decimals:     b.Token.Decimals,
			Blockchain:   b.Token.Blockchain,
			TokenAddress: b.Token.TokenAddress,
			IsNative:     b.Token.IsNative,
		},
		RawAmount: b.Amount,
		Amount:    domain.ToDisplayUnits(raw, b.Token.Decimals),
		UpdatedAt: b.UpdateDate,
	}
}

func (t transaction) toDomain() domain.CustodianTransaction {
	amounts := t.Amounts
	if amounts == nil {
		amounts = []string{}
	}
	return domain.CustodianTransaction{
		ID:                 t.ID,
		State:              domain.TransactionState(t.State),
		TransactionType:    t.TransactionType,
		WalletID:           t.WalletID,
		Blockchain:         t.Blockchain,
		TokenID:            t.TokenID,
		Amounts:            amounts,
		SourceAddress:      t.SourceAddress,
		DestinationAddress: t.DestinationAddress,
		TxHash:             t.TxHash,
		ErrorReason:        t.ErrorReason,
		CreatedAt:          t.CreateDate,
		UpdatedAt:          t.UpdateDate,
	}
}
