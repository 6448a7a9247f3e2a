package domain

import "time"

// TransactionState is the provider's lifecycle state of an on-chain transaction.
type TransactionState string

const (
	TransactionStateInitiated TransactionState = "INITIATED"
	TransactionStateQueued    TransactionState = "QUEUED"
	TransactionStateSent      TransactionState = "SENT"
	TransactionStateConfirmed TransactionState = "CONFIRMED"
	TransactionStateComplete  TransactionState = "COMPLETE"
	TransactionStateFailed    TransactionState = "FAILED"
	TransactionStateCancelled TransactionState = "CANCELLED"
	TransactionStateDenied    TransactionState = "DENIED"
)

// CustodianTransaction is a wallet transaction as reported by the provider.
type CustodianTransaction struct {
	ID                 string           `json:"id"`
	State              TransactionState `json:"state"`
	TransactionType    string           `json:"transaction_type"`
	WalletID           string           `json:"wallet_id"`
	Blockchain         string           `json:"blockchain"`
	TokenID            string           `json:"token_id,omitempty"`
	Amounts            []string         `json:"amounts"`
	SourceAddress      string           `json:"source_address,omitempty"`
	DestinationAddress string           `json:"destination_address,omitempty"`
	TxHash             string           `json:"tx_hash,omitempty"`
	ErrorReason        string           `json:"error_reason,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *CustodianTransaction) IsTerminal() bool {
	switch t.State {
	case TransactionStateComplete, TransactionStateConfirmed,
		TransactionStateFailed, TransactionStateCancelled, TransactionStateDenied:
		return true
	}
	return false
}

// IsConfirmed returns true if the transaction settled on-chain.
func (t *CustodianTransaction) IsConfirmed() bool {
	return t.State == TransactionStateComplete || t.State == TransactionStateConfirmed
}

// AuditRecord converts a terminal transaction into a confirmation record.
func (t *CustodianTransaction) AuditRecord() AuditRecord {
	rec := AuditRecord{TransactionID: t.ID, Confirmed: t.IsConfirmed()}
	if rec.Confirmed {
		rec.ConfirmationHash = t.TxHash
	}
	return rec
}
