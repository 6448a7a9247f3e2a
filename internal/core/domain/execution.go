package domain

// ExecutionStatus tags the variant held by an ExecutionResult.
type ExecutionStatus string

const (
	ExecutionSkipped   ExecutionStatus = "skipped"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionPending   ExecutionStatus = "pending_confirmation"
	ExecutionCompleted ExecutionStatus = "completed"
)

// TransactionChallenge is handed to the caller when a transfer needs
// out-of-band PIN confirmation. The pipeline keeps no reference to it.
type TransactionChallenge struct {
	ChallengeID   string `json:"challenge_id"`
	WalletID      string `json:"wallet_id"`
	UserID        string `json:"user_id"`
	UserToken     string `json:"user_token"`
	EncryptionKey string `json:"encryption_key"`
	AppID         string `json:"app_id"`
}

// ExecutionResult is what the executor returns. Exactly one variant is
// active, selected by Status. Intent is echoed in every variant.
type ExecutionResult struct {
	Status        ExecutionStatus
	Intent        Intent
	Message       string
	Error         string                // ExecutionFailed
	Challenge     *TransactionChallenge // ExecutionPending
	TransactionID string                // ExecutionCompleted
}

func ExecutionSkip(intent Intent, message string) ExecutionResult {
	return ExecutionResult{Status: ExecutionSkipped, Intent: intent, Message: message}
}

func ExecutionFail(intent Intent, err error) ExecutionResult {
	return ExecutionResult{
		Status:  ExecutionFailed,
		Intent:  intent,
		Error:   err.Error(),
		Message: "Transaction could not be executed",
	}
}

func ExecutionAwaitConfirmation(intent Intent, challenge TransactionChallenge) ExecutionResult {
	return ExecutionResult{
		Status:    ExecutionPending,
		Intent:    intent,
		Challenge: &challenge,
		Message:   "Transfer challenge created. Confirm with PIN to complete.",
	}
}

func ExecutionComplete(intent Intent, transactionID string) ExecutionResult {
	return ExecutionResult{
		Status:        ExecutionCompleted,
		Intent:        intent,
		TransactionID: transactionID,
		Message:       "Transaction executed",
	}
}

// AuditRecord is the terminal confirmation of a completed transaction.
type AuditRecord struct {
	TransactionID    string `json:"transaction_id"`
	Confirmed        bool   `json:"confirmed"`
	ConfirmationHash string `json:"confirmation_hash,omitempty"`
}
