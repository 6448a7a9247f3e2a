package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"voicevault-gateway/internal/core/domain"
)

// --- Pipeline Stage Ports ---

// CommandParser turns free text into an Intent. Rule-based parsers never
// fail; remote parsers may return transient errors that the pipeline retries.
type CommandParser interface {
	Parse(ctx context.Context, text string) (domain.Intent, error)
}

// PortfolioProvider returns the pricing context for a user.
type PortfolioProvider interface {
	Snapshot(ctx context.Context, userID string) (*domain.PortfolioSnapshot, error)
}

// RiskEvaluator applies notional and percentage limits.
type RiskEvaluator interface {
	Evaluate(intent domain.Intent, snapshot domain.PortfolioSnapshot) domain.Verdict
}

// SecurityValidator checks the structural validity of an Intent.
type SecurityValidator interface {
	Validate(intent domain.Intent) domain.Verdict
}

// TransactionExecutor carries out an approved Intent. It never returns an
// error: every failure is reported as an ExecutionFailed result.
type TransactionExecutor interface {
	Execute(ctx context.Context, intent domain.Intent, userID string) domain.ExecutionResult
}

// Auditor confirms a completed transaction.
type Auditor interface {
	Audit(ctx context.Context, transactionID string) (domain.AuditRecord, error)
}

// PipelineService runs commands through every stage.
type PipelineService interface {
	Run(ctx context.Context, text, userID string) domain.Outcome
	// Check runs the read-only stages (parse, portfolio, risk, security).
	Check(ctx context.Context, text, userID string) (*CheckReport, error)
}

// CheckReport is the dry-run result of the read-only stages.
type CheckReport struct {
	Intent    domain.Intent            `json:"intent" yaml:"intent"`
	Portfolio domain.PortfolioSnapshot `json:"portfolio" yaml:"portfolio"`
	Risk      domain.Verdict           `json:"risk" yaml:"risk"`
	Security  domain.Verdict           `json:"security" yaml:"security"`
}

// Approved reports whether both rule stages passed.
func (r *CheckReport) Approved() bool {
	return r.Risk.OK && r.Security.OK
}

// --- Infrastructure Service Ports ---

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// TokenService handles JWT access tokens issued to wallet users.
type TokenService interface {
	Generate(userID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID string
}

// AuditService records the decision audit trail.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Business Service Ports ---

// WalletService handles onboarding and account queries outside the pipeline.
type WalletService interface {
	CreateWallet(ctx context.Context, userID string) (*domain.WalletOnboarding, error)
	Status(ctx context.Context, userID string) (*domain.WalletStatus, error)
	Balance(ctx context.Context, userID string) ([]domain.TokenBalance, error)
	ListTransactions(ctx context.Context, userID string, page PageRequest) ([]domain.CustodianTransaction, error)
	GetTransaction(ctx context.Context, userID, transactionID string) (*domain.CustodianTransaction, error)
	// TransferStatus polls until the transaction reaches a terminal state.
	TransferStatus(ctx context.Context, userID, transactionID string) (*domain.AuditRecord, error)
}

// PageRequest holds cursor pagination for transaction listings.
type PageRequest struct {
	PageSize   int
	PageBefore string
	PageAfter  string
}
