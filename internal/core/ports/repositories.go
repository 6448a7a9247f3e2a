package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"voicevault-gateway/internal/core/domain"
)

// AuditRepository persists the decision audit trail.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditLog, error)
}

// IdempotencyCache is the Redis-backed replay store for command responses.
type IdempotencyCache interface {
	// Reserve atomically claims key. Returns false if the key is already
	// reserved or holds a stored response.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Get returns the stored response, or nil if none has been stored.
	Get(ctx context.Context, key string) (*domain.IdempotentResponse, error)
	Set(ctx context.Context, key string, resp *domain.IdempotentResponse, ttl time.Duration) error
	// Release drops a reservation that never produced a response.
	Release(ctx context.Context, key string) error
}

// WalletCustodian is the third-party wallet provider. Implementations are
// read-only after construction and safe for concurrent use.
type WalletCustodian interface {
	GetAppID(ctx context.Context) (string, error)
	CreateUser(ctx context.Context, userID string) error
	IssueSessionToken(ctx context.Context, userID string) (*domain.SessionToken, error)
	// InitializeUser sets up the user's wallets and returns the PIN challenge id.
	InitializeUser(ctx context.Context, userToken string, blockchains []string) (string, error)
	ListWallets(ctx context.Context, userID string) ([]domain.Wallet, error)
	GetWalletBalance(ctx context.Context, walletID, userToken string, includeAll bool) ([]domain.TokenBalance, error)
	// CreateTransfer creates a transfer challenge and returns its id.
	CreateTransfer(ctx context.Context, userToken string, req domain.TransferRequest) (string, error)
	ListTransactions(ctx context.Context, userToken string, q domain.TransactionQuery) ([]domain.CustodianTransaction, error)
	GetTransaction(ctx context.Context, userToken, transactionID string) (*domain.CustodianTransaction, error)
}
