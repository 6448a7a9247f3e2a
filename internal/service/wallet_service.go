package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/internal/core/ports"
	"voicevault-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultTransactionPageSize = 50
	maxTransactionPageSize     = 50
)

// WalletServiceConfig tunes onboarding and status polling.
type WalletServiceConfig struct {
	DefaultBlockchain string
	PollAttempts      int
	PollInterval      time.Duration
}

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	custodian ports.WalletCustodian
	tokenSvc  ports.TokenService
	cfg       WalletServiceConfig
	log       zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(custodian ports.WalletCustodian, tokenSvc ports.TokenService, cfg WalletServiceConfig, log zerolog.Logger) *WalletServiceImpl {
	if cfg.DefaultBlockchain == "" {
		cfg.DefaultBlockchain = "ETH-SEPOLIA"
	}
	if cfg.PollAttempts < 1 {
		cfg.PollAttempts = 1
	}
	return &WalletServiceImpl{custodian: custodian, tokenSvc: tokenSvc, cfg: cfg, log: log}
}

// CreateWallet onboards a user. An empty userID gets a generated one; an
// already registered user is initialised again rather than rejected.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, userID string) (*domain.WalletOnboarding, error) {
	if userID == "" {
		userID = uuid.New().String()
	}

	if err := s.custodian.CreateUser(ctx, userID); err != nil {
		if custodianStatus(err) != http.StatusConflict {
			return nil, custodianError(fmt.Errorf("creating user: %w", err))
		}
		s.log.Debug().Str("user_id", userID).Msg("user already exists, continuing onboarding")
	}

	session, err := s.custodian.IssueSessionToken(ctx, userID)
	if err != nil {
		return nil, custodianError(fmt.Errorf("issuing session token: %w", err))
	}

	challengeID, err := s.custodian.InitializeUser(ctx, session.UserToken, []string{s.cfg.DefaultBlockchain})
	if err != nil {
		return nil, custodianError(fmt.Errorf("initializing user: %w", err))
	}

	appID, err := s.custodian.GetAppID(ctx)
	if err != nil {
		return nil, custodianError(fmt.Errorf("getting app id: %w", err))
	}

	accessToken, expiresAt, err := s.tokenSvc.Generate(userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generating access token: %w", err))
	}

	s.log.Info().
		Str("user_id", userID).
		Str("challenge_id", challengeID).
		Str("blockchain", s.cfg.DefaultBlockchain).
		Msg("wallet onboarding started")

	return &domain.WalletOnboarding{
		UserID:        userID,
		ChallengeID:   challengeID,
		UserToken:     session.UserToken,
		EncryptionKey: session.EncryptionKey,
		AppID:         appID,
		AccessToken:   accessToken,
		ExpiresAt:     expiresAt,
	}, nil
}

// Status reports the user's first wallet, if any.
func (s *WalletServiceImpl) Status(ctx context.Context, userID string) (*domain.WalletStatus, error) {
	if userID == "" {
		return nil, apperror.ErrMissingUser()
	}

	wallets, err := s.custodian.ListWallets(ctx, userID)
	if err != nil {
		return nil, custodianError(fmt.Errorf("listing wallets: %w", err))
	}

	status := &domain.WalletStatus{UserID: userID, Exists: len(wallets) > 0}
	if status.Exists {
		w := wallets[0]
		status.Wallet = &w
	}
	return status, nil
}

// Balance returns the token balances of the user's first wallet.
func (s *WalletServiceImpl) Balance(ctx context.Context, userID string) ([]domain.TokenBalance, error) {
	wallet, session, err := s.walletSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	balances, err := s.custodian.GetWalletBalance(ctx, wallet.ID, session.UserToken, true)
	if err != nil {
		return nil, custodianError(fmt.Errorf("getting wallet balance: %w", err))
	}
	if balances == nil {
		balances = []domain.TokenBalance{}
	}
	return balances, nil
}

// ListTransactions returns one page of the first wallet's transactions.
// Users without a wallet get an empty list.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, userID string, page ports.PageRequest) ([]domain.CustodianTransaction, error) {
	wallet, session, err := s.walletSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return []domain.CustodianTransaction{}, nil
	}

	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = defaultTransactionPageSize
	}
	if pageSize > maxTransactionPageSize {
		pageSize = maxTransactionPageSize
	}

	txs, err := s.custodian.ListTransactions(ctx, session.UserToken, domain.TransactionQuery{
		WalletID:   wallet.ID,
		PageSize:   pageSize,
		PageBefore: page.PageBefore,
		PageAfter:  page.PageAfter,
	})
	if err != nil {
		return nil, custodianError(fmt.Errorf("listing transactions: %w", err))
	}
	if txs == nil {
		txs = []domain.CustodianTransaction{}
	}
	return txs, nil
}

// GetTransaction returns one of the user's transactions by id.
func (s *WalletServiceImpl) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.CustodianTransaction, error) {
	if transactionID == "" {
		return nil, apperror.Validation("transaction id is required")
	}
	if userID == "" {
		return nil, apperror.ErrMissingUser()
	}

	session, err := s.custodian.IssueSessionToken(ctx, userID)
	if err != nil {
		return nil, custodianError(fmt.Errorf("issuing session token: %w", err))
	}

	tx, err := s.custodian.GetTransaction(ctx, session.UserToken, transactionID)
	if err != nil {
		return nil, custodianError(fmt.Errorf("getting transaction: %w", err))
	}
	return tx, nil
}

// TransferStatus polls the custodian until the transaction reaches a
// terminal state, at a fixed PollInterval for up to PollAttempts calls.
// Transient errors count as an attempt and polling goes on. A transaction
// still in flight after the last attempt yields WAL_004.
func (s *WalletServiceImpl) TransferStatus(ctx context.Context, userID, transactionID string) (*domain.AuditRecord, error) {
	if transactionID == "" {
		return nil, apperror.Validation("transaction id is required")
	}
	if userID == "" {
		return nil, apperror.ErrMissingUser()
	}

	session, err := s.custodian.IssueSessionToken(ctx, userID)
	if err != nil {
		return nil, custodianError(fmt.Errorf("issuing session token: %w", err))
	}

	var (
		tx      *domain.CustodianTransaction
		attempt int
	)
	err = s.pollPolicy().Do(ctx, func(ctx context.Context) error {
		attempt++
		got, err := s.custodian.GetTransaction(ctx, session.UserToken, transactionID)
		if err != nil {
			if IsTransient(err) {
				s.log.Warn().Err(err).Str("transaction_id", transactionID).Int("attempt", attempt).Msg("transfer status poll failed")
			}
			return err
		}
		if !got.IsTerminal() {
			s.log.Debug().Str("transaction_id", transactionID).Str("state", string(got.State)).Int("attempt", attempt).Msg("transfer still in flight")
			return errTransferInFlight
		}
		tx = got
		return nil
	})

	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, errTransferInFlight):
		return nil, apperror.ErrTransferNotSettled(transactionID)
	default:
		return nil, custodianError(fmt.Errorf("getting transaction: %w", err))
	}

	rec := tx.AuditRecord()
	s.log.Info().
		Str("transaction_id", transactionID).
		Str("state", string(tx.State)).
		Bool("confirmed", rec.Confirmed).
		Int("attempt", attempt).
		Msg("transfer reached final state")
	return &rec, nil
}

var errTransferInFlight = errors.New("transfer still in flight")

// pollPolicy retries in-flight transfers and transient provider errors at a
// constant interval.
func (s *WalletServiceImpl) pollPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: s.cfg.PollAttempts,
		BaseDelay:   s.cfg.PollInterval,
		MaxDelay:    s.cfg.PollInterval,
		Retryable: func(err error) bool {
			return errors.Is(err, errTransferInFlight) || IsTransient(err)
		},
	}
}

// walletSession resolves the user's first wallet and a session token.
// The wallet is nil when the user has none.
func (s *WalletServiceImpl) walletSession(ctx context.Context, userID string) (*domain.Wallet, *domain.SessionToken, error) {
	if userID == "" {
		return nil, nil, apperror.ErrMissingUser()
	}

	wallets, err := s.custodian.ListWallets(ctx, userID)
	if err != nil {
		return nil, nil, custodianError(fmt.Errorf("listing wallets: %w", err))
	}
	if len(wallets) == 0 {
		return nil, nil, nil
	}

	session, err := s.custodian.IssueSessionToken(ctx, userID)
	if err != nil {
		return nil, nil, custodianError(fmt.Errorf("issuing session token: %w", err))
	}
	return &wallets[0], session, nil
}

// httpStatusCoder is implemented by custodian API errors.
type httpStatusCoder interface {
	HTTPStatusCode() int
}

func custodianStatus(err error) int {
	var sc httpStatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatusCode()
	}
	return 0
}

// custodianError maps a provider failure onto the WAL_ error codes.
func custodianError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if custodianStatus(err) == http.StatusTooManyRequests {
		return apperror.ErrCustodianRateLimited(err)
	}
	return apperror.ErrCustodian(err)
}
