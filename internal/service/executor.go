package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/internal/core/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNoWallet       = errors.New("no wallet found for user")
	ErrUserIDRequired = errors.New("user_id is required")
	ErrAmountRequired = errors.New("transfer amount is required")
)

// TokenAddressBook maps asset -> blockchain -> token contract address. It is
// the fallback when the wallet's balance listing has no token id for the asset.
type TokenAddressBook map[domain.Asset]map[string]string

// NewTokenAddressBook normalises keys to upper case.
func NewTokenAddressBook(raw map[string]map[string]string) TokenAddressBook {
	book := make(TokenAddressBook, len(raw))
	for asset, chains := range raw {
		a := domain.Asset(normalizeSymbol(asset))
		if book[a] == nil {
			book[a] = make(map[string]string, len(chains))
		}
		for chain, addr := range chains {
			book[a][strings.ToUpper(chain)] = addr
		}
	}
	return book
}

// DefaultTokenAddressBook holds USDC mainnet. Testnet USDC is only
// addressable by token id.
func DefaultTokenAddressBook() TokenAddressBook {
	return TokenAddressBook{
		domain.AssetUSDC: {
			"ETH":         "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			"ETH-SEPOLIA": "",
		},
	}
}

// Lookup returns the contract address, or "" if none is configured.
func (b TokenAddressBook) Lookup(asset domain.Asset, blockchain string) string {
	return b[asset][strings.ToUpper(blockchain)]
}

// ExecutorConfig configures CustodianExecutor.
type ExecutorConfig struct {
	DefaultUserID     string
	DefaultBlockchain string
	FeeLevel          domain.FeeLevel
	TokenAddresses    TokenAddressBook
}

// CustodianExecutor implements ports.TransactionExecutor by creating
// transfer challenges with the wallet custodian. The transfer only settles
// after the user confirms it with their PIN.
type CustodianExecutor struct {
	custodian ports.WalletCustodian
	cfg       ExecutorConfig
	log       zerolog.Logger
}

// NewCustodianExecutor creates a new CustodianExecutor.
func NewCustodianExecutor(custodian ports.WalletCustodian, cfg ExecutorConfig, log zerolog.Logger) *CustodianExecutor {
	if cfg.FeeLevel == "" {
		cfg.FeeLevel = domain.FeeLevelMedium
	}
	if cfg.DefaultBlockchain == "" {
		cfg.DefaultBlockchain = "ETH-SEPOLIA"
	}
	if cfg.TokenAddresses == nil {
		cfg.TokenAddresses = DefaultTokenAddressBook()
	}
	return &CustodianExecutor{custodian: custodian, cfg: cfg, log: log}
}

// Execute never returns an error; failures (including panics) become
// ExecutionFailed results that echo the intent.
func (e *CustodianExecutor) Execute(ctx context.Context, intent domain.Intent, userID string) (result domain.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("executor panicked")
			result = domain.ExecutionFail(intent, fmt.Errorf("executor panicked: %v", r))
		}
	}()

	if skip, ok := skipUnlessTransfer(intent); ok {
		return skip
	}

	if userID == "" {
		userID = e.cfg.DefaultUserID
	}
	if userID == "" {
		return domain.ExecutionFail(intent, ErrUserIDRequired)
	}

	challenge, err := e.createChallenge(ctx, intent, userID)
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", userID).Msg("transfer challenge failed")
		return domain.ExecutionFail(intent, err)
	}

	e.log.Info().
		Str("user_id", userID).
		Str("wallet_id", challenge.WalletID).
		Str("challenge_id", challenge.ChallengeID).
		Msg("transfer challenge created")

	return domain.ExecutionAwaitConfirmation(intent, *challenge)
}

func (e *CustodianExecutor) createChallenge(ctx context.Context, intent domain.Intent, userID string) (*domain.TransactionChallenge, error) {
	if intent.Amount == nil {
		return nil, ErrAmountRequired
	}
	if !common.IsHexAddress(intent.Destination) {
		return nil, fmt.Errorf("invalid destination address %q", intent.Destination)
	}

	asset := intent.Asset
	if asset == domain.AssetUnknown {
		asset = domain.AssetUSDC
	}

	wallets, err := e.custodian.ListWallets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	if len(wallets) == 0 {
		return nil, ErrNoWallet
	}
	wallet := wallets[0]
	blockchain := wallet.Blockchain
	if blockchain == "" {
		blockchain = e.cfg.DefaultBlockchain
	}

	session, err := e.custodian.IssueSessionToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("issuing session token: %w", err)
	}

	decimals := asset.Decimals()
	var tokenID string
	balances, err := e.custodian.GetWalletBalance(ctx, wallet.ID, session.UserToken, true)
	if err != nil {
		// Fall through to the token address table.
		e.log.Warn().Err(err).Str("wallet_id", wallet.ID).Msg("could not read wallet balance")
	} else if b, ok := domain.FindBalance(balances, asset); ok {
		tokenID = b.Token.ID
		if b.Token.Decimals > 0 {
			decimals = b.Token.Decimals
		}
		// The custodian is authoritative on insufficient funds.
		if b.Amount.LessThan(*intent.Amount) {
			e.log.Warn().
				Str("wallet_id", wallet.ID).
				Str("asset", string(asset)).
				Str("balance", b.Amount.String()).
				Str("requested", intent.Amount.String()).
				Msg("wallet balance below requested amount")
		}
	}

	req := domain.TransferRequest{
		WalletID:           wallet.ID,
		DestinationAddress: common.HexToAddress(intent.Destination).Hex(),
		Amount:             intent.Amount.StringFixed(decimals),
		FeeLevel:           e.cfg.FeeLevel,
	}
	if tokenID != "" {
		req.TokenID = tokenID
	} else {
		addr := e.cfg.TokenAddresses.Lookup(asset, blockchain)
		if addr == "" {
			return nil, fmt.Errorf("%s token not found in wallet on %s; a resolvable token id is required for this network", asset, blockchain)
		}
		req.TokenAddress = addr
		req.Blockchain = blockchain
	}

	challengeID, err := e.custodian.CreateTransfer(ctx, session.UserToken, req)
	if err != nil {
		return nil, fmt.Errorf("creating transfer: %w", err)
	}

	appID, err := e.custodian.GetAppID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting app id: %w", err)
	}

	return &domain.TransactionChallenge{
		ChallengeID:   challengeID,
		WalletID:      wallet.ID,
		UserID:        userID,
		UserToken:     session.UserToken,
		EncryptionKey: session.EncryptionKey,
		AppID:         appID,
	}, nil
}

// SimulatedExecutor completes transfers immediately with a synthetic id.
// Used offline by agentctl and in local development.
type SimulatedExecutor struct {
	log zerolog.Logger
}

// NewSimulatedExecutor creates a new SimulatedExecutor.
func NewSimulatedExecutor(log zerolog.Logger) *SimulatedExecutor {
	return &SimulatedExecutor{log: log}
}

// Execute completes transfers at once with a sim_ transaction id.
func (e *SimulatedExecutor) Execute(_ context.Context, intent domain.Intent, userID string) domain.ExecutionResult {
	if skip, ok := skipUnlessTransfer(intent); ok {
		return skip
	}
	txID := "sim_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	e.log.Info().Str("user_id", userID).Str("transaction_id", txID).Msg("simulated transfer executed")
	return domain.ExecutionComplete(intent, txID)
}

// skipUnlessTransfer: only transfers with a destination are executed.
func skipUnlessTransfer(intent domain.Intent) (domain.ExecutionResult, bool) {
	if intent.Action.Normalize() == domain.ActionTransfer && intent.Destination != "" {
		return domain.ExecutionResult{}, false
	}
	return domain.ExecutionSkip(intent, fmt.Sprintf("%s - only transfers are supported", intent.Summary())), true
}
