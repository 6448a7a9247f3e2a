// Package circle implements ports.WalletCustodian against the Circle
// user-controlled wallets API.
package circle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"voicevault-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://api.circle.com/v1/w3s"

	headerUserToken = "X-User-Token"
	accountTypeSCA  = "SCA"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is safe for concurrent use; it holds no per-request state.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a new Circle client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, apiKey string, httpClient HTTPClient, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		log:        log,
	}
}

// GetAppID returns the app id the client SDK needs to complete challenges.
func (c *Client) GetAppID(ctx context.Context) (string, error) {
	var out envelope[entityConfig]
	if err := c.do(ctx, http.MethodGet, "/config/entity", nil, "", nil, &out); err != nil {
		return "", err
	}
	return out.Data.AppID, nil
}

// CreateUser registers userID with Circle. An existing user answers 409.
func (c *Client) CreateUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/users", nil, "", userRequest{UserID: userID}, nil)
}

// IssueSessionToken returns a short-lived user token and its encryption key.
func (c *Client) IssueSessionToken(ctx context.Context, userID string) (*domain.SessionToken, error) {
	var out envelope[userToken]
	if err := c.do(ctx, http.MethodPost, "/users/token", nil, "", userRequest{UserID: userID}, &out); err != nil {
		return nil, err
	}
	return &domain.SessionToken{
		UserToken:     out.Data.UserToken,
		EncryptionKey: out.Data.EncryptionKey,
	}, nil
}

// InitializeUser returns the challenge id the user completes to set a PIN
// and create the wallet.
func (c *Client) InitializeUser(ctx context.Context, userToken string, blockchains []string) (string, error) {
	body := initializeRequest{
		IdempotencyKey: uuid.New().String(),
		Blockchains:    blockchains,
		AccountType:    accountTypeSCA,
	}
	var out envelope[challenge]
	if err := c.do(ctx, http.MethodPost, "/user/initialize", nil, userToken, body, &out); err != nil {
		return "", err
	}
	return out.Data.ChallengeID, nil
}

// ListWallets returns the wallets owned by userID.
func (c *Client) ListWallets(ctx context.Context, userID string) ([]domain.Wallet, error) {
	var out envelope[walletList]
	if err := c.do(ctx, http.MethodGet, "/wallets", url.Values{"userId": {userID}}, "", nil, &out); err != nil {
		return nil, err
	}
	wallets := make([]domain.Wallet, 0, len(out.Data.Wallets))
	for _, w := range out.Data.Wallets {
		wallets = append(wallets, w.toDomain())
	}
	return wallets, nil
}

// GetWalletBalance returns the token balances held by walletID.
func (c *Client) GetWalletBalance(ctx context.Context, walletID, userToken string, includeAll bool) ([]domain.TokenBalance, error) {
	path := "/wallets/" + url.PathEscape(walletID) + "/balances"
	query := url.Values{"includeAll": {strconv.FormatBool(includeAll)}}

	var out envelope[balanceList]
	if err := c.do(ctx, http.MethodGet, path, query, userToken, nil, &out); err != nil {
		return nil, err
	}
	balances := make([]domain.TokenBalance, 0, len(out.Data.TokenBalances))
	for _, b := range out.Data.TokenBalances {
		balances = append(balances, b.toDomain())
	}
	return balances, nil
}

// CreateTransfer returns the challenge id the user confirms with their PIN.
func (c *Client) CreateTransfer(ctx context.Context, userToken string, req domain.TransferRequest) (string, error) {
	body := transferRequest{
		IdempotencyKey:     uuid.New().String(),
		WalletID:           req.WalletID,
		DestinationAddress: req.DestinationAddress,
		Amounts:            []string{req.Amount},
		FeeLevel:           string(req.FeeLevel),
	}
	if req.TokenID != "" {
		body.TokenID = req.TokenID
	} else {
		body.TokenAddress = req.TokenAddress
		body.Blockchain = req.Blockchain
	}

	var out envelope[challenge]
	if err := c.do(ctx, http.MethodPost, "/user/transactions/transfer", nil, userToken, body, &out); err != nil {
		return "", err
	}

	c.log.Debug().
		Str("wallet_id", req.WalletID).
		Str("challenge_id", out.Data.ChallengeID).
		Str("idempotency_key", body.IdempotencyKey).
		Msg("transfer challenge requested")

	return out.Data.ChallengeID, nil
}

// ListTransactions returns one page of the user's transactions.
func (c *Client) ListTransactions(ctx context.Context, userToken string, q domain.TransactionQuery) ([]domain.CustodianTransaction, error) {
	query := url.Values{"walletId": {q.WalletID}}
	if q.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.PageBefore != "" {
		query.Set("pageBefore", q.PageBefore)
	}
	if q.PageAfter != "" {
		query.Set("pageAfter", q.PageAfter)
	}

	var out envelope[transactionList]
	if err := c.do(ctx, http.MethodGet, "/transactions", query, userToken, nil, &out); err != nil {
		return nil, err
	}
	txs := make([]domain.CustodianTransaction, 0, len(out.Data.Transactions))
	for _, t := range out.Data.Transactions {
		txs = append(txs, t.toDomain())
	}
	return txs, nil
}

// GetTransaction returns a single transaction by id.
func (c *Client) GetTransaction(ctx context.Context, userToken, transactionID string) (*domain.CustodianTransaction, error) {
	var out envelope[transactionItem]
	if err := c.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(transactionID), nil, userToken, nil, &out); err != nil {
		return nil, err
	}
	tx := out.Data.Transaction.toDomain()
	return &tx, nil
}

// do sends one request. userToken is only attached when non-empty. A nil
// out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, userToken string, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("circle: encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("circle: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userToken != "" {
		req.Header.Set(headerUserToken, userToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("circle: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("circle: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		c.log.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("code", apiErr.Code).
			Msg("circle request failed")
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("circle: decoding %s %s: %w", method, path, err)
	}
	return nil
}
