package circle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"voicevault-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "TEST_API_KEY:abc:def"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, testAPIKey, srv.Client(), zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_GetAppID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/config/entity", r.URL.Path)
		assert.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get(headerUserToken))
		writeJSON(w, http.StatusOK, `{"data":{"appId":"app-123"}}`)
	})

	appID, err := c.GetAppID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "app-123", appID)
}

func TestClient_IssueSessionToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/token", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-1", body["userId"])

		writeJSON(w, http.StatusOK, `{"data":{"userToken":"tok","encryptionKey":"key"}}`)
	})

	session, err := c.IssueSessionToken(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, &domain.SessionToken{UserToken: "tok", EncryptionKey: "key"}, session)
}

func TestClient_InitializeUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/initialize", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get(headerUserToken))

		var body initializeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"ETH-SEPOLIA"}, body.Blockchains)
		assert.Equal(t, "SCA", body.AccountType)
		_, err := uuid.Parse(body.IdempotencyKey)
		assert.NoError(t, err)

		writeJSON(w, http.StatusCreated, `{"data":{"challengeId":"ch-1"}}`)
	})

	challengeID, err := c.InitializeUser(context.Background(), "tok", []string{"ETH-SEPOLIA"})
	require.NoError(t, err)
	assert.Equal(t, "ch-1", challengeID)
}

func TestClient_ListWallets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wallets", r.URL.Path)
		assert.Equal(t, "user 1", r.URL.Query().Get("userId"))
		writeJSON(w, http.StatusOK, `{"data":{"wallets":[
			{"id":"w-1","userId":"user 1","address":"0xabc","blockchain":"ETH-SEPOLIA","state":"LIVE","accountType":"SCA","createDate":"2024-03-01T10:00:00Z"}
		]}}`)
	})

	wallets, err := c.ListWallets(context.Background(), "user 1")
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, "w-1", wallets[0].ID)
	assert.Equal(t, "ETH-SEPOLIA", wallets[0].Blockchain)
	assert.Equal(t, 2024, wallets[0].CreatedAt.Year())
}

func TestClient_ListWallets_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"wallets":[]}}`)
	})

	wallets, err := c.ListWallets(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, wallets)
	assert.Empty(t, wallets)
}

func TestClient_GetWalletBalance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wallets/w-1/balances", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("includeAll"))
		assert.Equal(t, "tok", r.Header.Get(headerUserToken))
		writeJSON(w, http.StatusOK, `{"data":{"tokenBalances":[
			{"token":{"id":"usdc-id","symbol":"USDC","name":"USD Coin","decimals":6,"blockchain":"ETH-SEPOLIA"},"amount":"12500000"},
			{"token":{"id":"eth-id","symbol":"ETH-SEPOLIA","decimals":18,"isNative":true},"amount":"not-a-number"}
		]}}`)
	})

	balances, err := c.GetWalletBalance(context.Background(), "w-1", "tok", true)
	require.NoError(t, err)
	require.Len(t, balances, 2)

	assert.Equal(t, "usdc-id", balances[0].Token.ID)
	assert.Equal(t, "12500000", balances[0].RawAmount)
	assert.Equal(t, "12.5", balances[0].Amount.String())
	assert.True(t, balances[1].Token.IsNative)
	assert.True(t, balances[1].Amount.IsZero())
}

func TestClient_CreateTransfer(t *testing.T) {
	tests := []struct {
		name   string
		req    domain.TransferRequest
		assert func(t *testing.T, body transferRequest)
	}{
		{
			name: "by token id",
			req: domain.TransferRequest{
				WalletID: "w-1", DestinationAddress: "0xdest", Amount: "1.500000",
				TokenID: "usdc-id", TokenAddress: "ignored", FeeLevel: domain.FeeLevelMedium,
			},
			assert: func(t *testing.T, body transferRequest) {
				assert.Equal(t, "usdc-id", body.TokenID)
				assert.Empty(t, body.TokenAddress)
				assert.Empty(t, body.Blockchain)
			},
		},
		{
			name: "by token address",
			req: domain.TransferRequest{
				WalletID: "w-1", DestinationAddress: "0xdest", Amount: "1.500000",
				TokenAddress: "0xusdc", Blockchain: "ETH", FeeLevel: domain.FeeLevelMedium,
			},
			assert: func(t *testing.T, body transferRequest) {
				assert.Empty(t, body.TokenID)
				assert.Equal(t, "0xusdc", body.TokenAddress)
				assert.Equal(t, "ETH", body.Blockchain)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/user/transactions/transfer", r.URL.Path)
				assert.Equal(t, "tok", r.Header.Get(headerUserToken))

				var body transferRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "w-1", body.WalletID)
				assert.Equal(t, "0xdest", body.DestinationAddress)
				assert.Equal(t, []string{"1.500000"}, body.Amounts)
				assert.Equal(t, "MEDIUM", body.FeeLevel)
				assert.NotEmpty(t, body.IdempotencyKey)
				tt.assert(t, body)

				writeJSON(w, http.StatusCreated, `{"data":{"challengeId":"ch-9"}}`)
			})

			challengeID, err := c.CreateTransfer(context.Background(), "tok", tt.req)
			require.NoError(t, err)
			assert.Equal(t, "ch-9", challengeID)
		})
	}
}

func TestClient_ListTransactions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, "w-1", q.Get("walletId"))
		assert.Equal(t, "20", q.Get("pageSize"))
		assert.Equal(t, "tx-0", q.Get("pageAfter"))
		assert.False(t, q.Has("pageBefore"))
		writeJSON(w, http.StatusOK, `{"data":{"transactions":[
			{"id":"tx-1","state":"COMPLETE","transactionType":"OUTBOUND","walletId":"w-1","amounts":["1.5"],"txHash":"0xhash"}
		]}}`)
	})

	txs, err := c.ListTransactions(context.Background(), "tok", domain.TransactionQuery{
		WalletID: "w-1", PageSize: 20, PageAfter: "tx-0",
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionStateComplete, txs[0].State)
	assert.Equal(t, []string{"1.5"}, txs[0].Amounts)
	assert.True(t, txs[0].IsConfirmed())
}

func TestClient_GetTransaction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/tx-1", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"data":{"transaction":{"id":"tx-1","state":"SENT"}}}`)
	})

	tx, err := c.GetTransaction(context.Background(), "tok", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.ID)
	assert.False(t, tx.IsTerminal())
	assert.NotNil(t, tx.Amounts)
}

func TestClient_APIErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      int
		temporary bool
	}{
		{"conflict", http.StatusConflict, `{"code":155101,"message":"Existing user already created with the provided userId."}`, 155101, false},
		{"rate limited", http.StatusTooManyRequests, `{"code":-1,"message":"Too many requests"}`, -1, true},
		{"server error without body", http.StatusBadGateway, ``, 0, true},
		{"unauthorized", http.StatusUnauthorized, `{"code":401,"message":"Invalid credentials."}`, 401, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			err := c.CreateUser(context.Background(), "user-1")

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.HTTPStatusCode())
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.temporary, apiErr.Temporary())
		})
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":`)
	})

	_, err := c.GetAppID(context.Background())
	assert.ErrorContains(t, err, "decoding")
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"appId":"x"}}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetAppID(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
