package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/internal/core/ports"
	"voicevault-gateway/internal/core/ports/mocks"
	"voicevault-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc       *WalletServiceImpl
	custodian *mocks.MockWalletCustodian
	tokenSvc  *mocks.MockTokenService
	ctrl      *gomock.Controller
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		custodian: mocks.NewMockWalletCustodian(ctrl),
		tokenSvc:  mocks.NewMockTokenService(ctrl),
		ctrl:      ctrl,
	}
	d.svc = NewWalletService(d.custodian, d.tokenSvc, WalletServiceConfig{
		DefaultBlockchain: "ETH-SEPOLIA",
		PollAttempts:      3,
		PollInterval:      time.Millisecond,
	}, zerolog.Nop())
	return d
}

func requireAppError(t *testing.T, err error, code string, status int) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, status, appErr.HTTPStatus)
}

func (d *walletTestDeps) expectOnboarding(userID string) {
	d.custodian.EXPECT().IssueSessionToken(gomock.Any(), userID).
		Return(&domain.SessionToken{UserToken: "tok", EncryptionKey: "key"}, nil)
	d.custodian.EXPECT().InitializeUser(gomock.Any(), "tok", []string{"ETH-SEPOLIA"}).Return("challenge-1", nil)
	d.custodian.EXPECT().GetAppID(gomock.Any()).Return("app-1", nil)
	d.tokenSvc.EXPECT().Generate(userID).Return("jwt", time.Unix(1700000000, 0), nil)
}

func TestWalletService_CreateWallet(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	d.custodian.EXPECT().CreateUser(gomock.Any(), "user-1").Return(nil)
	d.expectOnboarding("user-1")

	got, err := d.svc.CreateWallet(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, &domain.WalletOnboarding{
		UserID:        "user-1",
		ChallengeID:   "challenge-1",
		UserToken:     "tok",
		EncryptionKey: "key",
		AppID:         "app-1",
		AccessToken:   "jwt",
		ExpiresAt:     time.Unix(1700000000, 0),
	}, got)
}

func TestWalletService_CreateWallet_GeneratesUserID(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	var generated string
	d.custodian.EXPECT().CreateUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, userID string) error {
			generated = userID
			return nil
		})
	d.custodian.EXPECT().IssueSessionToken(gomock.Any(), gomock.Any()).
		Return(&domain.SessionToken{UserToken: "tok"}, nil)
	d.custodian.EXPECT().InitializeUser(gomock.Any(), "tok", gomock.Any()).Return("challenge-1", nil)
	d.custodian.EXPECT().GetAppID(gomock.Any()).Return("app-1", nil)
	d.tokenSvc.EXPECT().Generate(gomock.Any()).Return("jwt", time.Now(), nil)

	got, err := d.svc.CreateWallet(context.Background(), "")
	require.NoError(t, err)

	_, parseErr := uuid.Parse(got.UserID)
	assert.NoError(t, parseErr)
	assert.Equal(t, generated, got.UserID)
}

func TestWalletService_CreateWallet_ExistingUser(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	d.custodian.EXPECT().CreateUser(gomock.Any(), "user-1").Return(&statusErr{status: http.StatusConflict})
	d.expectOnboarding("user-1")

	got, err := d.svc.CreateWallet(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "challenge-1", got.ChallengeID)
}

func TestWalletService_CreateWallet_ProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"server error", &statusErr{status: http.StatusInternalServerError}, "WAL_002", http.StatusBadGateway},
		{"rate limited", &transientErr{status: http.StatusTooManyRequests}, "WAL_003", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupWalletService(t)
			defer d.ctrl.Finish()

			d.custodian.EXPECT().CreateUser(gomock.Any(), "user-1").Return(tt.err)

			_, err := d.svc.CreateWallet(context.Background(), "user-1")
			requireAppError(t, err, tt.code, tt.status)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestWalletService_Status(t *testing.T) {
	t.Run("with wallet", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		d.custodian.EXPECT().ListWallets(gomock.Any(), "user-1").
			Return([]domain.Wallet{{ID: "w-1", Address: testDestination}, {ID: "w-2"}}, nil)

		status, err := d.svc.Status(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, status.Exists)
		assert.Equal(t, "w-1", status.Wallet.ID)
	})

	t.Run("without wallet", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		d.custodian.EXPECT().ListWallets(gomock.Any(), "user-1").Return(nil, nil)

		status, err := d.svc.Status(context.Background(), "user-1")
		require.NoError(t, err)
		assert.False(t, status.Exists)
		assert.Nil(t, status.Wallet)
	})

	t.Run("missing user", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		_, err := d.svc.Status(context.Background(), "")
		requireAppError(t, err, "CMD_002", http.StatusBadRequest)
	})
}

func TestWalletService_Balance(t *testing.T) {
	t.Run("no wallet", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		d.custodian.EXPECT().ListWallets(gomock.Any(), "user-1").Return(nil, nil)

		_, err := d.svc.Balance(context.Background(), "user-1")
		requireAppError(t, err, "WAL_001", http.StatusNotFound)
	})

	t.Run("balances", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		d.custodian.EXPECT().ListWallets(gomock.Any(), "user-1").Return([]domain.Wallet{{ID: "w-1"}}, nil)
		d.custodian.EXPECT().IssueSessionToken(gomock.Any(), "user-1").Return(&domain.SessionToken{UserToken: "tok"}, nil)
		d.custodian.EXPECT().GetWalletBalance(gomock.Any(), "w-1", "tok", true).Return(usdcBalance("12.5"), nil)

		balances, err := d.svc.Balance(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Len(t, balances, 2)
	})
}

func TestWalletService_ListTransactions(t *testing.T) {
	t.Run("no wallet gives empty list", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		d.custodian.EXPECT().ListWallets(gomock.Any(), "user-1").Return(nil, nil)

		txs, err := d.svc.ListTransactions(context.Background(), "user-1", ports.PageRequest{})
		require.NoError(t, err)
		assert.NotNil(t, txs)
		assert.Empty(t, txs)
	})

	t.Run("page size is clamped", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		d.custodian.EXPECT().ListWallets(gomock.Any(), "user-1").Return([]domain.Wallet{{ID: "w-1"}}, nil)
		d.custodian.EXPECT().IssueSessionToken(gomock.Any(), "user-1").Return(&domain.SessionToken{UserToken: "tok"}, nil)
		d.custodian.EXPECT().ListTransactions(gomock.Any(), "tok", domain.TransactionQuery{
			WalletID:  "w-1",
			PageSize:  50,
			PageAfter: "tx-9",
		}).Return([]domain.CustodianTransaction{{ID: "tx-10"}}, nil)

		txs, err := d.svc.ListTransactions(context.Background(), "user-1", ports.PageRequest{PageSize: 500, PageAfter: "tx-9"})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "tx-10", txs[0].ID)
	})
}

func TestWalletService_TransferStatus(t *testing.T) {
	t.Run("settles after polling", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		d.custodian.EXPECT().IssueSessionToken(gomock.Any(), "user-1").Return(&domain.SessionToken{UserToken: "tok"}, nil)
		gomock.InOrder(
			d.custodian.EXPECT().GetTransaction(gomock.Any(), "tok", "tx-1").
				Return(&domain.CustodianTransaction{ID: "tx-1", State: domain.TransactionStateSent}, nil),
			d.custodian.EXPECT().GetTransaction(gomock.Any(), "tok", "tx-1").
				Return(nil, &transientErr{status: http.StatusTooManyRequests}),
			d.custodian.EXPECT().GetTransaction(gomock.Any(), "tok", "tx-1").
				Return(&domain.CustodianTransaction{ID: "tx-1", State: domain.TransactionStateComplete, TxHash: "0xabc"}, nil),
		)

		rec, err := d.svc.TransferStatus(context.Background(), "user-1", "tx-1")
		require.NoError(t, err)
		assert.Equal(t, domain.AuditRecord{TransactionID: "tx-1", Confirmed: true, ConfirmationHash: "0xabc"}, *rec)
	})

	t.Run("failed transfer is final but unconfirmed", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		d.custodian.EXPECT().IssueSessionToken(gomock.Any(), "user-1").Return(&domain.SessionToken{UserToken: "tok"}, nil)
		d.custodian.EXPECT().GetTransaction(gomock.Any(), "tok", "tx-1").
			Return(&domain.CustodianTransaction{ID: "tx-1", State: domain.TransactionStateFailed}, nil)

		rec, err := d.svc.TransferStatus(context.Background(), "user-1", "tx-1")
		require.NoError(t, err)
		assert.False(t, rec.Confirmed)
		assert.Empty(t, rec.ConfirmationHash)
	})

	t.Run("still in flight", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		d.custodian.EXPECT().IssueSessionToken(gomock.Any(), "user-1").Return(&domain.SessionToken{UserToken: "tok"}, nil)
		d.custodian.EXPECT().GetTransaction(gomock.Any(), "tok", "tx-1").
			Return(&domain.CustodianTransaction{ID: "tx-1", State: domain.TransactionStateQueued}, nil).Times(3)

		_, err := d.svc.TransferStatus(context.Background(), "user-1", "tx-1")
		requireAppError(t, err, "WAL_004", http.StatusAccepted)
		assert.Contains(t, err.Error(), "tx-1")
	})

	t.Run("rate limited on the last attempt", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		d.custodian.EXPECT().IssueSessionToken(gomock.Any(), "user-1").Return(&domain.SessionToken{UserToken: "tok"}, nil)
		gomock.InOrder(
			d.custodian.EXPECT().GetTransaction(gomock.Any(), "tok", "tx-1").
				Return(&domain.CustodianTransaction{ID: "tx-1", State: domain.TransactionStateQueued}, nil).Times(2),
			d.custodian.EXPECT().GetTransaction(gomock.Any(), "tok", "tx-1").
				Return(nil, &transientErr{status: http.StatusTooManyRequests}),
		)

		_, err := d.svc.TransferStatus(context.Background(), "user-1", "tx-1")
		requireAppError(t, err, "WAL_003", http.StatusServiceUnavailable)
	})

	t.Run("cancelled while polling", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		ctx, cancel := context.WithCancel(context.Background())
		d.custodian.EXPECT().IssueSessionToken(gomock.Any(), "user-1").Return(&domain.SessionToken{UserToken: "tok"}, nil)
		d.custodian.EXPECT().GetTransaction(gomock.Any(), "tok", "tx-1").DoAndReturn(
			func(context.Context, string, string) (*domain.CustodianTransaction, error) {
				cancel()
				return &domain.CustodianTransaction{ID: "tx-1", State: domain.TransactionStateSent}, nil
			}).MinTimes(1)

		_, err := d.svc.TransferStatus(ctx, "user-1", "tx-1")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("permanent error stops polling", func(t *testing.T) {
		d := setupWalletService(t)
		defer d.ctrl.Finish()

		d.custodian.EXPECT().IssueSessionToken(gomock.Any(), "user-1").Return(&domain.SessionToken{UserToken: "tok"}, nil)
		d.custodian.EXPECT().GetTransaction(gomock.Any(), "tok", "tx-1").
			Return(nil, &statusErr{status: http.StatusNotFound}).Times(1)

		_, err := d.svc.TransferStatus(context.Background(), "user-1", "tx-1")
		requireAppError(t, err, "WAL_002", http.StatusBadGateway)
	})
}
