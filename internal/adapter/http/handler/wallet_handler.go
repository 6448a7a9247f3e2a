package handler

import (
	"voicevault-gateway/internal/adapter/http/dto"
	"voicevault-gateway/internal/adapter/http/middleware"
	"voicevault-gateway/internal/core/ports"
	"voicevault-gateway/pkg/apperror"
	"voicevault-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet onboarding and account queries.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Create handles POST /api/v1/wallet/create. The body is optional; without
// a user id a new one is generated.
func (h *WalletHandler) Create(c *gin.Context) {
	var req dto.CreateWalletRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
	}

	userID, ok := resolveUserID(c, req.UserID)
	if !ok {
		return
	}

	onboarding, err := h.walletSvc.CreateWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxUserID, onboarding.UserID)
	middleware.SetAuditDetails(c, middleware.AuditDetails{
		ResourceID: onboarding.UserID,
		Fields:     map[string]any{"challenge_id": onboarding.ChallengeID},
	})
	response.Created(c, dto.WalletOnboardingResponse{
		UserID:        onboarding.UserID,
		ChallengeID:   onboarding.ChallengeID,
		UserToken:     onboarding.UserToken,
		EncryptionKey: onboarding.EncryptionKey,
		AppID:         onboarding.AppID,
		AccessToken:   onboarding.AccessToken,
		ExpiresAt:     onboarding.ExpiresAt.Unix(),
	})
}

// Status handles GET /api/v1/wallet/status.
func (h *WalletHandler) Status(c *gin.Context) {
	userID, ok := resolveUserID(c, "")
	if !ok {
		return
	}

	status, err := h.walletSvc.Status(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Balance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) Balance(c *gin.Context) {
	userID, ok := resolveUserID(c, "")
	if !ok {
		return
	}

	balances, err := h.walletSvc.Balance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.BalanceResponse{UserID: userID, Balances: balances})
}

// Transactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) Transactions(c *gin.Context) {
	userID, ok := resolveUserID(c, "")
	if !ok {
		return
	}

	var q dto.TransactionPageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txs, err := h.walletSvc.ListTransactions(c.Request.Context(), userID, ports.PageRequest{
		PageSize:   q.PageSize,
		PageBefore: q.PageBefore,
		PageAfter:  q.PageAfter,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.TransactionListResponse{Transactions: txs, Count: len(txs)})
}

// Transaction handles GET /api/v1/wallet/transactions/:id.
func (h *WalletHandler) Transaction(c *gin.Context) {
	userID, txID, ok := transactionParams(c)
	if !ok {
		return
	}

	tx, err := h.walletSvc.GetTransaction(c.Request.Context(), userID, txID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tx)
}

// TransferStatus handles GET /api/v1/wallet/transactions/:id/status. It
// waits briefly for the transfer to settle; unsettled transfers get WAL_004.
func (h *WalletHandler) TransferStatus(c *gin.Context) {
	userID, txID, ok := transactionParams(c)
	if !ok {
		return
	}

	record, err := h.walletSvc.TransferStatus(c.Request.Context(), userID, txID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.TransferStatusResponse{
		TransactionID:    record.TransactionID,
		Settled:          true,
		Confirmed:        record.Confirmed,
		ConfirmationHash: record.ConfirmationHash,
	})
}

func transactionParams(c *gin.Context) (string, string, bool) {
	userID, ok := resolveUserID(c, "")
	if !ok {
		return "", "", false
	}
	txID := c.Param("id")
	if !dto.IsSafeID(txID) {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return "", "", false
	}
	return userID, txID, true
}
