package service

import (
	"context"
	"errors"

	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/internal/core/ports"
)

// SignedAuditor implements ports.Auditor. It confirms every completed
// transaction and signs the id so the record can be verified later.
type SignedAuditor struct {
	signer ports.SignatureService
	secret string
}

// NewSignedAuditor creates a new SignedAuditor.
func NewSignedAuditor(signer ports.SignatureService, secret string) *SignedAuditor {
	return &SignedAuditor{signer: signer, secret: secret}
}

// Audit confirms transactionID and signs the record.
func (a *SignedAuditor) Audit(_ context.Context, transactionID string) (domain.AuditRecord, error) {
	if transactionID == "" {
		return domain.AuditRecord{}, errors.New("transaction id is required")
	}
	return domain.AuditRecord{
		TransactionID:    transactionID,
		Confirmed:        true,
		ConfirmationHash: a.signer.Sign(a.secret, transactionID),
	}, nil
}

// VerifyRecord checks a record's confirmation hash.
func (a *SignedAuditor) VerifyRecord(rec domain.AuditRecord) bool {
	return a.signer.Verify(a.secret, rec.TransactionID, rec.ConfirmationHash)
}
