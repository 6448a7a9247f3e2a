package service

import (
	"voicevault-gateway/internal/core/domain"

	"github.com/shopspring/decimal"
)

const (
	ReasonPercentExceedsLimit  = "percent exceeds limit"
	ReasonAmountExceedsCap     = "amount exceeds portfolio cap"
	ReasonTransferExceedsLimit = "transfer exceeds limit"
)

// RiskLimits are the thresholds applied by RuleRiskEvaluator.
type RiskLimits struct {
	MaxPercent        decimal.Decimal
	PortfolioCapRatio decimal.Decimal
	TransferLimitUSD  decimal.Decimal
}

// DefaultRiskLimits: 50% of a position, 30% of portfolio value, $5,000 per transfer.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxPercent:        decimal.NewFromInt(50),
		PortfolioCapRatio: decimal.RequireFromString("0.30"),
		TransferLimitUSD:  decimal.NewFromInt(5000),
	}
}

// RuleRiskEvaluator implements ports.RiskEvaluator. Every rule is evaluated
// and every violated rule contributes a reason.
type RuleRiskEvaluator struct {
	limits RiskLimits
}

// NewRuleRiskEvaluator creates a new RuleRiskEvaluator.
func NewRuleRiskEvaluator(limits RiskLimits) *RuleRiskEvaluator {
	return &RuleRiskEvaluator{limits: limits}
}

// Evaluate checks every rule and collects a reason for each one violated.
func (e *RuleRiskEvaluator) Evaluate(intent domain.Intent, snapshot domain.PortfolioSnapshot) domain.Verdict {
	v := domain.Approve()

	if intent.Percent != nil && intent.Percent.GreaterThan(e.limits.MaxPercent) {
		v.Reject(ReasonPercentExceedsLimit)
	}

	if intent.Amount != nil {
		usd := intent.Amount.Mul(snapshot.PriceOf(intent.Asset))

		if usd.GreaterThan(e.limits.PortfolioCapRatio.Mul(snapshot.TotalValueUSD)) {
			v.Reject(ReasonAmountExceedsCap)
		}
		if intent.Action.Normalize() == domain.ActionTransfer && usd.GreaterThan(e.limits.TransferLimitUSD) {
			v.Reject(ReasonTransferExceedsLimit)
		}
	}

	return v
}
