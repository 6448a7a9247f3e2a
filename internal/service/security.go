package service

import (
	"regexp"

	"voicevault-gateway/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
)

const (
	ReasonUnsupportedAction  = "unsupported action"
	ReasonUnsupportedAsset   = "unsupported asset"
	ReasonAmountNotPositive  = "amount must be positive"
	ReasonInvalidDestination = "invalid destination address"
)

// strictAddressPattern is the 0x + 40 hex form. The parser's match is looser.
var strictAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// RuleSecurityValidator implements ports.SecurityValidator.
type RuleSecurityValidator struct {
	requireKnownAction bool
}

// NewRuleSecurityValidator creates a new RuleSecurityValidator. With
// requireKnownAction set, intents without buy/sell/transfer are invalid.
func NewRuleSecurityValidator(requireKnownAction bool) *RuleSecurityValidator {
	return &RuleSecurityValidator{requireKnownAction: requireKnownAction}
}

// Validate checks the asset whitelist, the amount and the destination format.
func (s *RuleSecurityValidator) Validate(intent domain.Intent) domain.Verdict {
	v := domain.Approve()

	if s.requireKnownAction && !intent.Action.IsKnown() {
		v.Reject(ReasonUnsupportedAction)
	}

	if intent.Asset != domain.AssetUnknown && !domain.KnownAssets[intent.Asset] {
		v.Reject(ReasonUnsupportedAsset)
	}

	if intent.Amount != nil && !intent.Amount.IsPositive() {
		v.Reject(ReasonAmountNotPositive)
	}

	if intent.Destination != "" && !IsStrictAddress(intent.Destination) {
		v.Reject(ReasonInvalidDestination)
	}

	return v
}

// IsStrictAddress reports whether addr is a 0x-prefixed 20-byte hex address.
func IsStrictAddress(addr string) bool {
	return strictAddressPattern.MatchString(addr) && common.IsHexAddress(addr)
}
