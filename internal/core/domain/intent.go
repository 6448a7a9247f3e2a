package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Action is the verb recognised at the start of a command.
type Action string

const (
	ActionUnknown  Action = ""
	ActionBuy      Action = "buy"
	ActionSell     Action = "sell"
	ActionTransfer Action = "transfer"
	ActionSend     Action = "send" // alias of transfer accepted from callers other than the parser
)

// Normalize folds aliases into their canonical action.
func (a Action) Normalize() Action {
	if a == ActionSend {
		return ActionTransfer
	}
	return a
}

// IsKnown reports whether a is one of buy, sell, transfer (after normalisation).
func (a Action) IsKnown() bool {
	switch a.Normalize() {
	case ActionBuy, ActionSell, ActionTransfer:
		return true
	}
	return false
}

// Asset is an upper-cased token symbol.
type Asset string

const (
	AssetUnknown Asset = ""
	AssetUSDC    Asset = "USDC"
	AssetETH     Asset = "ETH"
	AssetBTC     Asset = "BTC"
)

// KnownAssets is the set of symbols the pipeline can trade or move.
var KnownAssets = map[Asset]bool{
	AssetUSDC: true,
	AssetETH:  true,
	AssetBTC:  true,
}

// assetDecimals holds native precision used when formatting transfer amounts.
var assetDecimals = map[Asset]int32{
	AssetUSDC: 6,
	AssetETH:  18,
	AssetBTC:  8,
}

// Decimals returns the asset's native precision, defaulting to 6.
func (a Asset) Decimals() int32 {
	if d, ok := assetDecimals[Asset(strings.ToUpper(string(a)))]; ok {
		return d
	}
	return 6
}

// Intent is the structured form of a free-text command.
// It is immutable once produced by the parser.
type Intent struct {
	Action      Action           `json:"action,omitempty"`
	Asset       Asset            `json:"asset,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Percent     *decimal.Decimal `json:"percent,omitempty"`
	Destination string           `json:"destination,omitempty"`
	RawText     string           `json:"raw_text"`
}

// HasAmount reports whether an amount was detected.
func (i Intent) HasAmount() bool { return i.Amount != nil }

// HasPercent reports whether a percentage was detected.
func (i Intent) HasPercent() bool { return i.Percent != nil }

// Summary renders the intent for human-readable messages, e.g. "transfer 100 USDC".
func (i Intent) Summary() string {
	parts := make([]string, 0, 3)
	if i.Action != ActionUnknown {
		parts = append(parts, string(i.Action))
	}
	if i.Amount != nil {
		parts = append(parts, i.Amount.String())
	}
	if i.Asset != AssetUnknown {
		parts = append(parts, string(i.Asset))
	}
	if len(parts) == 0 {
		return "command"
	}
	return strings.Join(parts, " ")
}
