package domain

import "github.com/shopspring/decimal"

// DefaultUnpricedAssetPrice is applied to assets missing from Prices.
// Unpriced assets are treated as already USD-denominated.
var DefaultUnpricedAssetPrice = decimal.NewFromInt(1)

// Holding is one asset position in a snapshot.
type Holding struct {
	Amount decimal.Decimal `json:"amount"`
	USD    decimal.Decimal `json:"usd"`
}

// PortfolioSnapshot is the pricing context for one pipeline run.
type PortfolioSnapshot struct {
	TotalValueUSD decimal.Decimal           `json:"total_value_usd"`
	Balances      map[Asset]Holding         `json:"balances"`
	Prices        map[Asset]decimal.Decimal `json:"prices"`
	Allocations   map[Asset]decimal.Decimal `json:"allocations_pct,omitempty"`
}

// PriceOf returns the unit USD price of asset, or DefaultUnpricedAssetPrice
// when the snapshot has no exact symbol match.
func (s PortfolioSnapshot) PriceOf(asset Asset) decimal.Decimal {
	if p, ok := s.Prices[asset]; ok {
		return p
	}
	return DefaultUnpricedAssetPrice
}
