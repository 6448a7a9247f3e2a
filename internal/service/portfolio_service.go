package service

import (
	"context"
	"fmt"
	"strings"

	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultSnapshot returns the fixed demo portfolio.
func DefaultSnapshot() domain.PortfolioSnapshot {
	return domain.PortfolioSnapshot{
		TotalValueUSD: decimal.RequireFromString("18450.32"),
		Balances: map[domain.Asset]domain.Holding{
			domain.AssetUSDC: {Amount: decimal.RequireFromString("11070.19"), USD: decimal.RequireFromString("11070.19")},
			domain.AssetETH:  {Amount: decimal.RequireFromString("3.0"), USD: decimal.RequireFromString("4612.58")},
			domain.AssetBTC:  {Amount: decimal.RequireFromString("0.08"), USD: decimal.RequireFromString("2767.55")},
		},
		Prices: DefaultPrices(),
		Allocations: map[domain.Asset]decimal.Decimal{
			domain.AssetUSDC: decimal.NewFromInt(60),
			domain.AssetETH:  decimal.NewFromInt(25),
			domain.AssetBTC:  decimal.NewFromInt(15),
		},
	}
}

// DefaultPrices is the reference USD price table.
func DefaultPrices() map[domain.Asset]decimal.Decimal {
	return map[domain.Asset]decimal.Decimal{
		domain.AssetUSDC: decimal.NewFromInt(1),
		domain.AssetETH:  decimal.RequireFromString("1537.53"),
		domain.AssetBTC:  decimal.RequireFromString("34594.38"),
	}
}

// StaticPortfolioProvider serves the same snapshot for every user.
type StaticPortfolioProvider struct{}

// NewStaticPortfolioProvider creates a new StaticPortfolioProvider.
func NewStaticPortfolioProvider() *StaticPortfolioProvider {
	return &StaticPortfolioProvider{}
}

// Snapshot builds a fresh copy so runs never share maps.
func (p *StaticPortfolioProvider) Snapshot(_ context.Context, _ string) (*domain.PortfolioSnapshot, error) {
	snap := DefaultSnapshot()
	return &snap, nil
}

// CustodianPortfolioProvider prices the user's first custodial wallet.
type CustodianPortfolioProvider struct {
	custodian ports.WalletCustodian
	prices    map[domain.Asset]decimal.Decimal
	log       zerolog.Logger
}

// NewCustodianPortfolioProvider creates a new CustodianPortfolioProvider.
// A nil prices map falls back to DefaultPrices.
func NewCustodianPortfolioProvider(custodian ports.WalletCustodian, prices map[domain.Asset]decimal.Decimal, log zerolog.Logger) *CustodianPortfolioProvider {
	if prices == nil {
		prices = DefaultPrices()
	}
	return &CustodianPortfolioProvider{custodian: custodian, prices: prices, log: log}
}

// Snapshot values the first wallet's balances at the configured prices.
func (p *CustodianPortfolioProvider) Snapshot(ctx context.Context, userID string) (*domain.PortfolioSnapshot, error) {
	snap := &domain.PortfolioSnapshot{
		TotalValueUSD: decimal.Zero,
		Balances:      map[domain.Asset]domain.Holding{},
		Prices:        make(map[domain.Asset]decimal.Decimal, len(p.prices)),
		Allocations:   map[domain.Asset]decimal.Decimal{},
	}
	for asset, price := range p.prices {
		snap.Prices[asset] = price
	}

	if userID == "" {
		return snap, nil
	}

	wallets, err := p.custodian.ListWallets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	if len(wallets) == 0 {
		p.log.Debug().Str("user_id", userID).Msg("no wallet, using empty portfolio")
		return snap, nil
	}

	session, err := p.custodian.IssueSessionToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("issuing session token: %w", err)
	}

	balances, err := p.custodian.GetWalletBalance(ctx, wallets[0].ID, session.UserToken, true)
	if err != nil {
		return nil, fmt.Errorf("getting wallet balance: %w", err)
	}

	for _, b := range balances {
		asset := domain.Asset(normalizeSymbol(b.Token.Symbol))
		usd := b.Amount.Mul(snap.PriceOf(asset))

		h := snap.Balances[asset]
		h.Amount = h.Amount.Add(b.Amount)
		h.USD = h.USD.Add(usd)
		snap.Balances[asset] = h
		snap.TotalValueUSD = snap.TotalValueUSD.Add(usd)
	}

	if snap.TotalValueUSD.IsPositive() {
		hundred := decimal.NewFromInt(100)
		for asset, h := range snap.Balances {
			snap.Allocations[asset] = h.USD.Div(snap.TotalValueUSD).Mul(hundred).Round(2)
		}
	}

	return snap, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
