// Package app assembles the command pipeline and its collaborators from
// configuration. The API server and agentctl share it.
package app

import (
	"fmt"
	"net/http"
	"strings"

	"voicevault-gateway/config"
	"voicevault-gateway/internal/adapter/custodian/circle"
	"voicevault-gateway/internal/core/domain"
	"voicevault-gateway/internal/core/ports"
	"voicevault-gateway/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	ExecutorCustodian = "custodian"
	ExecutorSimulated = "simulated"

	PortfolioStatic    = "static"
	PortfolioCustodian = "custodian"
)

// Pipeline is a wired command pipeline plus the parser feeding it.
type Pipeline struct {
	*service.PipelineImpl
	Parser ports.CommandParser
}

// NewCustodian builds the wallet custodian client. It returns a nil
// interface when no API key is configured.
func NewCustodian(cfg config.CircleConfig, log zerolog.Logger) ports.WalletCustodian {
	if cfg.APIKey == "" {
		return nil
	}
	return circle.NewClient(cfg.BaseURL, cfg.APIKey, &http.Client{Timeout: cfg.Timeout}, log)
}

// RiskLimits converts configured thresholds. Zero values keep the defaults.
func RiskLimits(cfg config.RiskConfig) service.RiskLimits {
	limits := service.DefaultRiskLimits()
	if cfg.MaxPercent > 0 {
		limits.MaxPercent = decimal.NewFromFloat(cfg.MaxPercent)
	}
	if cfg.PortfolioCapRatio > 0 {
		limits.PortfolioCapRatio = decimal.NewFromFloat(cfg.PortfolioCapRatio)
	}
	if cfg.TransferLimitUSD > 0 {
		limits.TransferLimitUSD = decimal.NewFromFloat(cfg.TransferLimitUSD)
	}
	return limits
}

// Prices converts the configured USD price table, keyed by upper-case symbol.
func Prices(raw map[string]float64) map[domain.Asset]decimal.Decimal {
	if len(raw) == 0 {
		return service.DefaultPrices()
	}
	prices := make(map[domain.Asset]decimal.Decimal, len(raw))
	for symbol, price := range raw {
		prices[domain.Asset(strings.ToUpper(symbol))] = decimal.NewFromFloat(price)
	}
	return prices
}

// NewPipeline wires the stages selected by cfg. custodian may be nil when
// neither the executor nor the portfolio source needs it.
func NewPipeline(cfg *config.Config, custodian ports.WalletCustodian, log zerolog.Logger) (*Pipeline, error) {
	pcfg := cfg.Pipeline

	var portfolio ports.PortfolioProvider
	switch pcfg.PortfolioSource {
	case PortfolioCustodian:
		if custodian == nil {
			return nil, fmt.Errorf("portfolio source %q needs circle.api_key", pcfg.PortfolioSource)
		}
		portfolio = service.NewCustodianPortfolioProvider(custodian, Prices(pcfg.Prices), log)
	case PortfolioStatic, "":
		portfolio = service.NewStaticPortfolioProvider()
	default:
		return nil, fmt.Errorf("unknown portfolio source %q", pcfg.PortfolioSource)
	}

	var executor ports.TransactionExecutor
	switch pcfg.ExecutorMode {
	case ExecutorCustodian, "":
		if custodian == nil {
			return nil, fmt.Errorf("executor mode %q needs circle.api_key", ExecutorCustodian)
		}
		executor = service.NewCustodianExecutor(custodian, service.ExecutorConfig{
			DefaultUserID:     pcfg.DefaultUserID,
			DefaultBlockchain: cfg.Circle.DefaultBlockchain,
			FeeLevel:          domain.FeeLevel(strings.ToUpper(cfg.Circle.FeeLevel)),
			TokenAddresses:    service.NewTokenAddressBook(cfg.Circle.TokenAddresses),
		}, log)
	case ExecutorSimulated:
		executor = service.NewSimulatedExecutor(log)
	default:
		return nil, fmt.Errorf("unknown executor mode %q", pcfg.ExecutorMode)
	}

	signingSecret, err := service.ResolveKey(cfg.Security.SigningSecret, cfg.Security.MasterKey, service.KeyPurposeAuditSigning)
	if err != nil {
		return nil, fmt.Errorf("resolving audit signing key: %w", err)
	}

	retry := service.DefaultParserRetryPolicy()
	retry.MaxAttempts = pcfg.ParserRetry.MaxAttempts
	if pcfg.ParserRetry.BaseDelay > 0 {
		retry.BaseDelay = pcfg.ParserRetry.BaseDelay
	}

	parser := service.NewRuleParser()
	pipeline := service.NewPipeline(
		parser,
		portfolio,
		service.NewRuleRiskEvaluator(RiskLimits(pcfg.Risk)),
		service.NewRuleSecurityValidator(pcfg.Security.RequireKnownAction),
		executor,
		service.NewSignedAuditor(service.NewHMACSignatureService(), signingSecret),
		map[domain.Stage]service.RetryPolicy{domain.StageParse: retry},
		log,
	)
	return &Pipeline{PipelineImpl: pipeline, Parser: parser}, nil
}
