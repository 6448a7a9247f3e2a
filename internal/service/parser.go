package service

import (
	"context"
	"regexp"
	"strings"

	"voicevault-gateway/internal/core/domain"

	"github.com/shopspring/decimal"
)

var (
	percentPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	amountPattern      = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)
	destinationPattern = regexp.MustCompile(`0x[a-f0-9]{6,}`)
)

var actionPrefixes = []struct {
	prefix string
	action domain.Action
}{
	{"buy ", domain.ActionBuy},
	{"sell ", domain.ActionSell},
	{"transfer ", domain.ActionTransfer},
}

// assetPatterns is checked in order; the first whole-word match wins.
var assetPatterns = []struct {
	asset   domain.Asset
	pattern *regexp.Regexp
}{
	{domain.AssetETH, regexp.MustCompile(`\beth\b`)},
	{domain.AssetBTC, regexp.MustCompile(`\bbtc\b`)},
	{domain.AssetUSDC, regexp.MustCompile(`\busdc\b`)},
}

// RuleParser implements ports.CommandParser with fixed detection rules.
type RuleParser struct{}

// NewRuleParser creates a new RuleParser.
func NewRuleParser() *RuleParser {
	return &RuleParser{}
}

// Parse never fails; the error return exists for parsers backed by a remote model.
func (p *RuleParser) Parse(_ context.Context, text string) (domain.Intent, error) {
	return ParseCommand(text), nil
}

// ParseCommand extracts an Intent from free text. Undetected fields stay
// unset and RawText always holds the input verbatim.
func ParseCommand(raw string) domain.Intent {
	intent := domain.Intent{RawText: raw}
	text := strings.ToLower(strings.TrimSpace(raw))

	for _, ap := range actionPrefixes {
		if strings.HasPrefix(text, ap.prefix) {
			intent.Action = ap.action
			break
		}
	}

	if m := percentPattern.FindStringSubmatch(text); m != nil {
		intent.Percent = parseDecimal(m[1])
	}

	// May pick up the percent's numeral when no other number precedes it.
	if m := amountPattern.FindStringSubmatch(text); m != nil {
		intent.Amount = parseDecimal(m[1])
	}

	for _, ap := range assetPatterns {
		if ap.pattern.MatchString(text) {
			intent.Asset = ap.asset
			break
		}
	}

	intent.Destination = destinationPattern.FindString(text)

	return intent
}

func parseDecimal(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
