package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentGroup is a tracked family of instruments refreshed together.
type InstrumentGroup string

const (
	GroupStock  InstrumentGroup = "STOCK"
	GroupCedear InstrumentGroup = "CEDEAR"
	GroupBond   InstrumentGroup = "BOND"
)

// InstrumentGroups lists every group the refresh job walks.
func InstrumentGroups() []InstrumentGroup {
	return []InstrumentGroup{GroupStock, GroupCedear, GroupBond}
}

type Instrument struct {
	AssetID string          `json:"asset_id"`
	Symbol  string          `json:"symbol"`
	Group   InstrumentGroup `json:"group"`
}

type Quote struct {
	AssetID       string          `json:"asset_id"`
	Symbol        string          `json:"symbol"`
	Group         InstrumentGroup `json:"group"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	PctChange     decimal.Decimal `json:"pct_change"`
	Source        string          `json:"source"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// DollarRate is one variant of the local-currency/USD exchange rate, keyed by RateType
// (for example "oficial", "blue", "mep").
type DollarRate struct {
	RateType  string          `json:"rate_type"`
	Buy       decimal.Decimal `json:"buy"`
	Sell      decimal.Decimal `json:"sell"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// RiskIndex is the country-risk spread in basis points.
type RiskIndex struct {
	Value     decimal.Decimal `json:"value"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// MarketSource names the category of a market change fed to alert evaluation.
type MarketSource string

const (
	SourceQuote        MarketSource = "QUOTE"
	SourceCurrencyRate MarketSource = "CURRENCY_RATE"
	SourceRiskIndex    MarketSource = "RISK_INDEX"
)

// MarketStatus is a derived view of whether the local market is trading.
type MarketStatus struct {
	Open        bool      `json:"open"`
	LastQuoteAt time.Time `json:"last_quote_at"`
	Tracked     int       `json:"tracked"`
	ComputedAt  time.Time `json:"computed_at"`
}

// TopMovers is a derived view of the largest gainers and losers.
type TopMovers struct {
	Gainers    []Quote   `json:"gainers"`
	Losers     []Quote   `json:"losers"`
	ComputedAt time.Time `json:"computed_at"`
}

// Metadata keys of market events.
const (
	MetaAssetID   = "assetId"
	MetaSymbol    = "symbol"
	MetaGroup     = "group"
	MetaPrice     = "price"
	MetaPrevClose = "previousClose"
	MetaPctChange = "pctChange"
	MetaRateType  = "rateType"
	MetaBuy       = "buy"
	MetaSell      = "sell"
	MetaValue     = "value"
	MetaSource    = "source"
	MetaStale     = "stale"
)

// Payload builds the market.quote.updated event for q.
func (q Quote) Payload() EventPayload {
	return EventPayload{
		EventID:   fmt.Sprintf("quote-%s-%d", q.AssetID, q.FetchedAt.UnixNano()),
		EventType: EventTypeMarketQuote,
		Metadata: map[string]interface{}{
			MetaAssetID:   q.AssetID,
			MetaSymbol:    q.Symbol,
			MetaGroup:     string(q.Group),
			MetaPrice:     q.Price.String(),
			MetaPrevClose: q.PreviousClose.String(),
			MetaPctChange: q.PctChange.String(),
			MetaSource:    q.Source,
		},
		OccurredAt: q.FetchedAt,
	}
}

// Payload builds the market.dollar.updated event for r. stale marks a value
// served from persistence after the live provider failed.
func (r DollarRate) Payload(stale bool) EventPayload {
	return EventPayload{
		EventID:   fmt.Sprintf("dollar-%s-%d", r.RateType, r.FetchedAt.UnixNano()),
		EventType: EventTypeMarketDollar,
		Metadata: map[string]interface{}{
			MetaRateType: r.RateType,
			MetaBuy:      r.Buy.String(),
			MetaSell:     r.Sell.String(),
			MetaSource:   r.Source,
			MetaStale:    stale,
		},
		OccurredAt: r.FetchedAt,
	}
}

func (r RiskIndex) Payload(stale bool) EventPayload {
	return EventPayload{
		EventID:   fmt.Sprintf("risk-%d", r.FetchedAt.UnixNano()),
		EventType: EventTypeMarketRisk,
		Metadata: map[string]interface{}{
			MetaValue:  r.Value.String(),
			MetaSource: r.Source,
			MetaStale:  stale,
		},
		OccurredAt: r.FetchedAt,
	}
}
