package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"alert-notification-service/internal/models"
	"alert-notification-service/internal/utils"
)

// QuoteProvider fetches the live quote of one instrument.
type QuoteProvider interface {
	Name() string
	Quote(ctx context.Context, inst models.Instrument) (models.Quote, error)
}

// RateProvider fetches the live exchange rates and country-risk index.
type RateProvider interface {
	DollarRate(ctx context.Context, rateType string) (models.DollarRate, error)
	RiskIndex(ctx context.Context) (models.RiskIndex, error)
}

var hundred = decimal.NewFromInt(100)

// HTTPProvider talks to a JSON market data vendor:
//
//	GET {base}/quotes/{group}/{symbol} -> {"price", "previousClose", "pctChange"}
//	GET {base}/dollar/{rateType}       -> {"buy", "sell"}
//	GET {base}/risk                    -> {"value"}
//
// Numbers may be sent as JSON numbers or strings.
type HTTPProvider struct {
	name    string
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewHTTPProvider(name, baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

func (p *HTTPProvider) Name() string { return p.name }

type quoteResponse struct {
	Price         decimal.Decimal     `json:"price"`
	PreviousClose decimal.Decimal     `json:"previousClose"`
	PctChange     decimal.NullDecimal `json:"pctChange"`
}

type dollarResponse struct {
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
}

type riskResponse struct {
	Value decimal.Decimal `json:"value"`
}

func (p *HTTPProvider) Quote(ctx context.Context, inst models.Instrument) (models.Quote, error) {
	endpoint := fmt.Sprintf("%s/quotes/%s/%s", p.baseURL,
		url.PathEscape(strings.ToLower(string(inst.Group))), url.PathEscape(inst.Symbol))

	var resp quoteResponse
	if err := p.get(ctx, endpoint, &resp); err != nil {
		return models.Quote{}, err
	}
	if !resp.Price.IsPositive() {
		return models.Quote{}, fmt.Errorf("%s: non-positive price %s for %s", p.name, resp.Price, inst.Symbol)
	}

	pct := resp.PctChange.Decimal
	if !resp.PctChange.Valid {
		pct = percentChange(resp.Price, resp.PreviousClose)
	}
	return models.Quote{
		AssetID:       inst.AssetID,
		Symbol:        inst.Symbol,
		Group:         inst.Group,
		Price:         resp.Price,
		PreviousClose: resp.PreviousClose,
		PctChange:     pct,
		Source:        p.name,
		FetchedAt:     p.now().UTC(),
	}, nil
}

func (p *HTTPProvider) DollarRate(ctx context.Context, rateType string) (models.DollarRate, error) {
	var resp dollarResponse
	if err := p.get(ctx, fmt.Sprintf("%s/dollar/%s", p.baseURL, url.PathEscape(rateType)), &resp); err != nil {
		return models.DollarRate{}, err
	}
	if !resp.Sell.IsPositive() {
		return models.DollarRate{}, fmt.Errorf("%s: non-positive sell rate for %s", p.name, rateType)
	}
	return models.DollarRate{
		RateType:  rateType,
		Buy:       resp.Buy,
		Sell:      resp.Sell,
		Source:    p.name,
		FetchedAt: p.now().UTC(),
	}, nil
}

func (p *HTTPProvider) RiskIndex(ctx context.Context) (models.RiskIndex, error) {
	var resp riskResponse
	if err := p.get(ctx, p.baseURL+"/risk", &resp); err != nil {
		return models.RiskIndex{}, err
	}
	return models.RiskIndex{Value: resp.Value, Source: p.name, FetchedAt: p.now().UTC()}, nil
}

func (p *HTTPProvider) get(ctx context.Context, endpoint string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	// Client errors other than throttling will not improve on retry.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return utils.Permanent(fmt.Errorf("%s error: status %d for %s", p.name, resp.StatusCode, endpoint))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s error: status %d", p.name, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", p.name, err)
	}
	return nil
}

// percentChange is (price - prev) / prev * 100; zero when prev is not positive.
func percentChange(price, prev decimal.Decimal) decimal.Decimal {
	if !prev.IsPositive() {
		return decimal.Zero
	}
	return price.Sub(prev).Div(prev).Mul(hundred).Round(4)
}
