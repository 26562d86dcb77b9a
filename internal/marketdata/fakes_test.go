package marketdata

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"alert-notification-service/internal/db"
	"alert-notification-service/internal/models"
)

type fakeStore struct {
	mu          sync.Mutex
	instruments map[models.InstrumentGroup][]models.Instrument
	quotes      []models.Quote
	dollar      map[string]models.DollarRate
	risk        *models.RiskIndex
	listErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		instruments: map[models.InstrumentGroup][]models.Instrument{},
		dollar:      map[string]models.DollarRate{},
	}
}

func (s *fakeStore) ListTrackedInstruments(ctx context.Context, g models.InstrumentGroup) ([]models.Instrument, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.instruments[g], nil
}

func (s *fakeStore) SaveQuote(ctx context.Context, q models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes = append(s.quotes, q)
	return nil
}

func (s *fakeStore) LatestQuotes(ctx context.Context) ([]models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Quote(nil), s.quotes...), nil
}

func (s *fakeStore) SaveDollarRate(ctx context.Context, r models.DollarRate) error {
	s.dollar[r.RateType] = r
	return nil
}

func (s *fakeStore) LatestDollarRate(ctx context.Context, rateType string) (models.DollarRate, error) {
	r, ok := s.dollar[rateType]
	if !ok {
		return models.DollarRate{}, db.ErrNotFound
	}
	return r, nil
}

func (s *fakeStore) SaveRiskIndex(ctx context.Context, r models.RiskIndex) error {
	s.risk = &r
	return nil
}

func (s *fakeStore) LatestRiskIndex(ctx context.Context) (models.RiskIndex, error) {
	if s.risk == nil {
		return models.RiskIndex{}, db.ErrNotFound
	}
	return *s.risk, nil
}

var errVendorDown = errors.New("503 Service Unavailable")

// fakeQuotes prices every symbol in prices; others fail.
type fakeQuotes struct {
	name   string
	prices map[string]float64
	calls  map[string]int
	at     time.Time
}

func newFakeQuotes(name string, prices map[string]float64) *fakeQuotes {
	return &fakeQuotes{name: name, prices: prices, calls: map[string]int{}, at: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)}
}

func (f *fakeQuotes) Name() string { return f.name }

func (f *fakeQuotes) Quote(ctx context.Context, inst models.Instrument) (models.Quote, error) {
	f.calls[inst.Symbol]++
	p, ok := f.prices[inst.Symbol]
	if !ok {
		return models.Quote{}, errVendorDown
	}
	return models.Quote{
		AssetID:   inst.AssetID,
		Symbol:    inst.Symbol,
		Group:     inst.Group,
		Price:     mustDecimal(p),
		Source:    f.name,
		FetchedAt: f.at,
	}, nil
}

type fakeRates struct {
	dollar map[string]models.DollarRate
	risk   *models.RiskIndex
	calls  int
}

func (f *fakeRates) DollarRate(ctx context.Context, rateType string) (models.DollarRate, error) {
	f.calls++
	r, ok := f.dollar[rateType]
	if !ok {
		return models.DollarRate{}, errVendorDown
	}
	return r, nil
}

func (f *fakeRates) RiskIndex(ctx context.Context) (models.RiskIndex, error) {
	f.calls++
	if f.risk == nil {
		return models.RiskIndex{}, errVendorDown
	}
	return *f.risk, nil
}

type fakeIngestor struct {
	mu     sync.Mutex
	seen   map[string]bool
	events []models.EventPayload
}

func (f *fakeIngestor) Ingest(ctx context.Context, p models.EventPayload, correlationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[p.EventID] {
		return true, nil
	}
	f.seen[p.EventID] = true
	f.events = append(f.events, p)
	return false, nil
}

type fakeCache struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
	gets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) *redis.StringCmd {
	c.gets++
	if c.getErr != nil {
		return redis.NewStringResult("", c.getErr)
	}
	v, ok := c.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		c.values[key] = string(v)
	case string:
		c.values[key] = v
	}
	c.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}
