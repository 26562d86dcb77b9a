// Package marketdata refreshes quotes, exchange rates and the country-risk
// index on a schedule and publishes each value as a market event.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alert-notification-service/internal/db"
	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/metrics"
	"alert-notification-service/internal/models"
	"alert-notification-service/internal/utils"
)

// ErrNoRateAvailable means neither the live provider nor persistence had a value.
var ErrNoRateAvailable = errors.New("no market value available")

// Store is the persistence the refresh job reads and writes.
type Store interface {
	ListTrackedInstruments(ctx context.Context, group models.InstrumentGroup) ([]models.Instrument, error)
	SaveQuote(ctx context.Context, q models.Quote) error
	SaveDollarRate(ctx context.Context, r models.DollarRate) error
	LatestDollarRate(ctx context.Context, rateType string) (models.DollarRate, error)
	SaveRiskIndex(ctx context.Context, r models.RiskIndex) error
	LatestRiskIndex(ctx context.Context) (models.RiskIndex, error)
}

// Ingestor publishes through the idempotency guard.
type Ingestor interface {
	Ingest(ctx context.Context, p models.EventPayload, correlationID string) (bool, error)
}

type Options struct {
	Retry      utils.Backoff
	ChunkSize  int
	ChunkDelay time.Duration
	RateTypes  []string
}

type Service struct {
	store     Store
	primary   QuoteProvider
	secondary QuoteProvider
	rates     RateProvider
	ingestor  Ingestor
	opts      Options
	logger    *logging.Logger
	metrics   *metrics.Metrics
	pause     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

// NewService wires the refresh job. secondary may be nil.
func NewService(store Store, primary, secondary QuoteProvider, rates RateProvider, ingestor Ingestor, opts Options, logger *logging.Logger, m *metrics.Metrics) *Service {
	if opts.ChunkSize < 1 {
		opts.ChunkSize = 10
	}
	return &Service{
		store:     store,
		primary:   primary,
		secondary: secondary,
		rates:     rates,
		ingestor:  ingestor,
		opts:      opts,
		logger:    logger,
		metrics:   m,
		pause:     utils.Sleep,
		now:       time.Now,
	}
}

// RefreshQuotes walks every tracked group in chunks and publishes one
// market.quote.updated per instrument that either provider could price.
// Instruments that fail on both providers are skipped. It returns the number
// of quotes published.
func (s *Service) RefreshQuotes(ctx context.Context) (int, error) {
	var (
		published int
		errs      []error
	)
	for _, group := range models.InstrumentGroups() {
		instruments, err := s.store.ListTrackedInstruments(ctx, group)
		if err != nil {
			s.logger.Errorf("Failed to list %s instruments: %v", group, err)
			errs = append(errs, err)
			continue
		}
		n, err := s.refreshGroup(ctx, group, instruments)
		published += n
		if err != nil {
			return published, err
		}
	}
	s.logger.Infof("Quote refresh finished: %d published", published)
	return published, errors.Join(errs...)
}

func (s *Service) refreshGroup(ctx context.Context, group models.InstrumentGroup, instruments []models.Instrument) (int, error) {
	published := 0
	for start := 0; start < len(instruments); start += s.opts.ChunkSize {
		if start > 0 {
			if err := s.pause(ctx, s.opts.ChunkDelay); err != nil {
				return published, err
			}
		}
		if err := ctx.Err(); err != nil {
			return published, err
		}

		end := start + s.opts.ChunkSize
		if end > len(instruments) {
			end = len(instruments)
		}
		for _, inst := range instruments[start:end] {
			q, ok := s.fetchQuote(ctx, inst)
			if !ok {
				continue
			}
			if err := s.store.SaveQuote(ctx, q); err != nil {
				s.logger.Errorf("Failed to persist quote %s: %v", q.Symbol, err)
			}
			if s.publish(ctx, q.Payload(), "quote") {
				published++
			}
		}
		s.logger.Debugf("Refreshed %s chunk %d-%d", group, start, end)
	}
	return published, nil
}

// fetchQuote tries the primary provider with retries, then the secondary once
// with the same retry budget.
func (s *Service) fetchQuote(ctx context.Context, inst models.Instrument) (models.Quote, bool) {
	for _, p := range []QuoteProvider{s.primary, s.secondary} {
		if p == nil {
			continue
		}
		var q models.Quote
		err := utils.Retry(ctx, s.logger, s.opts.Retry, fmt.Sprintf("quote %s via %s", inst.Symbol, p.Name()), func() error {
			var err error
			q, err = p.Quote(ctx, inst)
			return err
		})
		if err == nil {
			return q, true
		}
		if ctx.Err() != nil {
			break
		}
	}
	s.metrics.MarketRefresh("quote", "skipped")
	s.logger.Warnf("No provider could price %s (%s), skipping", inst.Symbol, inst.Group)
	return models.Quote{}, false
}

// RefreshDollarRates refreshes every configured rate type. A type with neither a
// live nor a persisted value contributes ErrNoRateAvailable to the joined error.
func (s *Service) RefreshDollarRates(ctx context.Context) error {
	var errs []error
	for _, rateType := range s.opts.RateTypes {
		if err := s.refreshDollarRate(ctx, rateType); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) refreshDollarRate(ctx context.Context, rateType string) error {
	var live models.DollarRate
	err := utils.Retry(ctx, s.logger, s.opts.Retry, "dollar rate "+rateType, func() error {
		var err error
		live, err = s.rates.DollarRate(ctx, rateType)
		return err
	})
	if err == nil {
		if err := s.store.SaveDollarRate(ctx, live); err != nil {
			s.logger.Errorf("Failed to persist dollar rate %s: %v", rateType, err)
		}
		s.publish(ctx, live.Payload(false), "dollar")
		return nil
	}

	last, lerr := s.store.LatestDollarRate(ctx, rateType)
	if lerr != nil {
		s.metrics.MarketRefresh("dollar", "unavailable")
		if errors.Is(lerr, db.ErrNotFound) {
			return fmt.Errorf("dollar rate %s: %w", rateType, ErrNoRateAvailable)
		}
		return fmt.Errorf("dollar rate %s: %w: %v", rateType, ErrNoRateAvailable, lerr)
	}
	s.logger.Warnf("Serving persisted dollar rate %s from %s: %v", rateType, last.FetchedAt.Format(time.RFC3339), err)
	s.publish(ctx, s.stale(last.Payload(true)), "dollar")
	return nil
}

// RefreshRiskIndex refreshes the country-risk index with the same fallback as dollar rates.
func (s *Service) RefreshRiskIndex(ctx context.Context) error {
	var live models.RiskIndex
	err := utils.Retry(ctx, s.logger, s.opts.Retry, "risk index", func() error {
		var err error
		live, err = s.rates.RiskIndex(ctx)
		return err
	})
	if err == nil {
		if err := s.store.SaveRiskIndex(ctx, live); err != nil {
			s.logger.Errorf("Failed to persist risk index: %v", err)
		}
		s.publish(ctx, live.Payload(false), "risk")
		return nil
	}

	last, lerr := s.store.LatestRiskIndex(ctx)
	if lerr != nil {
		s.metrics.MarketRefresh("risk", "unavailable")
		if errors.Is(lerr, db.ErrNotFound) {
			return fmt.Errorf("risk index: %w", ErrNoRateAvailable)
		}
		return fmt.Errorf("risk index: %w: %v", ErrNoRateAvailable, lerr)
	}
	s.logger.Warnf("Serving persisted risk index from %s: %v", last.FetchedAt.Format(time.RFC3339), err)
	s.publish(ctx, s.stale(last.Payload(true)), "risk")
	return nil
}

// stale gives a republished persisted value a fresh event id.
func (s *Service) stale(p models.EventPayload) models.EventPayload {
	p.EventID = fmt.Sprintf("%s-stale-%d", p.EventID, s.now().UnixNano())
	return p
}

func (s *Service) publish(ctx context.Context, p models.EventPayload, source string) bool {
	duplicate, err := s.ingestor.Ingest(ctx, p, p.EventID)
	switch {
	case err != nil:
		s.metrics.MarketRefresh(source, "publish_failed")
		s.logger.Errorf("Failed to publish %s: %v", p.EventID, err)
		return false
	case duplicate:
		s.metrics.MarketRefresh(source, "duplicate")
		return false
	default:
		s.metrics.MarketRefresh(source, "published")
		return true
	}
}
