package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/models"
)

const (
	statusKey    = "market:status"
	topMoversKey = "market:top-movers"
	topMoversN   = 5
)

// Cache is the subset of a redis client the views need.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type QuoteReader interface {
	LatestQuotes(ctx context.Context) ([]models.Quote, error)
}

type ViewConfig struct {
	TTL       time.Duration
	Location  *time.Location
	OpenHour  int
	CloseHour int
}

// Views serves derived market views read-through a redis cache. Cache failures
// degrade to computing from the database.
type Views struct {
	cache  Cache
	quotes QuoteReader
	cfg    ViewConfig
	logger *logging.Logger
	now    func() time.Time
}

func NewViews(cache Cache, quotes QuoteReader, cfg ViewConfig, logger *logging.Logger) *Views {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Views{cache: cache, quotes: quotes, cfg: cfg, logger: logger, now: time.Now}
}

// MarketStatus reports whether the local market is trading and how fresh the quotes are.
func (v *Views) MarketStatus(ctx context.Context) (models.MarketStatus, error) {
	var status models.MarketStatus
	err := v.readThrough(ctx, statusKey, &status, func(quotes []models.Quote) interface{} {
		now := v.now()
		status = models.MarketStatus{
			Open:       v.isOpen(now),
			Tracked:    len(quotes),
			ComputedAt: now.UTC(),
		}
		for _, q := range quotes {
			if q.FetchedAt.After(status.LastQuoteAt) {
				status.LastQuoteAt = q.FetchedAt
			}
		}
		return status
	})
	return status, err
}

// TopMovers returns the largest gainers and losers by percent change.
func (v *Views) TopMovers(ctx context.Context) (models.TopMovers, error) {
	var movers models.TopMovers
	err := v.readThrough(ctx, topMoversKey, &movers, func(quotes []models.Quote) interface{} {
		sorted := append([]models.Quote(nil), quotes...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].PctChange.GreaterThan(sorted[j].PctChange)
		})
		movers = models.TopMovers{Gainers: []models.Quote{}, Losers: []models.Quote{}, ComputedAt: v.now().UTC()}
		for _, q := range sorted {
			if len(movers.Gainers) == topMoversN || !q.PctChange.IsPositive() {
				break
			}
			movers.Gainers = append(movers.Gainers, q)
		}
		for i := len(sorted) - 1; i >= 0; i-- {
			q := sorted[i]
			if len(movers.Losers) == topMoversN || !q.PctChange.IsNegative() {
				break
			}
			movers.Losers = append(movers.Losers, q)
		}
		return movers
	})
	return movers, err
}

// readThrough fills dst from the cache, or from compute over the latest quotes
// on a miss and stores the result for the configured TTL.
func (v *Views) readThrough(ctx context.Context, key string, dst interface{}, compute func([]models.Quote) interface{}) error {
	raw, err := v.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, dst); err == nil {
			return nil
		}
		v.logger.Warnf("Discarding undecodable cache entry %s", key)
	case errors.Is(err, redis.Nil):
	default:
		v.logger.Warnf("Cache read %s failed: %v", key, err)
	}

	quotes, err := v.quotes.LatestQuotes(ctx)
	if err != nil {
		return err
	}
	value := compute(quotes)

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := v.cache.Set(ctx, key, encoded, v.cfg.TTL).Err(); err != nil {
		v.logger.Warnf("Cache write %s failed: %v", key, err)
	}
	return nil
}

// isOpen is true on weekdays between the open and close hour, local time.
func (v *Views) isOpen(at time.Time) bool {
	local := at.In(v.cfg.Location)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	h := local.Hour()
	return h >= v.cfg.OpenHour && h < v.cfg.CloseHour
}
