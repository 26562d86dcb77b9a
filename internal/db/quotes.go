package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"alert-notification-service/internal/models"
)

// ListTrackedInstruments returns the active instruments of a refresh group.
func (d *DB) ListTrackedInstruments(ctx context.Context, group models.InstrumentGroup) ([]models.Instrument, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT asset_id, symbol, grp FROM tracked_instruments
	WHERE grp = $1 AND active = TRUE
	ORDER BY symbol`, string(group))
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments for group %s: %w", group, err)
	}
	defer rows.Close()

	var list []models.Instrument
	for rows.Next() {
		var (
			in  models.Instrument
			grp string
		)
		if err := rows.Scan(&in.AssetID, &in.Symbol, &grp); err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		in.Group = models.InstrumentGroup(grp)
		list = append(list, in)
	}
	return list, rows.Err()
}

// SaveQuote upserts the latest quote of an asset.
func (d *DB) SaveQuote(ctx context.Context, q models.Quote) error {
	_, err := d.Pool.Exec(ctx, `
	INSERT INTO quotes (asset_id, symbol, grp, price, previous_close, pct_change, source, fetched_at)
	VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8)
	ON CONFLICT (asset_id) DO UPDATE SET
		symbol = EXCLUDED.symbol,
		grp = EXCLUDED.grp,
		price = EXCLUDED.price,
		previous_close = EXCLUDED.previous_close,
		pct_change = EXCLUDED.pct_change,
		source = EXCLUDED.source,
		fetched_at = EXCLUDED.fetched_at`,
		q.AssetID, q.Symbol, string(q.Group), q.Price.String(), q.PreviousClose.String(),
		q.PctChange.String(), q.Source, q.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to save quote for %s: %w", q.AssetID, err)
	}
	return nil
}

// LatestQuotes returns every persisted quote.
func (d *DB) LatestQuotes(ctx context.Context) ([]models.Quote, error) {
	rows, err := d.Pool.Query(ctx, `
	SELECT asset_id, symbol, grp, price::text, previous_close::text, pct_change::text, source, fetched_at
	FROM quotes`)
	if err != nil {
		return nil, fmt.Errorf("failed to load quotes: %w", err)
	}
	defer rows.Close()

	var list []models.Quote
	for rows.Next() {
		var (
			q                  models.Quote
			grp                string
			price, prev, delta string
		)
		if err := rows.Scan(&q.AssetID, &q.Symbol, &grp, &price, &prev, &delta, &q.Source, &q.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		q.Group = models.InstrumentGroup(grp)
		if q.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", q.AssetID, err)
		}
		if q.PreviousClose, err = decimal.NewFromString(prev); err != nil {
			return nil, fmt.Errorf("invalid previous close for %s: %w", q.AssetID, err)
		}
		if q.PctChange, err = decimal.NewFromString(delta); err != nil {
			return nil, fmt.Errorf("invalid pct change for %s: %w", q.AssetID, err)
		}
		list = append(list, q)
	}
	return list, rows.Err()
}

func (d *DB) SaveDollarRate(ctx context.Context, r models.DollarRate) error {
	_, err := d.Pool.Exec(ctx, `
	INSERT INTO dollar_rates (rate_type, buy, sell, source, fetched_at)
	VALUES ($1, $2::numeric, $3::numeric, $4, $5)`,
		r.RateType, r.Buy.String(), r.Sell.String(), r.Source, r.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to save dollar rate %s: %w", r.RateType, err)
	}
	return nil
}

// LatestDollarRate returns the newest persisted rate of a type or ErrNotFound.
func (d *DB) LatestDollarRate(ctx context.Context, rateType string) (models.DollarRate, error) {
	var (
		r         models.DollarRate
		buy, sell string
	)
	err := d.Pool.QueryRow(ctx, `
	SELECT rate_type, buy::text, sell::text, source, fetched_at
	FROM dollar_rates WHERE rate_type = $1
	ORDER BY fetched_at DESC LIMIT 1`, rateType).Scan(&r.RateType, &buy, &sell, &r.Source, &r.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DollarRate{}, ErrNotFound
		}
		return models.DollarRate{}, fmt.Errorf("failed to load dollar rate %s: %w", rateType, err)
	}
	if r.Buy, err = decimal.NewFromString(buy); err != nil {
		return models.DollarRate{}, fmt.Errorf("invalid buy rate %q: %w", buy, err)
	}
	if r.Sell, err = decimal.NewFromString(sell); err != nil {
		return models.DollarRate{}, fmt.Errorf("invalid sell rate %q: %w", sell, err)
	}
	return r, nil
}

func (d *DB) SaveRiskIndex(ctx context.Context, r models.RiskIndex) error {
	_, err := d.Pool.Exec(ctx, `
	INSERT INTO risk_index (value, source, fetched_at) VALUES ($1::numeric, $2, $3)`,
		r.Value.String(), r.Source, r.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to save risk index: %w", err)
	}
	return nil
}

// LatestRiskIndex returns the newest persisted risk index or ErrNotFound.
func (d *DB) LatestRiskIndex(ctx context.Context) (models.RiskIndex, error) {
	var (
		r     models.RiskIndex
		value string
	)
	err := d.Pool.QueryRow(ctx, `
	SELECT value::text, source, fetched_at FROM risk_index
	ORDER BY fetched_at DESC LIMIT 1`).Scan(&value, &r.Source, &r.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RiskIndex{}, ErrNotFound
		}
		return models.RiskIndex{}, fmt.Errorf("failed to load risk index: %w", err)
	}
	if r.Value, err = decimal.NewFromString(value); err != nil {
		return models.RiskIndex{}, fmt.Errorf("invalid risk index %q: %w", value, err)
	}
	return r, nil
}
