package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
)

func TestLatestDollarRate(t *testing.T) {
	d, mock := newMockDB(t)
	fetched := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM dollar_rates").WithArgs("blue").WillReturnRows(
		pgxmock.NewRows([]string{"rate_type", "buy", "sell", "source", "fetched_at"}).
			AddRow("blue", "1180.50", "1200", "primary", fetched),
	)

	r, err := d.LatestDollarRate(context.Background(), "blue")
	if err != nil {
		t.Fatalf("LatestDollarRate() error = %v", err)
	}
	if !r.Buy.Equal(decimal.RequireFromString("1180.5")) || !r.Sell.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("rate = %+v", r)
	}
	if !r.FetchedAt.Equal(fetched) || r.Source != "primary" {
		t.Errorf("rate = %+v", r)
	}
}

func TestLatestDollarRate_NoneIsNotFound(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectQuery("FROM dollar_rates").WithArgs("ccl").WillReturnError(pgx.ErrNoRows)

	if _, err := d.LatestDollarRate(context.Background(), "ccl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestDollarRate() error = %v, want ErrNotFound", err)
	}
}

func TestLatestRiskIndex_ScanFailureIsNotNotFound(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectQuery("FROM risk_index").WillReturnError(errors.New("timeout"))

	_, err := d.LatestRiskIndex(context.Background())
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("LatestRiskIndex() error = %v, want a plain failure", err)
	}
}
