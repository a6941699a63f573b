package position

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
	"github.com/Koolhand111/eva-finance/internal/metrics"
	"github.com/Koolhand111/eva-finance/internal/store"
)

// Runner owns the two paper-position operations: entry and update. It does
// no scheduling of its own; `serve positions` runs both every 12 hours, not
// on a weekly or weekday-close schedule.
type Runner struct {
	cfg       config.PositionConfig
	positions store.PaperPositionStore
	tickers   store.BrandTickerStore
	events    store.SignalEventStore
	prices    PriceClient
	metrics   *metrics.Registry
	log       zerolog.Logger
}

// SetMetrics attaches a Prometheus registry; nil (the default) disables
// instrumentation.
func (r *Runner) SetMetrics(m *metrics.Registry) { r.metrics = m }

// New constructs a Runner.
func New(cfg config.PositionConfig, positions store.PaperPositionStore, tickers store.BrandTickerStore, events store.SignalEventStore, prices PriceClient, log zerolog.Logger) *Runner {
	return &Runner{cfg: cfg, positions: positions, tickers: tickers, events: events, prices: prices, log: log}
}

// RunEntries opens a position for every RECOMMENDATION_ELIGIBLE event on
// day whose brand resolves to a material ticker and has no existing
// position (spec.md §4.9 Entry).
func (r *Runner) RunEntries(ctx context.Context, day time.Time) (int, error) {
	elig, err := r.events.ListByDay(ctx, domain.EventRecommendationEligible, day)
	if err != nil {
		return 0, domain.NewStoreTransient("position", "list eligible events", err)
	}

	opened := 0
	for _, e := range elig {
		if err := r.openOne(ctx, e); err != nil {
			r.log.Error().Err(err).Int64("event_id", e.ID).Str("brand", e.Brand).Msg("position entry failed")
			continue
		}
		opened++
	}
	return opened, nil
}

func (r *Runner) openOne(ctx context.Context, event domain.SignalEvent) error {
	existing, err := r.positions.GetByEventID(ctx, event.ID)
	if err != nil {
		return domain.NewStoreTransient("position", "get existing position", err)
	}
	if existing != nil {
		return nil
	}

	mapping, err := r.tickers.Lookup(ctx, event.Brand)
	if err != nil {
		return domain.NewStoreTransient("position", "ticker lookup", err)
	}
	if mapping == nil || mapping.Ticker == nil || !mapping.Material {
		return nil
	}

	price, err := r.prices.CurrentPrice(ctx, *mapping.Ticker)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = r.positions.Insert(ctx, domain.PaperPosition{
		EventID:      event.ID,
		Brand:        event.Brand,
		Tag:          event.Tag,
		Ticker:       *mapping.Ticker,
		EntryDate:    now,
		EntryPrice:   price,
		CurrentPrice: price,
		SizeDollars:  r.cfg.SizeDollars,
		Status:       domain.PositionOpen,
	})
	if err != nil {
		return domain.NewStoreTransient("position", "insert position", err)
	}

	r.log.Info().Int64("event_id", event.ID).Str("ticker", *mapping.Ticker).Float64("entry_price", price).Msg("paper position opened")
	return nil
}

// RunUpdates refreshes every open position's price and closes any that hit
// an exit rule (spec.md §4.9 Update/Exit).
func (r *Runner) RunUpdates(ctx context.Context) (int, error) {
	open, err := r.positions.ListOpen(ctx)
	if err != nil {
		return 0, domain.NewStoreTransient("position", "list open positions", err)
	}

	closed := 0
	now := time.Now().UTC()
	for _, p := range open {
		price, err := r.prices.CurrentPrice(ctx, p.Ticker)
		if err != nil {
			r.log.Warn().Err(err).Int64("position_id", p.ID).Str("ticker", p.Ticker).Msg("price fetch failed, skipping update")
			continue
		}

		updated := applyUpdate(p, price, now, r.cfg)
		if err := r.positions.Update(ctx, updated); err != nil {
			r.log.Error().Err(err).Int64("position_id", p.ID).Msg("position update failed")
			continue
		}
		if updated.Status == domain.PositionClosed {
			closed++
			r.log.Info().Int64("position_id", p.ID).Str("exit_reason", string(updated.ExitReason)).Float64("return_pct", updated.ReturnPct).Msg("paper position closed")
			if r.metrics != nil {
				r.metrics.ClosedPositions.WithLabelValues(string(updated.ExitReason)).Inc()
				r.metrics.RealizedPnLTotal.Add(updated.ReturnDollar)
			}
		}
	}
	if r.metrics != nil {
		if remaining, err := r.positions.ListOpen(ctx); err == nil {
			r.metrics.OpenPositions.Set(float64(len(remaining)))
		}
	}
	return closed, nil
}
