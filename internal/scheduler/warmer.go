// Package scheduler keeps the weather cache warm for a fixed set of cities.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/agroclima/internal/meteo"
)

const (
	maxConcurrent = 4
	cityTimeout   = 30 * time.Second
)

// Refresher fetches a city and stores the result. *api.Handlers satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, city string) (*meteo.CityWeather, error)
}

// Warmer refreshes every configured city on a cron schedule.
type Warmer struct {
	cron    *cron.Cron
	spec    string
	cities  []string
	refresh Refresher
	log     *slog.Logger
}

// NewWarmer validates spec (standard five-field cron or an @descriptor such as
// "@every 10m") and returns an unstarted Warmer.
func NewWarmer(spec string, cities []string, refresh Refresher, log *slog.Logger) (*Warmer, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid warm schedule %q: %w", spec, err)
	}
	return &Warmer{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		spec:    spec,
		cities:  cities,
		refresh: refresh,
		log:     log,
	}, nil
}

// Start schedules the warm job. With no cities it does nothing.
func (w *Warmer) Start(ctx context.Context) error {
	if len(w.cities) == 0 {
		w.log.Info("cache warmer disabled: no cities configured")
		return nil
	}
	if _, err := w.cron.AddFunc(w.spec, func() { w.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("scheduling warm job: %w", err)
	}
	w.cron.Start()
	w.log.Info("cache warmer started", "schedule", w.spec, "cities", len(w.cities))
	return nil
}

// Stop halts scheduling and waits for a running job to finish.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
}

// RunOnce refreshes every city with at most four in flight. It returns the
// number of cities that failed; failures are logged and never abort the run.
func (w *Warmer) RunOnce(ctx context.Context) int {
	results := make([]error, len(w.cities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, city := range w.cities {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, cityTimeout)
			defer cancel()
			_, results[i] = w.refresh.Refresh(cctx, city)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range results {
		if err != nil {
			failed++
			w.log.Warn("warming city failed", "city", w.cities[i], "err", err)
		}
	}
	w.log.Info("cache warm run finished", "cities", len(w.cities), "failed", failed)
	return failed
}
