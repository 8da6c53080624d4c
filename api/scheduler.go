/*
scheduler.go - Background application of recorded payments

PURPOSE:
  Payments recorded with apply=false (or imported by hand into the
  database) stay pending until applied. While the server runs, the
  PaymentApplier applies them on a fixed interval, oldest first.

DESIGN:
  - One goroutine driven by a ticker, first run immediately on Start
  - Each run calls app.Service.ApplyPending, which applies payments one
    transaction at a time and stops at the first failure
  - Stop waits for a run in progress to finish

USAGE:
  applier := NewPaymentApplier(svc, time.Hour, logger)
  applier.Start(ctx)
  // ... later
  applier.Stop()

SEE ALSO:
  - handlers.go: ApplyPayment endpoint (manual application)
  - app/service.go: ApplyPending
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/monotax/app"
)

// PaymentApplier periodically applies pending payments.
type PaymentApplier struct {
	Service       *app.Service
	CheckInterval time.Duration
	Logger        *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPaymentApplier creates an applier. A non-positive interval disables it.
func NewPaymentApplier(svc *app.Service, interval time.Duration, logger *slog.Logger) *PaymentApplier {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentApplier{
		Service:       svc,
		CheckInterval: interval,
		Logger:        logger,
	}
}

// Start begins the background loop. The loop ends on Stop or when ctx is done.
func (pa *PaymentApplier) Start(ctx context.Context) {
	pa.mu.Lock()
	defer pa.mu.Unlock()

	if pa.CheckInterval <= 0 {
		pa.Logger.Info("payment applier disabled")
		return
	}
	if pa.ticker != nil {
		return
	}

	pa.ticker = time.NewTicker(pa.CheckInterval)
	pa.stop = make(chan struct{})
	pa.wg.Add(1)
	go pa.run(ctx)

	pa.Logger.Info("payment applier started", "interval", pa.CheckInterval)
}

// Stop stops the loop and waits for it to exit.
func (pa *PaymentApplier) Stop() {
	pa.mu.Lock()
	defer pa.mu.Unlock()

	if pa.ticker == nil {
		return
	}
	pa.ticker.Stop()
	close(pa.stop)
	pa.wg.Wait()
	pa.ticker = nil
	pa.Logger.Info("payment applier stopped")
}

func (pa *PaymentApplier) run(ctx context.Context) {
	defer pa.wg.Done()

	pa.RunNow(ctx)
	for {
		select {
		case <-pa.ticker.C:
			pa.RunNow(ctx)
		case <-pa.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunNow applies pending payments once and returns how many were applied.
func (pa *PaymentApplier) RunNow(ctx context.Context) int {
	n, err := pa.Service.ApplyPending(ctx)
	if err != nil {
		pa.Logger.Error("apply pending payments", "applied", n, "error", err)
		return n
	}
	if n > 0 {
		pa.Logger.Info("applied pending payments", "applied", n)
	}
	return n
}
