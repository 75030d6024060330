// Package reconcile polls providers for transfers that finalized while a
// step was still pending at its provider. The worker rewrites the stored
// record only; it never moves money, retries a step, or changes a terminal
// transfer status.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"crossrail/internal/rails"
	"crossrail/internal/transfer/models"
	"crossrail/internal/transfer/store"
)

const (
	defaultInterval    = time.Minute
	defaultConcurrency = 8
)

// Poller periodically sweeps pending steps and refreshes their recorded
// status from the provider.
type Poller struct {
	recorder    store.Recorder
	selector    *rails.Selector
	logger      *slog.Logger
	interval    time.Duration
	concurrency int
}

type Option func(*Poller)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithConcurrency bounds how many transfers one sweep reconciles in
// parallel.
func WithConcurrency(n int) Option {
	return func(p *Poller) { p.concurrency = n }
}

func New(recorder store.Recorder, selector *rails.Selector, opts ...Option) *Poller {
	p := &Poller{
		recorder:    recorder,
		selector:    selector,
		logger:      slog.Default(),
		interval:    defaultInterval,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run sweeps on the configured interval until the context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Sweep(ctx); err != nil {
				p.logger.Error("reconcile sweep", "error", err)
			}
		}
	}
}

// Sweep reconciles every transfer with a pending step, a bounded number at
// a time. Per-transfer failures are logged and skipped so one flaky provider
// cannot stall the rest of the sweep.
func (p *Poller) Sweep(ctx context.Context) error {
	ids, err := p.recorder.ListPending(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := p.reconcileTransfer(ctx, id); err != nil {
				p.logger.Warn("reconcile transfer", "request_id", id, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Poller) reconcileTransfer(ctx context.Context, requestID string) error {
	outcome, err := p.recorder.Get(ctx, requestID)
	if err != nil {
		return err
	}

	for _, step := range outcome.Steps {
		if step.Status != rails.StatusPending || step.ProviderTxID == "" {
			continue
		}
		status, err := p.pollStep(ctx, step)
		if err != nil {
			p.logger.Warn("poll step status",
				"request_id", requestID,
				"step", step.Step,
				"provider", step.Provider,
				"error", err)
			continue
		}
		if status == rails.StatusPending {
			continue
		}
		if err := p.recorder.UpdateStepStatus(ctx, requestID, step.Step, status); err != nil {
			return err
		}
		p.logger.Info("step settled",
			"request_id", requestID,
			"step", step.Step,
			"provider_tx_id", step.ProviderTxID,
			"status", status)
	}
	return nil
}

func (p *Poller) pollStep(ctx context.Context, step models.StepResult) (rails.Status, error) {
	if step.Step == models.StepMint || step.Step == models.StepRedeem {
		bridge, err := p.selector.Bridge()
		if err != nil {
			return "", err
		}
		return bridge.TransactionStatus(ctx, step.ProviderTxID)
	}
	adapter, err := p.selector.AdapterNamed(step.Provider)
	if err != nil {
		return "", err
	}
	return adapter.TransactionStatus(ctx, step.ProviderTxID)
}
