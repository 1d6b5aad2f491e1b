package notification

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"roomclean/internal/domain"
	"roomclean/internal/pkg/clock"
)

const deliverTimeout = 5 * time.Second

type DispatcherConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// Dispatcher polls undelivered notifications and hands them to every
// deliverer. A failed row is retried with exponential backoff until
// MaxAttempts is reached; a retry skips deliverers that already took the row.
// The row stays listable in the inbox either way.
type Dispatcher struct {
	store      Store
	deliverers []Deliverer
	cfg        DispatcherConfig
	clock      clock.Clock
	log        *zap.Logger
	wake       chan struct{}
}

func NewDispatcher(store Store, cfg DispatcherConfig, clk clock.Clock, log *zap.Logger, deliverers ...Deliverer) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	return &Dispatcher{
		store:      store,
		deliverers: deliverers,
		cfg:        cfg,
		clock:      clk,
		log:        log,
		wake:       make(chan struct{}, 1),
	}
}

// Wake asks for a dispatch pass before the next tick. It never blocks.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run dispatches until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Error("notification dispatch failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// DispatchOnce runs one pass and returns how many rows were delivered.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	pending, err := d.store.PendingDelivery(ctx, d.clock.Now(), d.cfg.MaxAttempts, d.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, n := range pending {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if via, err := d.deliver(ctx, n); err != nil {
			d.fail(ctx, n, via, err)
			continue
		}
		if err := d.store.MarkDelivered(ctx, n.ID, d.clock.Now()); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

// deliver hands n to each deliverer that has not taken it yet and returns the
// names of all deliverers that now have it.
func (d *Dispatcher) deliver(ctx context.Context, n domain.Notification) ([]string, error) {
	via := append([]string(nil), n.DeliveredVia...)
	var errs []error
	for _, dl := range d.deliverers {
		if slices.Contains(n.DeliveredVia, dl.Name()) {
			continue
		}
		dctx, cancel := context.WithTimeout(ctx, deliverTimeout)
		err := dl.Deliver(dctx, n)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dl.Name(), err))
			continue
		}
		via = append(via, dl.Name())
	}
	return via, errors.Join(errs...)
}

func (d *Dispatcher) fail(ctx context.Context, n domain.Notification, via []string, cause error) {
	attempt := n.Attempts + 1
	log := d.log.With(
		zap.Int64("notification_id", n.ID),
		zap.String("kind", string(n.Kind)),
		zap.Int("attempt", attempt),
		zap.Error(cause),
	)
	if attempt >= d.cfg.MaxAttempts {
		log.Error("notification delivery abandoned")
	} else {
		log.Warn("notification delivery failed")
	}

	if err := d.store.MarkAttemptFailed(ctx, n.ID, d.clock.Now().Add(retryDelay(attempt)), via); err != nil {
		log.Error("record delivery failure", zap.NamedError("store_error", err))
	}
}

// retryDelay doubles from one second and caps at one minute.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 6 {
		attempt = 6
	}
	delay := time.Duration(1<<attempt) * time.Second
	if delay > time.Minute {
		delay = time.Minute
	}
	return delay
}
