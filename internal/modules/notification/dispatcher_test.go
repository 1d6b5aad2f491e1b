package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"roomclean/internal/domain"
	"roomclean/internal/pkg/clock"
)

type recordingDeliverer struct {
	mu       sync.Mutex
	name     string
	got      []domain.Notification
	failures int
}

func (r *recordingDeliverer) Name() string { return r.name }

func (r *recordingDeliverer) Deliver(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("broker unavailable")
	}
	r.got = append(r.got, n)
	return nil
}

func (r *recordingDeliverer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestDispatcher_DeliversOnce(t *testing.T) {
	store := setupStore(t)
	clk := clock.NewManual(t0)
	em := NewEmitter(clk)
	ws := &recordingDeliverer{name: "ws"}
	d := NewDispatcher(store, DispatcherConfig{MaxAttempts: 3}, clk, nil, ws)
	ctx := context.Background()

	require.NoError(t, queue(ctx, em, store, domain.AdminPool(), domain.NotifOrderCreated, "New order", "", nil))
	require.NoError(t, queue(ctx, em, store, domain.Recipient{UserID: 3, Role: domain.RoleCustomer}, domain.NotifOrderConfirmed, "Confirmed", "", nil))

	n, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, ws.count())

	n, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, ws.count())
}

func TestDispatcher_RetriesWithBackoff(t *testing.T) {
	store := setupStore(t)
	clk := clock.NewManual(t0)
	core, logs := observer.New(zapcore.WarnLevel)
	broker := &recordingDeliverer{name: "amqp", failures: 2}
	d := NewDispatcher(store, DispatcherConfig{MaxAttempts: 5}, clk, zap.New(core), broker)
	ctx := context.Background()

	require.NoError(t, queue(ctx, NewEmitter(clk), store, domain.AdminPool(), domain.NotifOrderCreated, "New order", "", nil))

	n, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, logs.FilterMessage("notification delivery failed").Len())

	// Not due yet: first retry waits two seconds.
	clk.Advance(time.Second)
	n, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, logs.FilterMessage("notification delivery failed").Len())

	clk.Advance(time.Second)
	n, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clk.Advance(4 * time.Second)
	n, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, broker.count())

	pending, err := store.PendingDelivery(ctx, clk.Now().Add(time.Hour), 5, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDispatcher_RetryOnlyResendsToFailedDeliverer(t *testing.T) {
	store := setupStore(t)
	clk := clock.NewManual(t0)
	ws := &recordingDeliverer{name: "ws"}
	broker := &recordingDeliverer{name: "amqp", failures: 1}
	d := NewDispatcher(store, DispatcherConfig{MaxAttempts: 5}, clk, nil, ws, broker)
	ctx := context.Background()

	require.NoError(t, queue(ctx, NewEmitter(clk), store, domain.Recipient{UserID: 3, Role: domain.RoleCustomer}, domain.NotifOrderConfirmed, "Confirmed", "", nil))

	n, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, ws.count())
	assert.Equal(t, 0, broker.count())

	clk.Advance(2 * time.Second)
	n, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, ws.count())
	assert.Equal(t, 1, broker.count())

	clk.Advance(time.Minute)
	n, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, ws.count())
	assert.Equal(t, 1, broker.count())
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	store := setupStore(t)
	clk := clock.NewManual(t0)
	core, logs := observer.New(zapcore.WarnLevel)
	broker := &recordingDeliverer{name: "amqp", failures: 100}
	d := NewDispatcher(store, DispatcherConfig{MaxAttempts: 2}, clk, zap.New(core), broker)
	ctx := context.Background()

	require.NoError(t, queue(ctx, NewEmitter(clk), store, domain.AdminPool(), domain.NotifOrderCreated, "New order", "", nil))

	for i := 0; i < 4; i++ {
		_, err := d.DispatchOnce(ctx)
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}
	assert.Equal(t, 1, logs.FilterMessage("notification delivery abandoned").Len())
	assert.Equal(t, 1, logs.FilterMessage("notification delivery failed").Len())

	// The row is still in the inbox.
	inbox, err := store.ListFor(ctx, adminA, false, 10, 0)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
	assert.Nil(t, inbox[0].DeliveredAt)
}

func TestDispatcher_RunStopsWithContext(t *testing.T) {
	store := setupStore(t)
	clk := clock.NewManual(t0)
	ws := &recordingDeliverer{name: "ws"}
	d := NewDispatcher(store, DispatcherConfig{Interval: time.Hour}, clk, nil, ws)
	em := NewEmitter(clk).OnStored(d.Wake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.NoError(t, queue(context.Background(), em, store, domain.AdminPool(), domain.NotifOrderCreated, "New order", "", nil))
	assert.Eventually(t, func() bool { return ws.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Second, retryDelay(0))
	assert.Equal(t, 2*time.Second, retryDelay(1))
	assert.Equal(t, 32*time.Second, retryDelay(5))
	assert.Equal(t, time.Minute, retryDelay(6))
	assert.Equal(t, time.Minute, retryDelay(50))
}
