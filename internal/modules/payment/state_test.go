package payment

import (
	"errors"
	"testing"
	"time"

	"roomclean/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func pending(method domain.PaymentMethod) domain.Payment {
	return domain.Payment{
		ID:        7,
		OrderID:   3,
		Method:    method,
		Status:    domain.PaymentPending,
		Amount:    decimal.NewFromInt(150000),
		CreatedAt: now.Add(-time.Hour),
	}
}

func TestMarkPaid(t *testing.T) {
	in := pending(domain.PaymentCard)

	out, err := MarkPaid(in, now)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, out.Status)
	require.NotNil(t, out.PaidAt)
	assert.Equal(t, now, *out.PaidAt)

	assert.Equal(t, domain.PaymentPending, in.Status, "input must not change")
	assert.Nil(t, in.PaidAt)

	_, err = MarkPaid(out, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	failed, err := MarkFailed(pending(domain.PaymentCard), now)
	require.NoError(t, err)
	_, err = MarkPaid(failed, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkFailed(t *testing.T) {
	out, err := MarkFailed(pending(domain.PaymentTransfer), now)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, out.Status)
	require.NotNil(t, out.FailedAt)

	_, err = MarkFailed(out, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSwitchToCash(t *testing.T) {
	t.Run("pending transfer becomes pending cash", func(t *testing.T) {
		in := pending(domain.PaymentTransfer)
		out, err := SwitchToCash(in, now)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentCash, out.Method)
		assert.Equal(t, domain.PaymentPending, out.Status)
		assert.Nil(t, out.PaidAt)
		assert.Equal(t, domain.PaymentTransfer, in.Method)
	})

	t.Run("failed payment is rejected", func(t *testing.T) {
		failed, err := MarkFailed(pending(domain.PaymentTransfer), now)
		require.NoError(t, err)
		_, err = SwitchToCash(failed, now)
		var te *TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, ActionSwitchToCash, te.Action)
		assert.Equal(t, domain.PaymentFailed, te.From)
	})

	t.Run("already cash is rejected", func(t *testing.T) {
		_, err := SwitchToCash(pending(domain.PaymentCash), now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}
