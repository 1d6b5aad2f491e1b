package payment

import (
	"errors"
	"fmt"
	"time"

	"roomclean/internal/domain"
)

var ErrInvalidTransition = errors.New("invalid payment transition")

// TransitionError names the rejected action and the state it was attempted from.
type TransitionError struct {
	Action string
	Method domain.PaymentMethod
	From   domain.PaymentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("payment: cannot %s a %s payment in status %s", e.Action, e.Method, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

const (
	ActionMarkPaid     = "mark_paid"
	ActionMarkFailed   = "mark_failed"
	ActionSwitchToCash = "switch_to_cash"
)

// MarkPaid settles a pending payment. The input value is left untouched.
func MarkPaid(p domain.Payment, now time.Time) (domain.Payment, error) {
	if p.Status != domain.PaymentPending {
		return p, reject(ActionMarkPaid, p)
	}
	paidAt := now
	p.Status = domain.PaymentPaid
	p.PaidAt = &paidAt
	p.UpdatedAt = now
	return p, nil
}

func MarkFailed(p domain.Payment, now time.Time) (domain.Payment, error) {
	if p.Status != domain.PaymentPending {
		return p, reject(ActionMarkFailed, p)
	}
	failedAt := now
	p.Status = domain.PaymentFailed
	p.FailedAt = &failedAt
	p.UpdatedAt = now
	return p, nil
}

// SwitchToCash converts an abandoned online payment into pay-on-site.
// The result stays PENDING; cash is only settled later by an admin.
func SwitchToCash(p domain.Payment, now time.Time) (domain.Payment, error) {
	if p.Status != domain.PaymentPending || p.Method == domain.PaymentCash {
		return p, reject(ActionSwitchToCash, p)
	}
	p.Method = domain.PaymentCash
	p.Status = domain.PaymentPending
	p.UpdatedAt = now
	return p, nil
}

func reject(action string, p domain.Payment) error {
	return &TransitionError{Action: action, Method: p.Method, From: p.Status}
}
