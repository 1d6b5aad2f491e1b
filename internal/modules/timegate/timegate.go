// Package timegate holds the time-based permission rules of an order.
// Every function is a pure predicate over already-loaded values and the supplied instant.
package timegate

import (
	"time"

	"roomclean/internal/domain"
)

const (
	// AfterPhotoDelay is how long after the scheduled start the after-photo may be uploaded.
	AfterPhotoDelay = 5 * time.Minute
	// TransferWindow is how long a bank transfer may stay pending before it is flagged.
	TransferWindow = 60 * time.Minute
	// TransferGrace tolerates client clock skew before a flagged transfer counts as expired.
	TransferGrace = 60 * time.Second
)

// Verdict explains why an after-photo upload is or is not allowed.
type Verdict int

const (
	Allowed Verdict = iota
	WrongStatus
	TooEarly
	PaymentNotReady
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case WrongStatus:
		return "wrong_status"
	case TooEarly:
		return "too_early"
	case PaymentNotReady:
		return "payment_not_ready"
	default:
		return "unknown"
	}
}

// AfterPhotoOpensAt is the first instant an after-photo is accepted.
func AfterPhotoOpensAt(o *domain.Order) time.Time {
	return o.ScheduledAt.Add(AfterPhotoDelay)
}

// AfterPhotoVerdict checks status, then time, then payment.
func AfterPhotoVerdict(o *domain.Order, p *domain.Payment, now time.Time) Verdict {
	if o.Status != domain.OrderInProgress {
		return WrongStatus
	}
	if now.Before(AfterPhotoOpensAt(o)) {
		return TooEarly
	}
	if p.Method != domain.PaymentCash && p.Status != domain.PaymentPaid {
		return PaymentNotReady
	}
	return Allowed
}

func CanUploadAfterPhoto(o *domain.Order, p *domain.Payment, now time.Time) bool {
	return AfterPhotoVerdict(o, p, now) == Allowed
}

// TransferWindowStart is where the pending-transfer window begins: the later of
// payment creation and the scheduled start, so a transfer made for a booking
// days ahead is not flagged before the visit.
func TransferWindowStart(o *domain.Order, p *domain.Payment) time.Time {
	start := p.CreatedAt
	if o != nil && o.ScheduledAt.After(start) {
		start = o.ScheduledAt
	}
	return start
}

// IsTransferExpiring flags a pending transfer older than TransferWindow.
// It is a display hint only; nothing is cancelled because of it.
func IsTransferExpiring(o *domain.Order, p *domain.Payment, now time.Time) bool {
	return pendingTransfer(p) && now.After(TransferWindowStart(o, p).Add(TransferWindow))
}

// IsTransferExpired is IsTransferExpiring past the grace window.
func IsTransferExpired(o *domain.Order, p *domain.Payment, now time.Time) bool {
	return pendingTransfer(p) && now.After(TransferWindowStart(o, p).Add(TransferWindow+TransferGrace))
}

func pendingTransfer(p *domain.Payment) bool {
	return p != nil && p.Method == domain.PaymentTransfer && p.Status == domain.PaymentPending
}
