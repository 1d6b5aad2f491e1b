package order

import (
	"errors"
	"fmt"
	"strings"

	"roomclean/internal/domain"
)

var (
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrTimeGateRejected       = errors.New("time gate rejected")
	ErrAlreadyRated           = errors.New("already rated")
	ErrPaymentNotReady        = errors.New("payment not ready")
	ErrNotFound               = errors.New("order not found")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrValidation             = errors.New("validation error")
	ErrForbidden              = errors.New("forbidden")
)

type Action string

const (
	ActionCreate           Action = "create"
	ActionConfirm          Action = "confirm_and_assign"
	ActionUploadAfterPhoto Action = "upload_after_photo"
	ActionComplete         Action = "complete"
	ActionCancel           Action = "cancel"
	ActionRate             Action = "submit_rating"
	ActionTip              Action = "submit_tip"
	ActionSkipTip          Action = "skip_tip"
	ActionDelete           Action = "delete"
	ActionMarkPaid         Action = "mark_payment_paid"
	ActionMarkFailed       Action = "mark_payment_failed"
	ActionSwitchToCash     Action = "switch_payment_to_cash"
)

// Error is returned for every rejected command. Kind is one of the Err* sentinels
// and matches with errors.Is; State is the order status the command saw.
type Error struct {
	Kind          error
	Action        Action
	OrderID       int64
	State         domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	Reason        string
	Err           error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Action, e.Kind)
	if e.OrderID != 0 {
		fmt.Fprintf(&b, " (order %d", e.OrderID)
		if e.State != "" {
			fmt.Fprintf(&b, ", status %s", e.State)
		}
		if e.PaymentStatus != "" {
			fmt.Fprintf(&b, ", payment %s", e.PaymentStatus)
		}
		b.WriteString(")")
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Details is the machine-readable part of the error for API responses.
func (e *Error) Details() map[string]any {
	d := map[string]any{
		"kind":   KindCode(e.Kind),
		"action": e.Action,
	}
	if e.OrderID != 0 {
		d["order_id"] = e.OrderID
	}
	if e.State != "" {
		d["state"] = e.State
	}
	if e.PaymentStatus != "" {
		d["payment_status"] = e.PaymentStatus
	}
	if e.Reason != "" {
		d["reason"] = e.Reason
	}
	return d
}

// KindCode is the stable API code of an error kind.
func KindCode(kind error) string {
	switch kind {
	case ErrInvalidTransition:
		return "INVALID_TRANSITION"
	case ErrTimeGateRejected:
		return "TIME_GATE_REJECTED"
	case ErrAlreadyRated:
		return "ALREADY_RATED"
	case ErrPaymentNotReady:
		return "PAYMENT_NOT_READY"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrConcurrentModification:
		return "CONCURRENT_MODIFICATION"
	case ErrValidation:
		return "VALIDATION_ERROR"
	case ErrForbidden:
		return "FORBIDDEN"
	default:
		return "INTERNAL_ERROR"
	}
}

func reject(kind error, action Action, o *domain.Order, reason string) *Error {
	e := &Error{Kind: kind, Action: action, Reason: reason}
	if o != nil {
		e.OrderID = o.ID
		e.State = o.Status
	}
	return e
}

func invalid(action Action, reason string) *Error {
	return &Error{Kind: ErrValidation, Action: action, Reason: reason}
}
