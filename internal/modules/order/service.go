package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"roomclean/internal/domain"
	"roomclean/internal/lock"
	"roomclean/internal/modules/payment"
	"roomclean/internal/modules/timegate"
	"roomclean/internal/pkg/clock"
	"roomclean/internal/pkg/logger"
	"roomclean/internal/repository"
)

// Service is the order state machine. Every command runs under the per-order
// lock, applies its guards to a draft copy of the loaded order and payment,
// and saves both together with the one notification the change produces.
// The dispatcher is only woken after commit.
type Service struct {
	store         Store
	catalog       Catalog
	locker        lock.Locker
	emitter       Emitter
	clock         clock.Clock
	log           *zap.Logger
	defaultLocale string
}

func NewService(store Store, catalog Catalog, locker lock.Locker, emitter Emitter, clk clock.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:         store,
		catalog:       catalog,
		locker:        locker,
		emitter:       emitter,
		clock:         clk,
		log:           log,
		defaultLocale: "en",
	}
}

// WithDefaultLocale sets the notification locale used when the actor has none.
func (s *Service) WithDefaultLocale(locale string) *Service {
	if SupportedLocale(locale) {
		s.defaultLocale = strings.ToLower(locale)
	}
	return s
}

type CreateOrderInput struct {
	PackageID     int64
	Extras        []string
	ScheduledAt   time.Time
	BeforePhoto   string
	Address       string
	Notes         string
	PaymentMethod domain.PaymentMethod
}

// notice addresses the notification a command commits with.
type notice struct {
	to   domain.Recipient
	kind domain.NotificationKind
}

// applyFunc mutates the draft order and returns the new payment value, or nil
// when the payment row is unchanged.
type applyFunc func(o *domain.Order, p domain.Payment, now time.Time) (*domain.Payment, notice, error)

func (s *Service) CreateOrder(ctx context.Context, actor domain.Actor, in CreateOrderInput) (*domain.Order, *domain.Payment, error) {
	if !actor.IsCustomer() {
		return nil, nil, reject(ErrForbidden, ActionCreate, nil, "only customers place orders")
	}
	photo := strings.TrimSpace(in.BeforePhoto)
	if photo == "" {
		return nil, nil, invalid(ActionCreate, "before_photo is required")
	}
	if !in.PaymentMethod.Valid() {
		return nil, nil, invalid(ActionCreate, fmt.Sprintf("unknown payment method %q", in.PaymentMethod))
	}

	now := s.clock.Now()
	if !in.ScheduledAt.After(now) {
		return nil, nil, invalid(ActionCreate, "scheduled_at must be in the future")
	}

	pkg, err := s.catalog.Get(ctx, in.PackageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, invalid(ActionCreate, fmt.Sprintf("package %d does not exist", in.PackageID))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load package %d: %w", in.PackageID, err)
	}
	if !pkg.Active {
		return nil, nil, invalid(ActionCreate, fmt.Sprintf("package %d is not available", in.PackageID))
	}

	extras, extraPrice, err := resolveExtras(pkg, in.Extras)
	if err != nil {
		return nil, nil, err
	}

	o := &domain.Order{
		CustomerID:    actor.ID,
		PackageID:     pkg.ID,
		BasePrice:     pkg.BasePrice,
		ExtraPrice:    extraPrice,
		ExtraServices: extras,
		Status:        domain.OrderPendingConfirmation,
		Address:       strings.TrimSpace(in.Address),
		Notes:         strings.TrimSpace(in.Notes),
		ScheduledAt:   in.ScheduledAt.UTC(),
		BeforePhoto:   photo,
		TipDecision:   domain.TipUndecided,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p := &domain.Payment{
		Method:    in.PaymentMethod,
		Status:    domain.PaymentPending,
		Amount:    o.TotalPrice(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var queued *domain.Notification
	created := notice{to: domain.AdminPool(), kind: domain.NotifOrderCreated}
	if err := s.store.Create(ctx, o, p, s.notify(actor, created, &queued)); err != nil {
		return nil, nil, fmt.Errorf("create order: %w", err)
	}

	s.logger(ctx).Info("order created",
		zap.Int64("order_id", o.ID),
		zap.Int64("customer_id", actor.ID),
		zap.String("payment_method", string(p.Method)),
		zap.String("amount", p.Amount.StringFixed(2)),
	)
	s.emit(ctx, o.ID, queued)
	return o, p, nil
}

func resolveExtras(pkg *domain.CleaningPackage, names []string) ([]domain.ExtraService, decimal.Decimal, error) {
	offered := make(map[string]domain.ExtraOption, len(pkg.Extras))
	for _, e := range pkg.Extras {
		if e.Active {
			offered[strings.ToLower(e.Name)] = e
		}
	}

	total := decimal.Zero
	out := make([]domain.ExtraService, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" || seen[key] {
			continue
		}
		opt, ok := offered[key]
		if !ok {
			return nil, decimal.Zero, invalid(ActionCreate, fmt.Sprintf("extra %q is not offered for package %d", raw, pkg.ID))
		}
		seen[key] = true
		out = append(out, domain.ExtraService{Name: opt.Name, Price: opt.Price})
		total = total.Add(opt.Price)
	}
	return out, total, nil
}

func (s *Service) ConfirmAndAssign(ctx context.Context, actor domain.Actor, orderID, staffID int64) (*domain.Order, error) {
	if !actor.IsAdmin() {
		return nil, reject(ErrForbidden, ActionConfirm, nil, "admin only")
	}
	if staffID <= 0 {
		return nil, invalid(ActionConfirm, "staff id is required")
	}

	o, _, err := s.transition(ctx, actor, orderID, ActionConfirm, func(o *domain.Order, p domain.Payment, now time.Time) (*domain.Payment, notice, error) {
		if o.Status != domain.OrderPendingConfirmation {
			return nil, notice{}, reject(ErrInvalidTransition, ActionConfirm, o, "order is not pending confirmation")
		}
		staff := staffID
		confirmedAt := now
		o.Status = domain.OrderInProgress
		o.AssignedStaffID = &staff
		o.ConfirmedAt = &confirmedAt
		return nil, customerNotice(o, domain.NotifOrderConfirmed), nil
	})
	return o, err
}

func (s *Service) UploadAfterPhoto(ctx context.Context, actor domain.Actor, orderID int64, photoURL string) (*domain.Order, error) {
	if !actor.IsCustomer() {
		return nil, reject(ErrForbidden, ActionUploadAfterPhoto, nil, "only the customer uploads the after photo")
	}
	photo := strings.TrimSpace(photoURL)
	if photo == "" {
		return nil, invalid(ActionUploadAfterPhoto, "after_photo is required")
	}

	o, _, err := s.transition(ctx, actor, orderID, ActionUploadAfterPhoto, func(o *domain.Order, p domain.Payment, now time.Time) (*domain.Payment, notice, error) {
		if err := requireOwner(actor, o, ActionUploadAfterPhoto); err != nil {
			return nil, notice{}, err
		}
		switch timegate.AfterPhotoVerdict(o, &p, now) {
		case timegate.WrongStatus:
			return nil, notice{}, reject(ErrInvalidTransition, ActionUploadAfterPhoto, o, "order is not in progress")
		case timegate.TooEarly:
			opens := timegate.AfterPhotoOpensAt(o).Format(time.RFC3339)
			return nil, notice{}, reject(ErrTimeGateRejected, ActionUploadAfterPhoto, o, "after photo accepted from "+opens)
		case timegate.PaymentNotReady:
			e := reject(ErrPaymentNotReady, ActionUploadAfterPhoto, o, "online payment must be paid first")
			e.PaymentStatus = p.Status
			return nil, notice{}, e
		}
		uploadedAt := now
		o.AfterPhoto = &photo
		o.AfterPhotoAt = &uploadedAt
		return nil, notice{to: domain.AdminPool(), kind: domain.NotifAfterPhotoUploaded}, nil
	})
	return o, err
}

func (s *Service) CompleteOrder(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error) {
	if !actor.IsCustomer() && !actor.IsAdmin() {
		return nil, reject(ErrForbidden, ActionComplete, nil, "customer or admin only")
	}

	o, _, err := s.transition(ctx, actor, orderID, ActionComplete, func(o *domain.Order, p domain.Payment, now time.Time) (*domain.Payment, notice, error) {
		if err := requireOwner(actor, o, ActionComplete); err != nil {
			return nil, notice{}, err
		}
		if o.Status != domain.OrderInProgress {
			return nil, notice{}, reject(ErrInvalidTransition, ActionComplete, o, "order is not in progress")
		}
		if o.AfterPhoto == nil {
			return nil, notice{}, reject(ErrInvalidTransition, ActionComplete, o, "after photo is required")
		}
		completedAt := now
		o.Status = domain.OrderCompleted
		o.CompletedAt = &completedAt
		return nil, counterpart(actor, o, domain.NotifOrderCompleted), nil
	})
	return o, err
}

// CancelOrder never touches the payment; refunds are handled outside the lifecycle.
func (s *Service) CancelOrder(ctx context.Context, actor domain.Actor, orderID int64, reason string) (*domain.Order, error) {
	if !actor.IsCustomer() && !actor.IsAdmin() {
		return nil, reject(ErrForbidden, ActionCancel, nil, "customer or admin only")
	}

	o, _, err := s.transition(ctx, actor, orderID, ActionCancel, func(o *domain.Order, p domain.Payment, now time.Time) (*domain.Payment, notice, error) {
		if err := requireOwner(actor, o, ActionCancel); err != nil {
			return nil, notice{}, err
		}
		if o.Status != domain.OrderPendingConfirmation && o.Status != domain.OrderInProgress {
			return nil, notice{}, reject(ErrInvalidTransition, ActionCancel, o, "order is already closed")
		}
		cancelledAt := now
		o.Status = domain.OrderCancelled
		o.CancelledAt = &cancelledAt
		o.CancelReason = strings.TrimSpace(reason)
		return nil, counterpart(actor, o, domain.NotifOrderCancelled), nil
	})
	return o, err
}

func (s *Service) SubmitRating(ctx context.Context, actor domain.Actor, orderID int64, score int, comment string) (*domain.Order, error) {
	if !actor.IsCustomer() {
		return nil, reject(ErrForbidden, ActionRate, nil, "only the customer rates an order")
	}
	if score < 1 || score > 5 {
		return nil, invalid(ActionRate, "score must be between 1 and 5")
	}

	o, _, err := s.transition(ctx, actor, orderID, ActionRate, func(o *domain.Order, p domain.Payment, now time.Time) (*domain.Payment, notice, error) {
		if err := requireOwner(actor, o, ActionRate); err != nil {
			return nil, notice{}, err
		}
		if o.Status != domain.OrderCompleted {
			return nil, notice{}, reject(ErrInvalidTransition, ActionRate, o, "only completed orders can be rated")
		}
		if o.Rating != nil {
			return nil, notice{}, reject(ErrAlreadyRated, ActionRate, o, "")
		}
		o.Rating = &domain.Rating{Score: score, Comment: strings.TrimSpace(comment), RatedAt: now}
		return nil, notice{to: domain.AdminPool(), kind: domain.NotifOrderRated}, nil
	})
	return o, err
}

func (s *Service) SubmitTip(ctx context.Context, actor domain.Actor, orderID int64, amount decimal.Decimal) (*domain.Order, error) {
	if !amount.IsPositive() {
		return nil, invalid(ActionTip, "tip amount must be positive")
	}
	return s.decideTip(ctx, actor, orderID, ActionTip, domain.TipGiven, amount)
}

// SkipTip records an explicit decision not to tip, distinct from never deciding.
func (s *Service) SkipTip(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error) {
	return s.decideTip(ctx, actor, orderID, ActionSkipTip, domain.TipSkipped, decimal.Zero)
}

func (s *Service) decideTip(ctx context.Context, actor domain.Actor, orderID int64, action Action, decision domain.TipDecision, amount decimal.Decimal) (*domain.Order, error) {
	if !actor.IsCustomer() {
		return nil, reject(ErrForbidden, action, nil, "only the customer decides on a tip")
	}

	o, _, err := s.transition(ctx, actor, orderID, action, func(o *domain.Order, p domain.Payment, now time.Time) (*domain.Payment, notice, error) {
		if err := requireOwner(actor, o, action); err != nil {
			return nil, notice{}, err
		}
		if o.Status != domain.OrderCompleted {
			return nil, notice{}, reject(ErrInvalidTransition, action, o, "tips are only accepted for completed orders")
		}
		if o.TipDecision != domain.TipUndecided {
			return nil, notice{}, reject(ErrInvalidTransition, action, o, "tip already "+strings.ToLower(string(o.TipDecision)))
		}
		tip := amount
		o.TipAmount = &tip
		o.TipDecision = decision

		kind := domain.NotifTipReceived
		if decision == domain.TipSkipped {
			kind = domain.NotifTipSkipped
		}
		// A tip goes to the staff member who earned it; admins see the rest.
		if decision == domain.TipGiven && o.AssignedStaffID != nil {
			return nil, notice{to: domain.Recipient{UserID: *o.AssignedStaffID, Role: domain.RoleStaff}, kind: kind}, nil
		}
		return nil, notice{to: domain.AdminPool(), kind: kind}, nil
	})
	return o, err
}

// DeleteOrder removes the order and its payment from any state. It is
// irreversible and emits nothing: the order no longer exists to point at.
func (s *Service) DeleteOrder(ctx context.Context, actor domain.Actor, orderID int64) error {
	if !actor.IsAdmin() {
		return reject(ErrForbidden, ActionDelete, nil, "admin only")
	}

	release, err := s.acquire(ctx, orderID, ActionDelete)
	if err != nil {
		return err
	}
	defer release()

	existing, err := s.loadOrder(ctx, orderID, ActionDelete)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &Error{Kind: ErrNotFound, Action: ActionDelete, OrderID: orderID}
		}
		return fmt.Errorf("delete order %d: %w", orderID, err)
	}

	s.logger(ctx).Info("order deleted",
		zap.Int64("order_id", orderID),
		zap.Int64("admin_id", actor.ID),
		zap.String("status", string(existing.Status)),
	)
	return nil
}

func (s *Service) MarkPaymentPaid(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, *domain.Payment, error) {
	return s.settlePayment(ctx, actor, orderID, ActionMarkPaid)
}

func (s *Service) MarkPaymentFailed(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, *domain.Payment, error) {
	return s.settlePayment(ctx, actor, orderID, ActionMarkFailed)
}

// settlePayment enforces who may settle which method: online payments are
// settled by the gateway, cash by an admin, and cash only counts as paid once
// the service has been completed.
func (s *Service) settlePayment(ctx context.Context, actor domain.Actor, orderID int64, action Action) (*domain.Order, *domain.Payment, error) {
	if !actor.IsAdmin() && !actor.IsGateway() {
		return nil, nil, reject(ErrForbidden, action, nil, "admin or payment gateway only")
	}

	return s.transition(ctx, actor, orderID, action, func(o *domain.Order, p domain.Payment, now time.Time) (*domain.Payment, notice, error) {
		if p.Method.IsOnline() && !actor.IsGateway() {
			return nil, notice{}, paymentReject(action, o, p, "online payments are settled by the payment gateway")
		}
		if p.Method == domain.PaymentCash && !actor.IsAdmin() {
			return nil, notice{}, paymentReject(action, o, p, "cash payments are settled by an admin")
		}
		if p.Method == domain.PaymentCash && action == ActionMarkPaid && o.Status != domain.OrderCompleted {
			return nil, notice{}, paymentReject(action, o, p, "cash is marked paid after the service is completed")
		}

		var (
			next domain.Payment
			err  error
			kind domain.NotificationKind
		)
		if action == ActionMarkPaid {
			next, err = payment.MarkPaid(p, now)
			kind = domain.NotifPaymentPaid
		} else {
			next, err = payment.MarkFailed(p, now)
			kind = domain.NotifPaymentFailed
		}
		if err != nil {
			return nil, notice{}, paymentReject(action, o, p, err.Error())
		}

		return &next, customerNotice(o, kind), nil
	})
}

// SwitchPaymentToCash converts an abandoned online payment to pay-on-site.
func (s *Service) SwitchPaymentToCash(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, *domain.Payment, error) {
	if !actor.IsAdmin() {
		return nil, nil, reject(ErrForbidden, ActionSwitchToCash, nil, "admin only")
	}

	return s.transition(ctx, actor, orderID, ActionSwitchToCash, func(o *domain.Order, p domain.Payment, now time.Time) (*domain.Payment, notice, error) {
		if o.Status == domain.OrderCancelled {
			return nil, notice{}, paymentReject(ActionSwitchToCash, o, p, "order is cancelled")
		}
		next, err := payment.SwitchToCash(p, now)
		if err != nil {
			return nil, notice{}, paymentReject(ActionSwitchToCash, o, p, err.Error())
		}
		return &next, customerNotice(o, domain.NotifPaymentSwitched), nil
	})
}

func paymentReject(action Action, o *domain.Order, p domain.Payment, reason string) *Error {
	e := reject(ErrInvalidTransition, action, o, reason)
	e.PaymentStatus = p.Status
	return e
}

// transition is the single write path for existing orders.
func (s *Service) transition(ctx context.Context, actor domain.Actor, orderID int64, action Action, apply applyFunc) (*domain.Order, *domain.Payment, error) {
	release, err := s.acquire(ctx, orderID, action)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	current, err := s.loadOrder(ctx, orderID, action)
	if err != nil {
		return nil, nil, err
	}
	pay, err := s.store.LoadPayment(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, &Error{Kind: ErrNotFound, Action: action, OrderID: orderID, State: current.Status, Reason: "payment missing"}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load payment for order %d: %w", orderID, err)
	}

	now := s.clock.Now()
	draft := current.Clone()
	nextPay, note, err := apply(draft, *pay, now)
	if err != nil {
		return nil, nil, err
	}
	draft.UpdatedAt = now

	// A request abandoned before this point has changed nothing.
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var queued *domain.Notification
	if err := s.store.SaveOrderAndPayment(ctx, draft, nextPay, s.notify(actor, note, &queued)); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, nil, &Error{Kind: ErrConcurrentModification, Action: action, OrderID: orderID, State: current.Status, Err: err}
		case errors.Is(err, repository.ErrNotFound):
			return nil, nil, &Error{Kind: ErrNotFound, Action: action, OrderID: orderID}
		default:
			return nil, nil, fmt.Errorf("save order %d: %w", orderID, err)
		}
	}
	release()

	final := pay
	if nextPay != nil {
		final = nextPay
	}
	s.logger(ctx).Info("order transition",
		zap.Int64("order_id", orderID),
		zap.String("action", string(action)),
		zap.String("actor_role", string(actor.Role)),
		zap.Int64("actor_id", actor.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(draft.Status)),
		zap.String("payment_status", string(final.Status)),
	)
	s.emit(ctx, orderID, queued)
	return draft, final, nil
}

func (s *Service) acquire(ctx context.Context, orderID int64, action Action) (func(), error) {
	release, err := s.locker.Acquire(ctx, lockKey(orderID))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: ErrConcurrentModification, Action: action, OrderID: orderID, Reason: "order is busy", Err: err}
	}
	return release, nil
}

func (s *Service) loadOrder(ctx context.Context, orderID int64, action Action) (*domain.Order, error) {
	o, err := s.store.LoadOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &Error{Kind: ErrNotFound, Action: action, OrderID: orderID}
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	return o, nil
}

// notify returns the store hook that composes n inside the write
// transaction. The composed row is left in *queued for emit.
func (s *Service) notify(actor domain.Actor, n notice, queued **domain.Notification) repository.Notify {
	if s.emitter == nil {
		return nil
	}
	locale := actor.Locale
	if !SupportedLocale(locale) {
		locale = s.defaultLocale
	}
	return func(orderID int64) (*domain.Notification, error) {
		title, message := render(locale, n.kind, orderID)
		related := orderID
		row, err := s.emitter.Compose(n.to, n.kind, title, message, &related)
		if err != nil {
			return nil, fmt.Errorf("compose %s notification: %w", n.kind, err)
		}
		*queued = row
		return row, nil
	}
}

// emit hands a committed notification to delivery. Failures are logged and
// never reach the caller; the row is already durable.
func (s *Service) emit(ctx context.Context, orderID int64, n *domain.Notification) {
	if s.emitter == nil || n == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.emitter.Emit(ctx, n); err != nil {
		s.logger(ctx).Warn("notification emit failed",
			zap.Int64("order_id", orderID),
			zap.Int64("notification_id", n.ID),
			zap.String("kind", string(n.Kind)),
			zap.Int64("recipient_id", n.RecipientID),
			zap.String("recipient_role", string(n.RecipientRole)),
			zap.Error(err),
		)
	}
}

func (s *Service) logger(ctx context.Context) *zap.Logger {
	return logger.With(ctx, s.log)
}

func lockKey(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

func requireOwner(actor domain.Actor, o *domain.Order, action Action) error {
	if actor.IsCustomer() && o.CustomerID != actor.ID {
		return reject(ErrForbidden, action, o, "order belongs to another customer")
	}
	return nil
}

func customerNotice(o *domain.Order, kind domain.NotificationKind) notice {
	return notice{to: domain.Recipient{UserID: o.CustomerID, Role: domain.RoleCustomer}, kind: kind}
}

// counterpart addresses the side that did not act: admins hear about customer
// actions through the pool, customers hear about admin actions directly.
func counterpart(actor domain.Actor, o *domain.Order, kind domain.NotificationKind) notice {
	if actor.IsCustomer() {
		return notice{to: domain.AdminPool(), kind: kind}
	}
	return customerNotice(o, kind)
}
