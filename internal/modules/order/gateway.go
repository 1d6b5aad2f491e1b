package order

import (
	"context"

	"github.com/shopspring/decimal"

	"roomclean/internal/domain"
)

// CustomerGateway is the command set available to a customer. It binds the
// actor once so callers cannot mix identities between commands.
type CustomerGateway struct {
	svc   *Service
	actor domain.Actor
}

func (s *Service) ForCustomer(actor domain.Actor) (*CustomerGateway, error) {
	if !actor.IsCustomer() || actor.ID <= 0 {
		return nil, reject(ErrForbidden, "customer_gateway", nil, "customer role required")
	}
	return &CustomerGateway{svc: s, actor: actor}, nil
}

func (g *CustomerGateway) Create(ctx context.Context, in CreateOrderInput) (*OrderView, error) {
	o, p, err := g.svc.CreateOrder(ctx, g.actor, in)
	if err != nil {
		return nil, err
	}
	v := NewOrderView(o, p, g.svc.clock.Now())
	return &v, nil
}

func (g *CustomerGateway) Get(ctx context.Context, orderID int64) (*OrderView, error) {
	return g.svc.GetOrder(ctx, g.actor, orderID)
}

func (g *CustomerGateway) List(ctx context.Context, q ListQuery) ([]OrderView, int64, error) {
	return g.svc.ListOrders(ctx, g.actor, q)
}

func (g *CustomerGateway) UploadAfterPhoto(ctx context.Context, orderID int64, photoURL string) (*OrderView, error) {
	o, err := g.svc.UploadAfterPhoto(ctx, g.actor, orderID, photoURL)
	return viewOf(ctx, g.svc, g.actor, o, nil, err)
}

func (g *CustomerGateway) Complete(ctx context.Context, orderID int64) (*OrderView, error) {
	o, err := g.svc.CompleteOrder(ctx, g.actor, orderID)
	return viewOf(ctx, g.svc, g.actor, o, nil, err)
}

func (g *CustomerGateway) Cancel(ctx context.Context, orderID int64, reason string) (*OrderView, error) {
	o, err := g.svc.CancelOrder(ctx, g.actor, orderID, reason)
	return viewOf(ctx, g.svc, g.actor, o, nil, err)
}

func (g *CustomerGateway) Rate(ctx context.Context, orderID int64, score int, comment string) (*OrderView, error) {
	o, err := g.svc.SubmitRating(ctx, g.actor, orderID, score, comment)
	return viewOf(ctx, g.svc, g.actor, o, nil, err)
}

func (g *CustomerGateway) Tip(ctx context.Context, orderID int64, amount decimal.Decimal) (*OrderView, error) {
	o, err := g.svc.SubmitTip(ctx, g.actor, orderID, amount)
	return viewOf(ctx, g.svc, g.actor, o, nil, err)
}

func (g *CustomerGateway) SkipTip(ctx context.Context, orderID int64) (*OrderView, error) {
	o, err := g.svc.SkipTip(ctx, g.actor, orderID)
	return viewOf(ctx, g.svc, g.actor, o, nil, err)
}


// AdminGateway is the command set available to an admin.
type AdminGateway struct {
	svc   *Service
	actor domain.Actor
}

func (s *Service) ForAdmin(actor domain.Actor) (*AdminGateway, error) {
	if !actor.IsAdmin() {
		return nil, reject(ErrForbidden, "admin_gateway", nil, "admin role required")
	}
	return &AdminGateway{svc: s, actor: actor}, nil
}

func (g *AdminGateway) Get(ctx context.Context, orderID int64) (*OrderView, error) {
	return g.svc.GetOrder(ctx, g.actor, orderID)
}

func (g *AdminGateway) List(ctx context.Context, q ListQuery) ([]OrderView, int64, error) {
	return g.svc.ListOrders(ctx, g.actor, q)
}

func (g *AdminGateway) ConfirmAndAssign(ctx context.Context, orderID, staffID int64) (*OrderView, error) {
	o, err := g.svc.ConfirmAndAssign(ctx, g.actor, orderID, staffID)
	return viewOf(ctx, g.svc, g.actor, o, nil, err)
}

func (g *AdminGateway) Complete(ctx context.Context, orderID int64) (*OrderView, error) {
	o, err := g.svc.CompleteOrder(ctx, g.actor, orderID)
	return viewOf(ctx, g.svc, g.actor, o, nil, err)
}

func (g *AdminGateway) Cancel(ctx context.Context, orderID int64, reason string) (*OrderView, error) {
	o, err := g.svc.CancelOrder(ctx, g.actor, orderID, reason)
	return viewOf(ctx, g.svc, g.actor, o, nil, err)
}

func (g *AdminGateway) Delete(ctx context.Context, orderID int64) error {
	return g.svc.DeleteOrder(ctx, g.actor, orderID)
}

func (g *AdminGateway) MarkPaymentPaid(ctx context.Context, orderID int64) (*OrderView, error) {
	o, p, err := g.svc.MarkPaymentPaid(ctx, g.actor, orderID)
	return viewOf(ctx, g.svc, g.actor, o, p, err)
}

func (g *AdminGateway) MarkPaymentFailed(ctx context.Context, orderID int64) (*OrderView, error) {
	o, p, err := g.svc.MarkPaymentFailed(ctx, g.actor, orderID)
	return viewOf(ctx, g.svc, g.actor, o, p, err)
}

func (g *AdminGateway) SwitchPaymentToCash(ctx context.Context, orderID int64) (*OrderView, error) {
	o, p, err := g.svc.SwitchPaymentToCash(ctx, g.actor, orderID)
	return viewOf(ctx, g.svc, g.actor, o, p, err)
}

// viewOf turns a command result into a view, loading the payment when the
// command did not return it.
func viewOf(ctx context.Context, svc *Service, actor domain.Actor, o *domain.Order, p *domain.Payment, err error) (*OrderView, error) {
	if err != nil {
		return nil, err
	}
	if p == nil {
		return svc.GetOrder(ctx, actor, o.ID)
	}
	v := NewOrderView(o, p, svc.clock.Now())
	return &v, nil
}

// PaymentCallbacks applies payment gateway results. It satisfies the
// callback processor of the payment module.
type PaymentCallbacks struct {
	svc *Service
}

func (s *Service) PaymentCallbacks() *PaymentCallbacks {
	return &PaymentCallbacks{svc: s}
}

func (c *PaymentCallbacks) MarkPaymentPaid(ctx context.Context, orderID int64) error {
	_, _, err := c.svc.MarkPaymentPaid(ctx, domain.GatewayActor(), orderID)
	return err
}

func (c *PaymentCallbacks) MarkPaymentFailed(ctx context.Context, orderID int64) error {
	_, _, err := c.svc.MarkPaymentFailed(ctx, domain.GatewayActor(), orderID)
	return err
}
