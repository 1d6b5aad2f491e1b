package order

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roomclean/internal/domain"
	"roomclean/internal/middleware"
	"roomclean/internal/pkg/response"
	"roomclean/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterCustomerRoutes expects rg to be authenticated with the customer role.
func (h *Handler) RegisterCustomerRoutes(rg *gin.RouterGroup) {
	rg.POST("/orders", h.Create)
	rg.GET("/orders", h.ListMine)
	rg.GET("/orders/:id", h.GetMine)
	rg.POST("/orders/:id/after-photo", h.UploadAfterPhoto)
	rg.POST("/orders/:id/complete", h.CustomerComplete)
	rg.POST("/orders/:id/cancel", h.CustomerCancel)
	rg.POST("/orders/:id/rating", h.Rate)
	rg.POST("/orders/:id/tip", h.Tip)
	rg.POST("/orders/:id/tip/skip", h.SkipTip)
}

// RegisterAdminRoutes expects rg to be authenticated with the admin role.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/orders", h.AdminList)
	rg.GET("/orders/:id", h.AdminGet)
	rg.POST("/orders/:id/confirm", h.Confirm)
	rg.POST("/orders/:id/complete", h.AdminComplete)
	rg.POST("/orders/:id/cancel", h.AdminCancel)
	rg.DELETE("/orders/:id", h.Delete)
	rg.POST("/orders/:id/payment/mark-paid", h.MarkPaid)
	rg.POST("/orders/:id/payment/mark-failed", h.MarkFailed)
	rg.POST("/orders/:id/payment/switch-to-cash", h.SwitchToCash)
}

func (h *Handler) Create(c *gin.Context) {
	g, ok := h.customer(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := g.Create(c.Request.Context(), CreateOrderInput{
		PackageID:     req.PackageID,
		Extras:        req.Extras,
		ScheduledAt:   req.ScheduledAt,
		BeforePhoto:   req.BeforePhoto,
		Address:       req.Address,
		Notes:         req.Notes,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"order": view})
}

func (h *Handler) ListMine(c *gin.Context) {
	g, ok := h.customer(c)
	if !ok {
		return
	}
	q, ok := bindList(c)
	if !ok {
		return
	}
	views, total, err := g.List(c.Request.Context(), q)
	if err != nil {
		WriteError(c, err)
		return
	}
	q = q.normalized()
	response.Page(c, views, q.Limit, q.Offset, gin.H{"total": total})
}

func (h *Handler) GetMine(c *gin.Context) {
	g, ok := h.customer(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	respond(c)(g.Get(c.Request.Context(), id))
}

func (h *Handler) UploadAfterPhoto(c *gin.Context) {
	g, ok := h.customer(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req AfterPhotoRequest
	if !bindJSON(c, &req) {
		return
	}
	respond(c)(g.UploadAfterPhoto(c.Request.Context(), id, req.AfterPhoto))
}

func (h *Handler) CustomerComplete(c *gin.Context) {
	g, ok := h.customer(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	respond(c)(g.Complete(c.Request.Context(), id))
}

func (h *Handler) CustomerCancel(c *gin.Context) {
	g, ok := h.customer(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req CancelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	respond(c)(g.Cancel(c.Request.Context(), id, req.Reason))
}

func (h *Handler) Rate(c *gin.Context) {
	g, ok := h.customer(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req RatingRequest
	if !bindJSON(c, &req) {
		return
	}
	respond(c)(g.Rate(c.Request.Context(), id, req.Score, req.Comment))
}

func (h *Handler) Tip(c *gin.Context) {
	g, ok := h.customer(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req TipRequest
	if !bindJSON(c, &req) {
		return
	}
	respond(c)(g.Tip(c.Request.Context(), id, req.Amount))
}

func (h *Handler) SkipTip(c *gin.Context) {
	g, ok := h.customer(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	respond(c)(g.SkipTip(c.Request.Context(), id))
}

func (h *Handler) AdminList(c *gin.Context) {
	g, ok := h.admin(c)
	if !ok {
		return
	}
	q, ok := bindList(c)
	if !ok {
		return
	}
	views, total, err := g.List(c.Request.Context(), q)
	if err != nil {
		WriteError(c, err)
		return
	}
	q = q.normalized()
	response.Page(c, views, q.Limit, q.Offset, gin.H{"total": total})
}

func (h *Handler) AdminGet(c *gin.Context) {
	g, ok := h.admin(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	respond(c)(g.Get(c.Request.Context(), id))
}

func (h *Handler) Confirm(c *gin.Context) {
	g, ok := h.admin(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req ConfirmRequest
	if !bindJSON(c, &req) {
		return
	}
	respond(c)(g.ConfirmAndAssign(c.Request.Context(), id, req.StaffID))
}

func (h *Handler) AdminComplete(c *gin.Context) {
	h.adminCommand(c, (*AdminGateway).Complete)
}

func (h *Handler) AdminCancel(c *gin.Context) {
	g, ok := h.admin(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req CancelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	respond(c)(g.Cancel(c.Request.Context(), id, req.Reason))
}

func (h *Handler) Delete(c *gin.Context) {
	g, ok := h.admin(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	if err := g.Delete(c.Request.Context(), id); err != nil {
		WriteError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true, "order_id": id})
}

func (h *Handler) MarkPaid(c *gin.Context) {
	h.adminCommand(c, (*AdminGateway).MarkPaymentPaid)
}

func (h *Handler) MarkFailed(c *gin.Context) {
	h.adminCommand(c, (*AdminGateway).MarkPaymentFailed)
}

func (h *Handler) SwitchToCash(c *gin.Context) {
	h.adminCommand(c, (*AdminGateway).SwitchPaymentToCash)
}

// adminCommand runs a body-less admin command on the order in the path.
func (h *Handler) adminCommand(c *gin.Context, cmd func(*AdminGateway, context.Context, int64) (*OrderView, error)) {
	g, ok := h.admin(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	respond(c)(cmd(g, c.Request.Context(), id))
}

func (h *Handler) customer(c *gin.Context) (*CustomerGateway, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return nil, false
	}
	g, err := h.service.ForCustomer(actor)
	if err != nil {
		WriteError(c, err)
		return nil, false
	}
	return g, true
}

func (h *Handler) admin(c *gin.Context) (*AdminGateway, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return nil, false
	}
	g, err := h.service.ForAdmin(actor)
	if err != nil {
		WriteError(c, err)
		return nil, false
	}
	return g, true
}

func respond(c *gin.Context) func(*OrderView, error) {
	return func(view *OrderView, err error) {
		if err != nil {
			WriteError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"order": view})
	}
}

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID")
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Fields(err))
		return false
	}
	if fields := validator.Validate(req); fields != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", fields)
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, req)
}

func bindList(c *gin.Context) (ListQuery, bool) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query", validator.Fields(err))
		return ListQuery{}, false
	}
	return ListQuery{Status: domain.OrderStatus(req.Status), Limit: req.Limit, Offset: req.Offset}, true
}

// WriteError maps lifecycle errors onto the JSON error envelope.
func WriteError(c *gin.Context, err error) {
	var le *Error
	if errors.As(err, &le) {
		response.ErrorWithDetails(c, statusFor(le.Kind), KindCode(le.Kind), le.Error(), le.Details())
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		response.Error(c, http.StatusServiceUnavailable, "REQUEST_CANCELLED", "Request was cancelled before it was applied")
		return
	}
	_ = c.Error(err)
	response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

func statusFor(kind error) int {
	switch kind {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrTimeGateRejected, ErrPaymentNotReady:
		return http.StatusUnprocessableEntity
	case ErrInvalidTransition, ErrAlreadyRated, ErrConcurrentModification:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
