package payment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"roomclean/internal/pkg/logger"
	"roomclean/internal/pkg/response"
	"roomclean/internal/pkg/validator"
)

// CallbackProcessor applies a gateway outcome to an order's payment.
type CallbackProcessor interface {
	MarkPaymentPaid(ctx context.Context, orderID int64) error
	MarkPaymentFailed(ctx context.Context, orderID int64) error
}

// ErrorWriter renders a processor error as an HTTP response.
type ErrorWriter func(c *gin.Context, err error)

type Handler struct {
	processor  CallbackProcessor
	writeError ErrorWriter
	log        *zap.Logger
}

func NewHandler(processor CallbackProcessor, writeError ErrorWriter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{processor: processor, writeError: writeError, log: log}
}

// RegisterCallbackRoutes expects rg to be protected by the gateway token.
func (h *Handler) RegisterCallbackRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/callback", h.Callback)
}

func (h *Handler) Callback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid callback payload", validator.Fields(err))
		return
	}

	log := logger.With(c.Request.Context(), h.log).With(
		zap.Int64("order_id", req.OrderID),
		zap.String("status", req.Status),
		zap.String("reference", req.Reference),
	)

	var err error
	switch req.Status {
	case CallbackPaid:
		err = h.processor.MarkPaymentPaid(c.Request.Context(), req.OrderID)
	case CallbackFailed:
		err = h.processor.MarkPaymentFailed(c.Request.Context(), req.OrderID)
	}
	if err != nil {
		log.Warn("payment callback rejected", zap.Error(err))
		h.writeError(c, err)
		return
	}

	log.Info("payment callback applied")
	response.Success(c, http.StatusOK, gin.H{"order_id": req.OrderID, "status": req.Status})
}
