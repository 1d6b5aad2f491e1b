package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"roomclean/internal/domain"
	"roomclean/internal/middleware"
	"roomclean/internal/pkg/response"
)

type Handler struct {
	service  *Service
	hub      *Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandler(service *Service, hub *Hub, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Callers are authenticated by token, not by cookie.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/notifications")
	{
		g.GET("", h.List)
		g.GET("/unread-count", h.UnreadCount)
		g.PATCH("/:id/read", h.MarkRead)
		g.PATCH("/read-all", h.MarkAllRead)
		g.GET("/ws", h.Stream)
	}
}

func (h *Handler) reader(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
	}
	return actor, ok
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := h.reader(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	unreadOnly := c.Query("unread") == "true"

	inbox, err := h.service.List(c.Request.Context(), actor, unreadOnly, limit, offset)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to get notifications")
		return
	}
	response.Success(c, http.StatusOK, inbox)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	actor, ok := h.reader(c)
	if !ok {
		return
	}
	n, err := h.service.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to count notifications")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread_count": n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	actor, ok := h.reader(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid notification ID")
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), actor, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Notification not found")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to mark as read")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "is_read": true})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	actor, ok := h.reader(c)
	if !ok {
		return
	}
	n, err := h.service.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to mark all as read")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": n})
}

// Stream upgrades to a websocket that receives new notifications.
func (h *Handler) Stream(c *gin.Context) {
	actor, ok := h.reader(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Int64("user_id", actor.ID), zap.Error(err))
		return
	}
	h.hub.Serve(c.Request.Context(), actor, conn)
}
