package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/app"
)

// Notification reports whether the conflict notification is shown.
type Notification interface {
	Visible() bool
}

// SyncHandler exposes the sync coordinator.
type SyncHandler struct {
	sync         *app.SyncCoordinator
	notification Notification
}

// NewSyncHandler creates a sync handler.
func NewSyncHandler(sync *app.SyncCoordinator, notification Notification) *SyncHandler {
	return &SyncHandler{sync: sync, notification: notification}
}

// Status handles GET /api/v1/sync.
func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.status())
}

// Check handles POST /api/v1/sync/check. A failed fetch is reported as 503.
func (h *SyncHandler) Check(c *gin.Context) {
	result, err := h.sync.Check(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CheckOutcome{Result: string(result), Status: h.status()})
}

// Resolve handles POST /api/v1/sync/resolve.
func (h *SyncHandler) Resolve(c *gin.Context) {
	var req dto.ResolveRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	if err := h.sync.Resolve(c.Request.Context(), *req.UseRemote); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.status())
}

func (h *SyncHandler) status() dto.SyncStatus {
	return dto.NewSyncStatus(h.sync.State(), h.notification.Visible(), h.sync.Interval())
}

// RegisterRoutes registers the sync routes on rg.
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	sync.GET("", h.Status)
	sync.POST("/check", h.Check)
	sync.POST("/resolve", h.Resolve)
}
