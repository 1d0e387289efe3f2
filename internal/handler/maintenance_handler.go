package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-registrar-api/internal/service"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
	"github.com/noah-isme/campus-registrar-api/pkg/response"
)

// MaintenanceHandler exposes the maintenance toggle.
type MaintenanceHandler struct {
	maintenance *service.MaintenanceService
}

// NewMaintenanceHandler constructs MaintenanceHandler.
func NewMaintenanceHandler(maintenance *service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenance: maintenance}
}

// SetMaintenanceRequest carries the maintenance toggle payload.
type SetMaintenanceRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// Status godoc
// @Summary Current maintenance state
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance [get]
func (h *MaintenanceHandler) Status(c *gin.Context) {
	status, err := h.maintenance.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Set godoc
// @Summary Toggle maintenance mode
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param payload body handler.SetMaintenanceRequest true "Toggle payload"
// @Success 200 {object} response.Envelope
// @Router /maintenance [put]
func (h *MaintenanceHandler) Set(c *gin.Context) {
	var req SetMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	status, err := h.maintenance.Set(c.Request.Context(), actorFromContext(c), *req.Enabled)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
