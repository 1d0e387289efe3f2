package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-registrar-api/internal/service"
	"github.com/noah-isme/campus-registrar-api/pkg/response"
)

// ExportHandler streams roster and gradebook documents.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Roster godoc
// @Summary Export a section roster
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Section ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /sections/{id}/export/roster [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	file, err := h.exports.Roster(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, file)
}

// Gradebook godoc
// @Summary Export a section gradebook
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Section ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /sections/{id}/export/gradebook [get]
func (h *ExportHandler) Gradebook(c *gin.Context) {
	file, err := h.exports.Gradebook(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, file)
}

func serveExport(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
