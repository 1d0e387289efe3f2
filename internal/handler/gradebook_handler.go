package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-registrar-api/internal/service"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
	"github.com/noah-isme/campus-registrar-api/pkg/response"
)

// GradebookHandler exposes assessment and grading endpoints.
type GradebookHandler struct {
	gradebook *service.GradebookService
}

// NewGradebookHandler constructs GradebookHandler.
func NewGradebookHandler(gradebook *service.GradebookService) *GradebookHandler {
	return &GradebookHandler{gradebook: gradebook}
}

// DefineAssessments godoc
// @Summary Replace a section's assessment weight scheme
// @Tags Gradebook
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.DefineAssessmentsRequest true "Weight scheme"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/assessments [put]
func (h *GradebookHandler) DefineAssessments(c *gin.Context) {
	var req service.DefineAssessmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.gradebook.DefineAssessments(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// RecordScore godoc
// @Summary Record a component score for a student
// @Tags Gradebook
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.RecordScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/scores [post]
func (h *GradebookHandler) RecordScore(c *gin.Context) {
	var req service.RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.gradebook.RecordScore(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// ComputeFinal godoc
// @Summary Compute and store a student's final grade
// @Tags Gradebook
// @Produce json
// @Param id path string true "Section ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/grades/{studentId}/final [post]
func (h *GradebookHandler) ComputeFinal(c *gin.Context) {
	record, err := h.gradebook.ComputeFinal(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Stats godoc
// @Summary Final grade statistics for a section
// @Tags Gradebook
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/grades/stats [get]
func (h *GradebookHandler) Stats(c *gin.Context) {
	stats, err := h.gradebook.StatsForSection(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
