package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/service"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/response"
)

// TimetableHandler wires timetable, generation and export services to HTTP
// routes.
type TimetableHandler struct {
	timetable *service.TimetableService
	generator *service.GeneratorService
	exports   *service.ExportService
}

// NewTimetableHandler constructs a new TimetableHandler.
func NewTimetableHandler(timetable *service.TimetableService, generator *service.GeneratorService, exports *service.ExportService) *TimetableHandler {
	return &TimetableHandler{timetable: timetable, generator: generator, exports: exports}
}

// List godoc
// @Summary List published timetable entries
// @Tags Timetable
// @Produce json
// @Param semester query string false "Filter by semester"
// @Param course query string false "Filter by course ID"
// @Param instructor query string false "Filter by instructor ID"
// @Param room query string false "Filter by room ID"
// @Param day query int false "Filter by ISO weekday (1=Monday)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	filter := models.TimetableFilter{
		Semester:     strings.TrimSpace(c.Query("semester")),
		CourseID:     strings.TrimSpace(c.Query("course")),
		InstructorID: strings.TrimSpace(c.Query("instructor")),
		RoomID:       strings.TrimSpace(c.Query("room")),
	}
	if day := c.Query("day"); day != "" {
		if parsed, err := strconv.Atoi(day); err == nil {
			filter.Day = &parsed
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	entries, pagination, err := h.timetable.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// CheckConflict godoc
// @Summary Check a proposed placement against the published timetable
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.CheckConflictRequest true "Proposed placement"
// @Success 200 {object} response.Envelope
// @Router /timetable/conflicts [post]
func (h *TimetableHandler) CheckConflict(c *gin.Context) {
	var req dto.CheckConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	result, err := h.timetable.CheckConflict(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ClearSemester godoc
// @Summary Remove a semester's published timetable
// @Tags Timetable
// @Param semester path string true "Semester"
// @Success 204
// @Router /timetable/{semester} [delete]
func (h *TimetableHandler) ClearSemester(c *gin.Context) {
	if err := h.timetable.ClearSemester(c.Request.Context(), c.Param("semester")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Generate godoc
// @Summary Queue a timetable generation run
// @Tags Generation
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation parameters"
// @Success 202 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}

	requestedBy := ""
	if claims := claimsFromContext(c); claims != nil {
		requestedBy = claims.UserID
	}

	resp, err := h.generator.Generate(c.Request.Context(), req, requestedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, resp, nil)
}

// JobStatus godoc
// @Summary Get generation job status
// @Tags Generation
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/jobs/{id} [get]
func (h *TimetableHandler) JobStatus(c *gin.Context) {
	job, err := h.generator.JobStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// ListJobs godoc
// @Summary List generation jobs for a semester, newest first
// @Tags Generation
// @Produce json
// @Param semester query string true "Semester"
// @Param limit query int false "Maximum jobs to return"
// @Success 200 {object} response.Envelope
// @Router /timetable/jobs [get]
func (h *TimetableHandler) ListJobs(c *gin.Context) {
	limit := 20
	if parsed, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		limit = parsed
	}
	jobs, err := h.generator.ListJobs(c.Request.Context(), strings.TrimSpace(c.Query("semester")), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// Statistics godoc
// @Summary Aggregate statistics for a semester's published timetable
// @Tags Generation
// @Produce json
// @Param semester query string true "Semester"
// @Success 200 {object} response.Envelope
// @Router /timetable/statistics [get]
func (h *TimetableHandler) Statistics(c *gin.Context) {
	stats, err := h.generator.Statistics(c.Request.Context(), strings.TrimSpace(c.Query("semester")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Download a semester's timetable as CSV or PDF
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param semester query string true "Semester"
// @Param format query string false "Export format (csv or pdf, default csv)"
// @Success 200 {file} binary
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exports.ExportSemester(c.Request.Context(), strings.TrimSpace(c.Query("semester")), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
