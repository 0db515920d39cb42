package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushq/registrar-api/internal/models"
	"github.com/campushq/registrar-api/internal/service"
	appErrors "github.com/campushq/registrar-api/pkg/errors"
	"github.com/campushq/registrar-api/pkg/response"
)

// RegistrationHandler exposes enrollment endpoints for students and instructors.
type RegistrationHandler struct {
	service *service.RegistrationService
	metrics *service.MetricsService
}

// NewRegistrationHandler creates a new handler.
func NewRegistrationHandler(svc *service.RegistrationService, metrics *service.MetricsService) *RegistrationHandler {
	return &RegistrationHandler{service: svc, metrics: metrics}
}

// Register godoc
// @Summary Register for a section
// @Description Enroll the authenticated student in a section
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	enrollment, err := h.service.Register(c.Request.Context(), claims.PrincipalID, req)
	if err != nil {
		h.countRegistration(err)
		response.Error(c, err)
		return
	}

	h.countRegistration(nil)
	response.Created(c, enrollment)
}

// Drop godoc
// @Summary Drop an enrollment
// @Description Drop the authenticated student's enrollment
// @Tags Registrations
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204 {object} response.Envelope
// @Router /registrations/{id}/drop [post]
func (h *RegistrationHandler) Drop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Drop(c.Request.Context(), claims.PrincipalID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// List godoc
// @Summary List own registrations
// @Tags Registrations
// @Produce json
// @Param status query string false "Enrollment status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.EnrollmentFilter{
		Status:    models.EnrollmentStatus(c.Query("status")),
		Page:      parseIntQuery(c, "page", 1),
		PageSize:  parseIntQuery(c, "page_size", 20),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	enrollments, pagination, err := h.service.ListForStudent(c.Request.Context(), claims.PrincipalID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// SetGrade godoc
// @Summary Assign a grade
// @Description Set the grade on an enrollment in a section taught by the caller
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.SetGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrollments/{id}/grade [put]
func (h *RegistrationHandler) SetGrade(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SetGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	enrollment, err := h.service.SetGrade(c.Request.Context(), claims.PrincipalID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Remove godoc
// @Summary Remove a student from a section
// @Description Drop an enrollment in a section taught by the caller
// @Tags Grading
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrollments/{id}/remove [post]
func (h *RegistrationHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.RemoveFromSection(c.Request.Context(), claims.PrincipalID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// BulkSetGrades godoc
// @Summary Submit grades for a section
// @Description Apply grades per enrollment, skipping rows that fail
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.BulkGradeRequest true "Grades payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sections/{id}/grades [put]
func (h *RegistrationHandler) BulkSetGrades(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.BulkGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grades payload"))
		return
	}

	result, err := h.service.BulkSetGrades(c.Request.Context(), claims.PrincipalID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Roster godoc
// @Summary Section roster
// @Description List active enrollments for a section taught by the caller
// @Tags Grading
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sections/{id}/roster [get]
func (h *RegistrationHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	roster, err := h.service.Roster(c.Request.Context(), claims.PrincipalID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, roster, nil)
}

func (h *RegistrationHandler) countRegistration(err error) {
	if h.metrics == nil {
		return
	}
	if err == nil {
		h.metrics.CountRegistration("registered")
		return
	}
	switch appErrors.FromError(err).Code {
	case appErrors.ErrAlreadyEnrolled.Code:
		h.metrics.CountRegistration("duplicate")
	case appErrors.ErrSectionFull.Code:
		h.metrics.CountRegistration("full")
	default:
		h.metrics.CountRegistration("error")
	}
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
