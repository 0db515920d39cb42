package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushq/registrar-api/internal/models"
	"github.com/campushq/registrar-api/internal/service"
	appErrors "github.com/campushq/registrar-api/pkg/errors"
	"github.com/campushq/registrar-api/pkg/response"
)

// ProfileHandler exposes principal profile administration.
type ProfileHandler struct {
	service *service.ProfileService
}

// NewProfileHandler creates a new handler.
func NewProfileHandler(svc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Get godoc
// @Summary Get a profile
// @Tags Profiles
// @Produce json
// @Param role path string true "Role" Enums(student, instructor, admin)
// @Param id path string true "Principal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /profiles/{role}/{id} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	role, err := roleFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	profile, err := h.service.Get(c.Request.Context(), c.Param("id"), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Update godoc
// @Summary Update a profile
// @Description Apply a partial profile update; omitted fields keep their values
// @Tags Profiles
// @Accept json
// @Produce json
// @Param role path string true "Role" Enums(student, instructor, admin)
// @Param id path string true "Principal ID"
// @Param payload body models.ProfileUpdate true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /profiles/{role}/{id} [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	role, err := roleFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.service.Update(c.Request.Context(), c.Param("id"), role, update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// AssignAdvisors godoc
// @Summary Assign advisors to students
// @Description Apply assignments per student, skipping rows that fail
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body service.AssignAdvisorsRequest true "Assignments"
// @Success 200 {object} response.Envelope
// @Router /advisors/assign [post]
func (h *ProfileHandler) AssignAdvisors(c *gin.Context) {
	var req service.AssignAdvisorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignments payload"))
		return
	}

	result, err := h.service.AssignAdvisors(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func roleFromPath(c *gin.Context) (models.Role, error) {
	switch strings.ToLower(c.Param("role")) {
	case "student":
		return models.RoleStudent, nil
	case "instructor":
		return models.RoleInstructor, nil
	case "admin":
		return models.RoleAdmin, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
}
