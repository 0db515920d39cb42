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

// ReportHandler exposes GPA and enrollment analytics endpoints.
type ReportHandler struct {
	service *service.ReportingService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportingService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// DepartmentGPA godoc
// @Summary Average GPA per department
// @Description GPA averages over letter-graded enrollments, optionally for one department
// @Tags Reports
// @Produce json
// @Param department_id query string false "Department ID"
// @Success 200 {object} response.Envelope
// @Router /reports/departments/gpa [get]
func (h *ReportHandler) DepartmentGPA(c *gin.Context) {
	results, err := h.service.DepartmentGPA(c.Request.Context(), c.Query("department_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// CourseGPA godoc
// @Summary Average GPA for a course
// @Description GPA over letter-graded enrollments in the course, optionally bounded by term
// @Tags Reports
// @Produce json
// @Param id path string true "Course ID"
// @Param from_year query int false "Start year"
// @Param from_semester query string false "Start semester"
// @Param to_year query int false "End year"
// @Param to_semester query string false "End semester"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/courses/{id}/gpa [get]
func (h *ReportHandler) CourseGPA(c *gin.Context) {
	from := periodFromQuery(c, "from_year", "from_semester")
	to := periodFromQuery(c, "to_year", "to_semester")

	result, err := h.service.CourseGPA(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CourseRanking godoc
// @Summary Best and worst courses by GPA
// @Description Top and bottom courses for a term, excluding courses with no letter grades
// @Tags Reports
// @Produce json
// @Param semester query string true "Semester"
// @Param year query int true "Year"
// @Param top query int false "Ranking size"
// @Success 200 {object} response.Envelope
// @Router /reports/courses/ranking [get]
func (h *ReportHandler) CourseRanking(c *gin.Context) {
	semester, year, err := termFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.CourseRanking(c.Request.Context(), semester, year, parseIntQuery(c, "top", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// StudentCounts godoc
// @Summary Student counts per department
// @Description Distinct ever-enrolled and currently-enrolled students per department
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/departments/students [get]
func (h *ReportHandler) StudentCounts(c *gin.Context) {
	results, err := h.service.StudentCounts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// ExportDepartmentGPA godoc
// @Summary Export department GPA report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param department_id query string false "Department ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} byte
// @Router /reports/departments/gpa/export [get]
func (h *ReportHandler) ExportDepartmentGPA(c *gin.Context) {
	data, contentType, err := h.service.ExportDepartmentGPA(c.Request.Context(), c.Query("department_id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// ExportCourseRanking godoc
// @Summary Export course ranking report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param semester query string true "Semester"
// @Param year query int true "Year"
// @Param top query int false "Ranking size"
// @Param format query string true "csv or pdf"
// @Success 200 {file} byte
// @Router /reports/courses/ranking/export [get]
func (h *ReportHandler) ExportCourseRanking(c *gin.Context) {
	semester, year, err := termFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, contentType, err := h.service.ExportCourseRanking(c.Request.Context(), semester, year, parseIntQuery(c, "top", 0), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

func termFromQuery(c *gin.Context) (string, int, error) {
	semester := c.Query("semester")
	if semester == "" {
		return "", 0, appErrors.Clone(appErrors.ErrValidation, "semester is required")
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year <= 0 {
		return "", 0, appErrors.Clone(appErrors.ErrValidation, "year must be a positive integer")
	}
	return semester, year, nil
}

func periodFromQuery(c *gin.Context, yearKey, semesterKey string) *models.Period {
	rawYear := c.Query(yearKey)
	if rawYear == "" {
		return nil
	}
	year, err := strconv.Atoi(rawYear)
	if err != nil || year <= 0 {
		return nil
	}
	return &models.Period{Year: year, Semester: c.Query(semesterKey)}
}
