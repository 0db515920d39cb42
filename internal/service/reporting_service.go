package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/campushq/registrar-api/internal/models"
	appErrors "github.com/campushq/registrar-api/pkg/errors"
	"github.com/campushq/registrar-api/pkg/export"
)

type reportRepository interface {
	AverageGPAByDepartment(ctx context.Context, departmentID string) ([]models.DepartmentGPA, error)
	AverageGPAForCourse(ctx context.Context, courseID string, from, to *models.Period) (*models.CourseGPA, error)
	BestCourses(ctx context.Context, semester string, year, limit int) ([]models.CourseGPA, error)
	WorstCourses(ctx context.Context, semester string, year, limit int) ([]models.CourseGPA, error)
	StudentCountsByDepartment(ctx context.Context) ([]models.DepartmentStudentCounts, error)
}

// Export formats accepted by the report export endpoints.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

const (
	defaultRankingSize   = 5
	defaultExportMaxRows = 5000
)

// ReportingService computes the aggregate reports.
type ReportingService struct {
	repo          reportRepository
	cache         *CacheService
	exportMaxRows int
	logger        *zap.Logger
}

// NewReportingService constructs ReportingService. exportMaxRows caps the row
// count of exported documents; zero or negative selects the default.
func NewReportingService(repo reportRepository, cache *CacheService, exportMaxRows int, logger *zap.Logger) *ReportingService {
	if exportMaxRows <= 0 {
		exportMaxRows = defaultExportMaxRows
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingService{repo: repo, cache: cache, exportMaxRows: exportMaxRows, logger: logger}
}

// DepartmentGPA returns average GPA per department, optionally restricted to
// one department. Grades outside the letter table never contribute.
func (s *ReportingService) DepartmentGPA(ctx context.Context, departmentID string) ([]models.DepartmentGPA, error) {
	key := "reports:dept-gpa:" + departmentID
	var cached []models.DepartmentGPA
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.repo.AverageGPAByDepartment(ctx, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute department gpa")
	}
	s.cache.Set(ctx, key, rows)
	return rows, nil
}

// CourseGPA returns the average GPA for a course, optionally bounded by an
// inclusive (year, semester) range.
func (s *ReportingService) CourseGPA(ctx context.Context, courseID string, from, to *models.Period) (*models.CourseGPA, error) {
	row, err := s.repo.AverageGPAForCourse(ctx, courseID, from, to)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute course gpa")
	}
	return row, nil
}

// CourseRanking returns the top-N and bottom-N courses by average GPA for a
// term, excluding courses with no qualifying grades.
func (s *ReportingService) CourseRanking(ctx context.Context, semester string, year, topN int) (*models.CourseRanking, error) {
	if semester == "" || year <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester and year are required")
	}
	if topN <= 0 {
		topN = defaultRankingSize
	}

	key := fmt.Sprintf("reports:ranking:%s:%d:%d", semester, year, topN)
	var cached models.CourseRanking
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	best, err := s.repo.BestCourses(ctx, semester, year, topN)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute best courses")
	}
	worst, err := s.repo.WorstCourses(ctx, semester, year, topN)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute worst courses")
	}

	ranking := &models.CourseRanking{Semester: semester, Year: year, Best: best, Worst: worst}
	s.cache.Set(ctx, key, ranking)
	return ranking, nil
}

// StudentCounts returns distinct student participation per department.
func (s *ReportingService) StudentCounts(ctx context.Context) ([]models.DepartmentStudentCounts, error) {
	key := "reports:student-counts"
	var cached []models.DepartmentStudentCounts
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.repo.StudentCountsByDepartment(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute student counts")
	}
	s.cache.Set(ctx, key, rows)
	return rows, nil
}

// ExportDepartmentGPA renders the departmental report as CSV or PDF bytes,
// returning the content type alongside.
func (s *ReportingService) ExportDepartmentGPA(ctx context.Context, departmentID, format string) ([]byte, string, error) {
	rows, err := s.DepartmentGPA(ctx, departmentID)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{
		Title:   "Average GPA by Department",
		Headers: []string{"Department", "Average GPA", "Sample Size"},
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.DepartmentName,
			strconv.FormatFloat(row.AverageGPA, 'f', 2, 64),
			strconv.Itoa(row.SampleSize),
		})
	}
	s.capExportRows(&table)

	return renderTable(table, format)
}

// ExportCourseRanking renders the term ranking report as CSV or PDF bytes.
func (s *ReportingService) ExportCourseRanking(ctx context.Context, semester string, year, topN int, format string) ([]byte, string, error) {
	ranking, err := s.CourseRanking(ctx, semester, year, topN)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{
		Title:   fmt.Sprintf("Course GPA Ranking %s %d", semester, year),
		Headers: []string{"Group", "Course", "Title", "Average GPA", "Sample Size"},
	}
	appendRows := func(group string, rows []models.CourseGPA) {
		for _, row := range rows {
			table.Rows = append(table.Rows, []string{
				group,
				row.CourseCode,
				row.CourseTitle,
				strconv.FormatFloat(row.AverageGPA, 'f', 2, 64),
				strconv.Itoa(row.SampleSize),
			})
		}
	}
	appendRows("best", ranking.Best)
	appendRows("worst", ranking.Worst)
	s.capExportRows(&table)

	return renderTable(table, format)
}

// capExportRows truncates oversized exports so a runaway report cannot produce
// an unbounded document.
func (s *ReportingService) capExportRows(table *export.Table) {
	if len(table.Rows) <= s.exportMaxRows {
		return
	}
	s.logger.Warn("export truncated",
		zap.Int("rows", len(table.Rows)),
		zap.Int("max_rows", s.exportMaxRows))
	table.Rows = table.Rows[:s.exportMaxRows]
}

func renderTable(table export.Table, format string) ([]byte, string, error) {
	switch format {
	case ExportFormatCSV, "":
		payload, err := export.CSV(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case ExportFormatPDF:
		payload, err := export.PDF(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
