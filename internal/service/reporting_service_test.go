package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/registrar-api/internal/models"
	appErrors "github.com/campushq/registrar-api/pkg/errors"
)

type mockReportRepo struct {
	departments []models.DepartmentGPA
	courseGPA   *models.CourseGPA
	courseErr   error
	best        []models.CourseGPA
	worst       []models.CourseGPA
	counts      []models.DepartmentStudentCounts
	calls       int
}

func (m *mockReportRepo) AverageGPAByDepartment(ctx context.Context, departmentID string) ([]models.DepartmentGPA, error) {
	m.calls++
	return m.departments, nil
}

func (m *mockReportRepo) AverageGPAForCourse(ctx context.Context, courseID string, from, to *models.Period) (*models.CourseGPA, error) {
	if m.courseErr != nil {
		return nil, m.courseErr
	}
	return m.courseGPA, nil
}

func (m *mockReportRepo) BestCourses(ctx context.Context, semester string, year, limit int) ([]models.CourseGPA, error) {
	m.calls++
	if len(m.best) > limit {
		return m.best[:limit], nil
	}
	return m.best, nil
}

func (m *mockReportRepo) WorstCourses(ctx context.Context, semester string, year, limit int) ([]models.CourseGPA, error) {
	if len(m.worst) > limit {
		return m.worst[:limit], nil
	}
	return m.worst, nil
}

func (m *mockReportRepo) StudentCountsByDepartment(ctx context.Context) ([]models.DepartmentStudentCounts, error) {
	m.calls++
	return m.counts, nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return nil
}

func TestGradePointTable(t *testing.T) {
	expected := map[string]float64{
		"A": 4.0, "A-": 3.7, "B+": 3.3, "B": 3.0, "B-": 2.7,
		"C+": 2.3, "C": 2.0, "C-": 1.7, "D+": 1.3, "D": 1.0, "F": 0.0,
	}
	for grade, points := range expected {
		got, ok := models.GradePoint(grade)
		require.True(t, ok, "grade %s should map", grade)
		assert.Equal(t, points, got, "grade %s", grade)
	}
}

func TestGradePointExcludesUnknown(t *testing.T) {
	for _, grade := range []string{models.GradeTBD, "", "Pass", "WF", "E"} {
		_, ok := models.GradePoint(grade)
		assert.False(t, ok, "grade %q must not contribute", grade)
	}
}

// A and B average to 3.5; the ungraded enrollment must not pull it down.
func TestGPAAverageSkipsTBD(t *testing.T) {
	grades := []string{"A", "B", models.GradeTBD}
	var sum float64
	var n int
	for _, g := range grades {
		if points, ok := models.GradePoint(g); ok {
			sum += points
			n++
		}
	}
	require.Equal(t, 2, n)
	assert.InDelta(t, 3.5, sum/float64(n), 1e-9)
}

func TestPeriodCode(t *testing.T) {
	assert.Equal(t, 20231, models.PeriodCode(2023, models.SemesterSpring))
	assert.Equal(t, 20232, models.PeriodCode(2023, models.SemesterSummer))
	assert.Equal(t, 20233, models.PeriodCode(2023, models.SemesterFall))
	assert.Equal(t, 20234, models.PeriodCode(2023, "Winter"))

	// Fall sorts before the following Spring.
	assert.Less(t, models.PeriodCode(2023, models.SemesterFall), models.PeriodCode(2024, models.SemesterSpring))
}

func newTestReportingService(repo *mockReportRepo, cacheRepo CacheRepository) *ReportingService {
	var cache *CacheService
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	}
	return NewReportingService(repo, cache, 0, zap.NewNop())
}

func TestDepartmentGPACacheShortCircuits(t *testing.T) {
	repo := &mockReportRepo{departments: []models.DepartmentGPA{
		{DepartmentID: "d1", DepartmentName: "Math", AverageGPA: 3.2, SampleSize: 40},
	}}
	svc := newTestReportingService(repo, &memoryCacheRepo{})

	first, err := svc.DepartmentGPA(context.Background(), "")
	require.NoError(t, err)
	second, err := svc.DepartmentGPA(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)
}

func TestDepartmentGPAWithoutCache(t *testing.T) {
	repo := &mockReportRepo{departments: []models.DepartmentGPA{{DepartmentID: "d1"}}}
	svc := newTestReportingService(repo, nil)

	_, err := svc.DepartmentGPA(context.Background(), "")
	require.NoError(t, err)
	_, err = svc.DepartmentGPA(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestCourseGPANotFound(t *testing.T) {
	repo := &mockReportRepo{courseErr: sql.ErrNoRows}
	svc := newTestReportingService(repo, nil)

	_, err := svc.CourseGPA(context.Background(), "ghost", nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseRankingDefaultsSize(t *testing.T) {
	best := make([]models.CourseGPA, 8)
	for i := range best {
		best[i] = models.CourseGPA{CourseID: string(rune('a' + i)), AverageGPA: 4.0 - float64(i)*0.1, SampleSize: 10}
	}
	repo := &mockReportRepo{best: best, worst: best}
	svc := newTestReportingService(repo, nil)

	ranking, err := svc.CourseRanking(context.Background(), models.SemesterFall, 2023, 0)
	require.NoError(t, err)
	assert.Len(t, ranking.Best, defaultRankingSize)
	assert.Equal(t, models.SemesterFall, ranking.Semester)
	assert.Equal(t, 2023, ranking.Year)
}

func TestCourseRankingRequiresTerm(t *testing.T) {
	svc := newTestReportingService(&mockReportRepo{}, nil)

	_, err := svc.CourseRanking(context.Background(), "", 2023, 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CourseRanking(context.Background(), models.SemesterFall, 0, 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportDepartmentGPACSV(t *testing.T) {
	repo := &mockReportRepo{departments: []models.DepartmentGPA{
		{DepartmentID: "d1", DepartmentName: "Math", AverageGPA: 3.25, SampleSize: 12},
	}}
	svc := newTestReportingService(repo, nil)

	payload, contentType, err := svc.ExportDepartmentGPA(context.Background(), "", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	assert.True(t, strings.Contains(body, "Math"))
	assert.True(t, strings.Contains(body, "3.25"))
}

func TestExportDepartmentGPAPDF(t *testing.T) {
	repo := &mockReportRepo{departments: []models.DepartmentGPA{
		{DepartmentID: "d1", DepartmentName: "Math", AverageGPA: 3.25, SampleSize: 12},
	}}
	svc := newTestReportingService(repo, nil)

	payload, contentType, err := svc.ExportDepartmentGPA(context.Background(), "", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, len(payload) > 0)
}

// Exported documents honor the configured row cap.
func TestExportDepartmentGPATruncatesAtMaxRows(t *testing.T) {
	departments := make([]models.DepartmentGPA, 6)
	for i := range departments {
		departments[i] = models.DepartmentGPA{
			DepartmentID:   string(rune('a' + i)),
			DepartmentName: "Dept " + string(rune('A'+i)),
			AverageGPA:     3.0,
			SampleSize:     10,
		}
	}
	repo := &mockReportRepo{departments: departments}
	svc := NewReportingService(repo, nil, 3, zap.NewNop())

	payload, _, err := svc.ExportDepartmentGPA(context.Background(), "", ExportFormatCSV)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[3], "Dept C")
	assert.NotContains(t, string(payload), "Dept D")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := newTestReportingService(&mockReportRepo{}, nil)

	_, _, err := svc.ExportDepartmentGPA(context.Background(), "", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
