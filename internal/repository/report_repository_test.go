package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/registrar-api/internal/models"
)

// The SQL grade mapping is generated from the models grade table; every
// recognised letter must appear with its point value and nothing else maps.
func TestGradePointExprMatchesGradeTable(t *testing.T) {
	for _, letter := range models.LetterGrades() {
		points, ok := models.GradePoint(letter)
		require.True(t, ok, "letter %s must be in the grade table", letter)
		assert.Contains(t, gradePointExpr, fmt.Sprintf("WHEN '%s' THEN %.1f", letter, points))
	}
	assert.Equal(t, len(models.LetterGrades()), strings.Count(gradePointExpr, "WHEN "))
	assert.True(t, strings.HasSuffix(gradePointExpr, "ELSE NULL END"))
	assert.NotContains(t, gradePointExpr, models.GradeTBD)
}

func TestAverageGPAByDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"department_id", "department_name", "average_gpa", "sample_size"}).
		AddRow("d1", "Computer Science", 3.42, 120).
		AddRow("d2", "Mathematics", 3.05, 88)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY d.id, d.name HAVING COUNT(")).
		WillReturnRows(rows)

	result, err := repo.AverageGPAByDepartment(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "Computer Science", result[0].DepartmentName)
	assert.InDelta(t, 3.42, result[0].AverageGPA, 1e-9)
	assert.Equal(t, 120, result[0].SampleSize)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageGPAByDepartmentFiltered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE d.id = $1")).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"department_id", "department_name", "average_gpa", "sample_size"}).
			AddRow("d1", "Computer Science", 3.42, 120))

	result, err := repo.AverageGPAByDepartment(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageGPAForCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "course_code", "course_title", "average_gpa", "sample_size"}).
			AddRow("c1", "CS201", "Data Structures", 3.5, 2))

	result, err := repo.AverageGPAForCourse(context.Background(), "c1", nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, result.AverageGPA, 1e-9)
	assert.Equal(t, 2, result.SampleSize)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageGPAForCourseWithPeriodBounds(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	from := &models.Period{Year: 2022, Semester: models.SemesterFall}
	to := &models.Period{Year: 2023, Semester: models.SemesterSpring}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1")).
		WithArgs("c1", 20223, 20231).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "course_code", "course_title", "average_gpa", "sample_size"}).
			AddRow("c1", "CS201", "Data Structures", 3.0, 10))

	result, err := repo.AverageGPAForCourse(context.Background(), "c1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 10, result.SampleSize)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageGPAForCourseNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "course_code", "course_title", "average_gpa", "sample_size"}))

	_, err := repo.AverageGPAForCourse(context.Background(), "ghost", nil, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestBestAndWorstCoursesOrdering(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY average_gpa DESC, c.code")).
		WithArgs(models.SemesterFall, 2023, 3).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "course_code", "course_title", "average_gpa", "sample_size"}).
			AddRow("c1", "CS201", "Data Structures", 3.9, 25))

	best, err := repo.BestCourses(context.Background(), models.SemesterFall, 2023, 3)
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, "CS201", best[0].CourseCode)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY average_gpa ASC, c.code")).
		WithArgs(models.SemesterFall, 2023, 3).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "course_code", "course_title", "average_gpa", "sample_size"}).
			AddRow("c9", "PHIL340", "Modal Logic", 1.8, 11))

	worst, err := repo.WorstCourses(context.Background(), models.SemesterFall, 2023, 3)
	require.NoError(t, err)
	require.Len(t, worst, 1)
	assert.Equal(t, "PHIL340", worst[0].CourseCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentCountsByDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"department_id", "department_name", "ever_enrolled", "currently_enrolled"}).
		AddRow("d1", "Computer Science", 300, 120).
		AddRow("d2", "Mathematics", 150, 60)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(DISTINCT CASE WHEN e.status = 'enrolled' THEN e.student_id END)")).
		WillReturnRows(rows)

	result, err := repo.StudentCountsByDepartment(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, 300, result[0].EverEnrolled)
	assert.Equal(t, 120, result[0].CurrentlyEnrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}
