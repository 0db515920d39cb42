package models

// DepartmentGPA is one row of the departmental average report.
type DepartmentGPA struct {
	DepartmentID   string  `db:"department_id" json:"department_id"`
	DepartmentName string  `db:"department_name" json:"department_name"`
	AverageGPA     float64 `db:"average_gpa" json:"average_gpa"`
	SampleSize     int     `db:"sample_size" json:"sample_size"`
}

// CourseGPA is the average for one course, with the number of qualifying
// grades that contributed to it.
type CourseGPA struct {
	CourseID    string  `db:"course_id" json:"course_id"`
	CourseCode  string  `db:"course_code" json:"course_code"`
	CourseTitle string  `db:"course_title" json:"course_title"`
	AverageGPA  float64 `db:"average_gpa" json:"average_gpa"`
	SampleSize  int     `db:"sample_size" json:"sample_size"`
}

// CourseRanking holds the top and bottom courses by average GPA for a term.
type CourseRanking struct {
	Semester string      `json:"semester"`
	Year     int         `json:"year"`
	Best     []CourseGPA `json:"best"`
	Worst    []CourseGPA `json:"worst"`
}

// DepartmentStudentCounts reports distinct student participation per department.
type DepartmentStudentCounts struct {
	DepartmentID      string `db:"department_id" json:"department_id"`
	DepartmentName    string `db:"department_name" json:"department_name"`
	EverEnrolled      int    `db:"ever_enrolled" json:"ever_enrolled"`
	CurrentlyEnrolled int    `db:"currently_enrolled" json:"currently_enrolled"`
}

// Period is an inclusive (year, semester) bound for range-filtered reports.
type Period struct {
	Year     int    `json:"year"`
	Semester string `json:"semester"`
}

// Code returns the single-integer encoding used for range comparison.
func (p Period) Code() int {
	return PeriodCode(p.Year, p.Semester)
}
