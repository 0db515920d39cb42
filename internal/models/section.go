package models

// Semester names used by section terms. Values outside this set still sort,
// ranked after Fall.
const (
	SemesterSpring = "Spring"
	SemesterSummer = "Summer"
	SemesterFall   = "Fall"
)

// SemesterRank orders semesters within a year: Spring < Summer < Fall,
// anything unrecognised last.
func SemesterRank(semester string) int {
	switch semester {
	case SemesterSpring:
		return 1
	case SemesterSummer:
		return 2
	case SemesterFall:
		return 3
	default:
		return 4
	}
}

// PeriodCode encodes (year, semester) as a single comparable integer so a
// term range check becomes one numeric comparison.
func PeriodCode(year int, semester string) int {
	return year*10 + SemesterRank(semester)
}

// Section is one scheduled offering of a course in a given term.
type Section struct {
	ID           string `db:"id" json:"id"`
	CourseID     string `db:"course_id" json:"course_id"`
	InstructorID string `db:"instructor_id" json:"instructor_id"`
	Semester     string `db:"semester" json:"semester"`
	Year         int    `db:"year" json:"year"`
	Capacity     int    `db:"capacity" json:"capacity"`
	Schedule     string `db:"schedule" json:"schedule"`
}

// SectionDetail enriches Section with catalog and occupancy info.
type SectionDetail struct {
	Section
	CourseCode     string `db:"course_code" json:"course_code"`
	CourseTitle    string `db:"course_title" json:"course_title"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	EnrolledCount  int    `db:"enrolled_count" json:"enrolled_count"`
}

// SectionFilter defines filters supported by section list endpoints.
type SectionFilter struct {
	CourseID     string
	InstructorID string
	Semester     string
	Year         int
	Page         int
	PageSize     int
}
