package models

import "time"

// EnrollmentStatus represents the lifecycle of a committed enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled EnrollmentStatus = "Enrolled"
)

// Enrollment is the durable record of a student's finalized subject selection
// for one semester. At most one row exists per (student, semester).
type Enrollment struct {
	ID            string           `db:"enrollment_id" json:"enrollment_id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	Semester      string           `db:"semester" json:"semester"`
	DateSubmitted time.Time        `db:"date_submitted" json:"date_submitted"`
	Status        EnrollmentStatus `db:"status" json:"status"`
}

// EnrollmentLine is one committed subject/section of an enrollment.
type EnrollmentLine struct {
	ID           int    `db:"id" json:"id"`
	EnrollmentID string `db:"enrollment_id" json:"enrollment_id"`
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	SectionID    int    `db:"section_id" json:"section_id"`
	Units        int    `db:"units" json:"units"`
}

// EnrollmentLineDetail enriches a line with subject and section context.
type EnrollmentLineDetail struct {
	EnrollmentLine
	SubjectName string `db:"subject_name" json:"subject_name"`
	Day         string `db:"day" json:"day"`
	TimeStart   string `db:"time_start" json:"time_start"`
	TimeEnd     string `db:"time_end" json:"time_end"`
	Room        string `db:"room" json:"room"`
}

// EnrollmentDetail is an enrollment with its lines.
type EnrollmentDetail struct {
	Enrollment
	StudentName string                 `json:"student_name,omitempty"`
	Program     string                 `json:"program,omitempty"`
	Lines       []EnrollmentLineDetail `json:"lines"`
	TotalUnits  int                    `json:"total_units"`
}
