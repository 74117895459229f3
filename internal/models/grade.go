package models

// GradeRecord is one historical grade entry for a student and subject.
type GradeRecord struct {
	ID          int     `db:"id" json:"id"`
	StudentID   string  `db:"student_id" json:"student_id"`
	SubjectCode string  `db:"subject_code" json:"subject_code"`
	Grade       float64 `db:"grade" json:"grade"`
	Passed      bool    `db:"passed" json:"passed"`
}
