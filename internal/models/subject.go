package models

// Subject represents an academic subject offered in a program and semester.
type Subject struct {
	Code     string `db:"subject_code" json:"subject_code"`
	Name     string `db:"subject_name" json:"subject_name"`
	Units    int    `db:"units" json:"units"`
	Program  string `db:"program" json:"program"`
	Semester string `db:"semester" json:"semester"`
}

// SubjectOffering is a subject enriched with its sections for catalog browsing.
type SubjectOffering struct {
	Subject
	CrossProgram bool      `json:"is_cross_program,omitempty"`
	Sections     []Section `json:"sections"`
}

// SubjectRelation names a related subject on a prerequisite or corequisite edge.
type SubjectRelation struct {
	Code string `db:"subject_code" json:"subject_code"`
	Name string `db:"subject_name" json:"subject_name"`
}

// SubjectDetail bundles a subject with its edges and sections.
type SubjectDetail struct {
	Subject       Subject           `json:"subject"`
	Prerequisites []SubjectRelation `json:"prerequisites"`
	Corequisites  []SubjectRelation `json:"corequisites"`
	Sections      []Section         `json:"sections"`
}
