package models

// SelectionItem is one transient subject/section pick held while a student
// assembles an enrollment. It carries a snapshot of the section schedule so
// conflict checks do not depend on catalog re-reads.
type SelectionItem struct {
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	SectionID   int    `json:"section_id"`
	Day         string `json:"day"`
	TimeStart   string `json:"time_start"`
	TimeEnd     string `json:"time_end"`
	Room        string `json:"room"`
	Units       int    `json:"units"`
}

// Window returns the item's schedule snapshot as a comparable window.
func (i SelectionItem) Window() ScheduleWindow {
	return ScheduleWindow{Day: i.Day, TimeStart: i.TimeStart, TimeEnd: i.TimeEnd}
}

// Selection is the ordered set of picks owned by one student.
type Selection []SelectionItem

// Contains reports whether a subject code is already picked.
func (s Selection) Contains(subjectCode string) bool {
	for _, item := range s {
		if item.SubjectCode == subjectCode {
			return true
		}
	}
	return false
}

// TotalUnits sums the unit counts across the selection.
func (s Selection) TotalUnits() int {
	total := 0
	for _, item := range s {
		total += item.Units
	}
	return total
}

// CorequisiteSuggestion advertises a companion subject alongside an accepted
// candidate. Advisory only, never enforced.
type CorequisiteSuggestion struct {
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	Units       int    `json:"units"`
	SectionID   int    `json:"section_id"`
	Day         string `json:"section_day"`
	TimeStart   string `json:"section_time_start"`
	TimeEnd     string `json:"section_time_end"`
	Room        string `json:"section_room"`
}

// Verdict is the outcome of validating one candidate subject/section against
// a selection.
type Verdict struct {
	Valid        bool                    `json:"valid"`
	Message      string                  `json:"message"`
	Corequisites []CorequisiteSuggestion `json:"corequisites,omitempty"`
}

// Reject builds a rejection verdict.
func Reject(message string) Verdict {
	return Verdict{Valid: false, Message: message}
}

// Accept builds an accepted verdict carrying any corequisite suggestions.
func Accept(message string, coreqs []CorequisiteSuggestion) Verdict {
	return Verdict{Valid: true, Message: message, Corequisites: coreqs}
}
