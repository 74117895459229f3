package models

import "time"

// Section represents one scheduled offering of a subject.
type Section struct {
	ID          int    `db:"section_id" json:"section_id"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
	Day         string `db:"day" json:"day"`
	TimeStart   string `db:"time_start" json:"time_start"`
	TimeEnd     string `db:"time_end" json:"time_end"`
	Room        string `db:"room" json:"room"`
	Capacity    int    `db:"capacity" json:"capacity"`
}

// Window returns the section's meeting window.
func (s Section) Window() ScheduleWindow {
	return ScheduleWindow{Day: s.Day, TimeStart: s.TimeStart, TimeEnd: s.TimeEnd}
}

// ScheduleWindow is a weekday plus a clock-time interval, treated as half-open.
type ScheduleWindow struct {
	Day       string `json:"day"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
}

// Overlaps reports whether two windows collide. Intervals are half-open, so a
// section ending exactly when another starts does not conflict.
func (w ScheduleWindow) Overlaps(other ScheduleWindow) bool {
	if w.Day != other.Day {
		return false
	}
	s1, err := clockMinutes(w.TimeStart)
	if err != nil {
		return false
	}
	e1, err := clockMinutes(w.TimeEnd)
	if err != nil {
		return false
	}
	s2, err := clockMinutes(other.TimeStart)
	if err != nil {
		return false
	}
	e2, err := clockMinutes(other.TimeEnd)
	if err != nil {
		return false
	}
	return s1 < e2 && s2 < e1
}

func clockMinutes(value string) (int, error) {
	var lastErr error
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
		lastErr = err
	}
	return 0, lastErr
}
