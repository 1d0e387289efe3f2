package models

import "time"

// Section is a scheduled offering of a course with a fixed seat capacity.
// The Enrolled and Waitlist collections are loaded alongside the row and
// are only mutated inside a section-scoped critical region (the store's
// atomic register/drop operations).
type Section struct {
	ID                 string       `db:"id" json:"id"`
	CourseID           string       `db:"course_id" json:"course_id"`
	Title              string       `db:"title" json:"title"`
	FacultyID          string       `db:"faculty_id" json:"faculty_id"`
	DayOfWeek          time.Weekday `db:"day_of_week" json:"day_of_week"`
	StartMinute        int          `db:"start_minute" json:"start_minute"`
	EndMinute          int          `db:"end_minute" json:"end_minute"`
	Location           string       `db:"location" json:"location"`
	Capacity           int          `db:"capacity" json:"capacity"`
	EnrollmentDeadline time.Time    `db:"enrollment_deadline" json:"enrollment_deadline"`
	DropDeadline       time.Time    `db:"drop_deadline" json:"drop_deadline"`
	Semester           string       `db:"semester" json:"semester"`
	Year               int          `db:"year" json:"year"`
	AssessmentWeights  FloatMap     `db:"assessment_weights" json:"assessment_weights"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`

	// Enrolled holds student IDs in enrollment order; Waitlist holds
	// student IDs in FIFO queue order.
	Enrolled []string `db:"-" json:"enrolled,omitempty"`
	Waitlist []string `db:"-" json:"waitlist,omitempty"`
}

// AvailableSeats returns the number of free seats, never negative.
func (s *Section) AvailableSeats() int {
	free := s.Capacity - len(s.Enrolled)
	if free < 0 {
		return 0
	}
	return free
}

// IsFull reports whether every seat is taken.
func (s *Section) IsFull() bool {
	return len(s.Enrolled) >= s.Capacity
}

// HasStudent reports whether the student occupies a seat or a waitlist slot.
func (s *Section) HasStudent(studentID string) bool {
	return contains(s.Enrolled, studentID) || contains(s.Waitlist, studentID)
}

// EnrollStudent grants a seat. Idempotent. Capacity is not checked here;
// callers decide enroll-vs-waitlist under the section's critical region.
func (s *Section) EnrollStudent(studentID string) {
	if !contains(s.Enrolled, studentID) {
		s.Enrolled = append(s.Enrolled, studentID)
	}
}

// WaitlistStudent appends to the tail of the waitlist. Idempotent.
func (s *Section) WaitlistStudent(studentID string) {
	if !contains(s.Waitlist, studentID) {
		s.Waitlist = append(s.Waitlist, studentID)
	}
}

// RemoveStudent removes the student from both collections.
func (s *Section) RemoveStudent(studentID string) {
	s.Enrolled = remove(s.Enrolled, studentID)
	s.Waitlist = remove(s.Waitlist, studentID)
}

// PromoteNextWaitlisted pops the head of the waitlist into the enrolled
// list and returns the promoted student ID, or "" when the waitlist is
// empty. This is the only admission path out of the waitlist.
func (s *Section) PromoteNextWaitlisted() string {
	if len(s.Waitlist) == 0 {
		return ""
	}
	next := s.Waitlist[0]
	s.Waitlist = append([]string(nil), s.Waitlist[1:]...)
	s.EnrollStudent(next)
	return next
}

// Overlaps reports whether two sections meet on the same weekday with
// intersecting time windows (boundaries touching count as overlap).
func (s *Section) Overlaps(other *Section) bool {
	if other == nil || s.DayOfWeek != other.DayOfWeek {
		return false
	}
	return !(other.EndMinute < s.StartMinute || other.StartMinute > s.EndMinute)
}

// ComputeFinalScore applies the section's weight scheme to the supplied
// component scores: sum of score × weight / 100 over the scheme's
// components. A weighted component with no recorded score contributes 0;
// a recorded score with no weight is ignored. Weights are not required
// to sum to 100.
func (s *Section) ComputeFinalScore(scores FloatMap) float64 {
	total := 0.0
	for component, weight := range s.AssessmentWeights {
		total += scores[component] * weight / 100
	}
	return total
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// SectionFilter provides filters for listing sections.
type SectionFilter struct {
	CourseID  string
	FacultyID string
	Semester  string
	Year      int
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
