package models

import "time"

// EnrollmentStatus represents the admission state of a registration.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled   EnrollmentStatus = "ENROLLED"
	EnrollmentStatusWaitlisted EnrollmentStatus = "WAITLISTED"
	EnrollmentStatusDropped    EnrollmentStatus = "DROPPED"
)

// EnrollmentRecord tracks a student's state for a specific section:
// admission status, component scores, and the computed final grade with
// its weighting snapshot. A drop flips the status rather than deleting
// the record, so grade history survives.
type EnrollmentRecord struct {
	ID              string           `db:"id" json:"id"`
	SectionID       string           `db:"section_id" json:"section_id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	ComponentScores FloatMap         `db:"component_scores" json:"component_scores"`
	// Weighting is the weight scheme captured when the final grade was
	// last computed; later edits to the section's live scheme do not
	// change it until the next computation.
	Weighting  FloatMap  `db:"weighting" json:"weighting"`
	FinalGrade float64   `db:"final_grade" json:"final_grade"`
	JoinedAt   time.Time `db:"joined_at" json:"joined_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// PutScore upserts a component score and touches the record.
func (r *EnrollmentRecord) PutScore(component string, value float64) {
	if r.ComponentScores == nil {
		r.ComponentScores = FloatMap{}
	}
	r.ComponentScores[component] = value
	r.UpdatedAt = time.Now().UTC()
}

// Active reports whether the record still occupies a seat or waitlist slot.
func (r *EnrollmentRecord) Active() bool {
	return r.Status != EnrollmentStatusDropped
}

// DropResult reports the outcome of an atomic drop: the dropped record,
// the promoted waitlist head when a seat was freed, and the waitlist
// length after both transitions.
type DropResult struct {
	Dropped        *EnrollmentRecord `json:"dropped"`
	Promoted       *EnrollmentRecord `json:"promoted,omitempty"`
	WaitlistLength int               `json:"waitlist_length"`
}

// EnrollmentDetail enriches a record with student context for listings.
type EnrollmentDetail struct {
	EnrollmentRecord
	StudentName  string `db:"student_name" json:"student_name"`
	StudentNo    string `db:"student_no" json:"student_no"`
	SectionTitle string `db:"section_title" json:"section_title"`
}

// WaitlistEntry is a student's FIFO position on a section waitlist.
type WaitlistEntry struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	Position    int    `db:"position" json:"position"`
}

// SectionRoster is the staff/instructor view of a section's seats.
type SectionRoster struct {
	Section  *Section           `json:"section"`
	Enrolled []EnrollmentDetail `json:"enrolled"`
	Waitlist []WaitlistEntry    `json:"waitlist"`
}

// GradeStats summarises final grades over a section's enrolled students.
type GradeStats struct {
	Count   int     `db:"count" json:"count"`
	Average float64 `db:"average" json:"average"`
	Max     float64 `db:"max" json:"max"`
	Min     float64 `db:"min" json:"min"`
}
