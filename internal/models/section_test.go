package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSection(capacity int) *Section {
	return &Section{ID: "sec-1", Capacity: capacity}
}

func TestSectionSeatAccounting(t *testing.T) {
	s := newSection(2)
	assert.Equal(t, 2, s.AvailableSeats())
	assert.False(t, s.IsFull())

	s.EnrollStudent("alice")
	s.EnrollStudent("bob")
	assert.Equal(t, 0, s.AvailableSeats())
	assert.True(t, s.IsFull())

	// Over-filled sections never report negative seats.
	s.EnrollStudent("carol")
	assert.Equal(t, 0, s.AvailableSeats())
}

func TestSectionEnrollIdempotent(t *testing.T) {
	s := newSection(3)
	s.EnrollStudent("alice")
	s.EnrollStudent("alice")
	assert.Len(t, s.Enrolled, 1)

	s.WaitlistStudent("bob")
	s.WaitlistStudent("bob")
	assert.Len(t, s.Waitlist, 1)
}

func TestSectionHasStudent(t *testing.T) {
	s := newSection(1)
	s.EnrollStudent("alice")
	s.WaitlistStudent("bob")

	assert.True(t, s.HasStudent("alice"))
	assert.True(t, s.HasStudent("bob"))
	assert.False(t, s.HasStudent("carol"))
}

func TestSectionRemoveStudent(t *testing.T) {
	s := newSection(2)
	s.EnrollStudent("alice")
	s.WaitlistStudent("bob")

	s.RemoveStudent("alice")
	s.RemoveStudent("bob")
	assert.Empty(t, s.Enrolled)
	assert.Empty(t, s.Waitlist)
}

func TestPromoteNextWaitlistedFIFO(t *testing.T) {
	s := newSection(1)
	s.EnrollStudent("alice")
	s.WaitlistStudent("bob")
	s.WaitlistStudent("carol")

	s.RemoveStudent("alice")
	promoted := s.PromoteNextWaitlisted()
	assert.Equal(t, "bob", promoted)
	assert.Equal(t, []string{"bob"}, s.Enrolled)
	assert.Equal(t, []string{"carol"}, s.Waitlist)

	s.RemoveStudent("bob")
	assert.Equal(t, "carol", s.PromoteNextWaitlisted())
}

func TestPromoteNextWaitlistedEmpty(t *testing.T) {
	s := newSection(1)
	assert.Equal(t, "", s.PromoteNextWaitlisted())
	assert.Empty(t, s.Enrolled)
}

func TestSectionOverlaps(t *testing.T) {
	monday := func(start, end int) *Section {
		return &Section{DayOfWeek: time.Monday, StartMinute: start, EndMinute: end}
	}

	a := monday(540, 600)

	assert.True(t, a.Overlaps(monday(570, 630)))
	assert.True(t, a.Overlaps(monday(600, 660)), "shared boundary counts as overlap")
	assert.False(t, a.Overlaps(monday(601, 660)))
	assert.False(t, a.Overlaps(&Section{DayOfWeek: time.Tuesday, StartMinute: 540, EndMinute: 600}))
	assert.False(t, a.Overlaps(nil))
}

func TestComputeFinalScore(t *testing.T) {
	s := newSection(10)
	s.AssessmentWeights = FloatMap{"midterm": 40, "final": 60}

	scores := FloatMap{"midterm": 85, "final": 80}
	final := s.ComputeFinalScore(scores)
	require.InDelta(t, 82.0, final, 1e-9)
}

func TestComputeFinalScoreMissingScore(t *testing.T) {
	s := newSection(10)
	s.AssessmentWeights = FloatMap{"midterm": 40, "final": 60}

	// A weighted component with no recorded score contributes zero.
	final := s.ComputeFinalScore(FloatMap{"final": 80})
	assert.InDelta(t, 48.0, final, 1e-9)
}

func TestComputeFinalScoreUnweightedScoreIgnored(t *testing.T) {
	s := newSection(10)
	s.AssessmentWeights = FloatMap{"final": 100}

	final := s.ComputeFinalScore(FloatMap{"final": 70, "bonus": 100})
	assert.InDelta(t, 70.0, final, 1e-9)
}

func TestComputeFinalScoreEmptyScheme(t *testing.T) {
	s := newSection(10)
	assert.Zero(t, s.ComputeFinalScore(FloatMap{"final": 90}))
}
