package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-registrar-api/internal/models"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
)

type mockExportReader struct {
	records  []models.EnrollmentDetail
	waitlist []models.WaitlistEntry
}

func (m *mockExportReader) ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	return m.records, nil
}

func (m *mockExportReader) WaitlistBySection(ctx context.Context, sectionID string) ([]models.WaitlistEntry, error) {
	return m.waitlist, nil
}

func newExportFixture(t *testing.T) *ExportService {
	t.Helper()
	section := &models.Section{
		ID:                "sec-100",
		Title:             "Operating Systems",
		FacultyID:         "fac-turing",
		AssessmentWeights: models.FloatMap{"midterm": 40, "final": 60},
	}
	joined := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	reader := &mockExportReader{
		records: []models.EnrollmentDetail{
			{
				EnrollmentRecord: models.EnrollmentRecord{
					StudentID:       "stu-alice",
					Status:          models.EnrollmentStatusEnrolled,
					ComponentScores: models.FloatMap{"midterm": 85, "final": 80},
					FinalGrade:      82,
					JoinedAt:        joined,
				},
				StudentName: "Alice",
				StudentNo:   "S001",
			},
			{
				EnrollmentRecord: models.EnrollmentRecord{
					StudentID: "stu-bob",
					Status:    models.EnrollmentStatusWaitlisted,
					JoinedAt:  joined,
				},
				StudentName: "Bob",
				StudentNo:   "S002",
			},
			{
				EnrollmentRecord: models.EnrollmentRecord{
					StudentID: "stu-carol",
					Status:    models.EnrollmentStatusDropped,
					JoinedAt:  joined,
				},
				StudentName: "Carol",
				StudentNo:   "S003",
			},
		},
		waitlist: []models.WaitlistEntry{{StudentID: "stu-bob", StudentName: "Bob", Position: 1}},
	}
	return NewExportService(
		&mockSectionReader{sections: map[string]*models.Section{section.ID: section}},
		reader,
		&mockFacultyReader{faculty: map[string]*models.Faculty{
			"turing": {ID: "fac-turing", Username: "turing"},
		}},
		nil,
	)
}

func TestExportRosterCSV(t *testing.T) {
	svc := newExportFixture(t)
	file, err := svc.Roster(context.Background(), instructor(), "sec-100", "csv")
	require.NoError(t, err)
	assert.Equal(t, "roster-sec-100.csv", file.FileName)
	assert.Equal(t, "text/csv", file.ContentType)

	body := string(file.Content)
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "Bob")
	assert.NotContains(t, body, "Carol", "dropped students stay off the roster")

	lines := strings.Split(strings.TrimSpace(body), "\n")
	assert.Len(t, lines, 3)
}

func TestExportGradebookCSV(t *testing.T) {
	svc := newExportFixture(t)
	file, err := svc.Gradebook(context.Background(), instructor(), "sec-100", "")
	require.NoError(t, err)

	body := string(file.Content)
	assert.Contains(t, body, "82.00")
	assert.NotContains(t, body, "Bob", "waitlisted students have no grades to export")
}

func TestExportRosterPDF(t *testing.T) {
	svc := newExportFixture(t)
	file, err := svc.Roster(context.Background(), instructor(), "sec-100", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := newExportFixture(t)
	_, err := svc.Roster(context.Background(), instructor(), "sec-100", "xlsx")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestExportAccessControl(t *testing.T) {
	svc := newExportFixture(t)
	ctx := context.Background()

	_, err := svc.Roster(ctx, nil, "sec-100", "csv")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))

	_, err = svc.Roster(ctx, studentActor("alice"), "sec-100", "csv")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	other := &models.User{ID: "u-x", Username: "nobody", Role: models.RoleFaculty}
	_, err = svc.Roster(ctx, other, "sec-100", "csv")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}
