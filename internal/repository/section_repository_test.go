package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-registrar-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sectionRow(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "course_id", "title", "faculty_id", "day_of_week", "start_minute", "end_minute",
		"location", "capacity", "enrollment_deadline", "drop_deadline", "semester", "year",
		"assessment_weights", "created_at", "updated_at",
	}).AddRow(id, "course-1", "Operating Systems", "fac-1", int(time.Monday), 540, 600,
		"Hall B", 30, now, now, "FALL", 2026, []byte(`{"midterm":40,"final":60}`), now, now)
}

func TestSectionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, title")).
		WithArgs("sec-1").
		WillReturnRows(sectionRow("sec-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM enrollment_records")).
		WithArgs("sec-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1").AddRow("stu-2"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM section_waitlist")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("stu-3"))

	section, err := repo.FindByID(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, "sec-1", section.ID)
	require.Equal(t, []string{"stu-1", "stu-2"}, section.Enrolled)
	require.Equal(t, []string{"stu-3"}, section.Waitlist)
	require.InDelta(t, 40.0, section.AssessmentWeights["midterm"], 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, title")).
		WithArgs("course-1").
		WillReturnRows(sectionRow("sec-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sections, total, err := repo.List(context.Background(), models.SectionFilter{CourseID: "course-1"})
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryUpdateWeights(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET assessment_weights")).
		WithArgs([]byte(`{"exam":100}`), sqlmock.AnyArg(), "sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateWeights(context.Background(), "sec-1", models.FloatMap{"exam": 100})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryAssignInstructor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET faculty_id")).
		WithArgs("fac-2", sqlmock.AnyArg(), "sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AssignInstructor(context.Background(), "sec-1", "fac-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}
