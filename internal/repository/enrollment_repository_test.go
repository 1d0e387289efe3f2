package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-registrar-api/internal/models"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
)

func recordRow(id, sectionID, studentID string, status models.EnrollmentStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "section_id", "student_id", "status", "component_scores", "weighting",
		"final_grade", "joined_at", "updated_at",
	}).AddRow(id, sectionID, studentID, status, []byte(`{}`), []byte(`{}`), 0.0, now, now)
}

func TestEnrollmentRepositoryFindBySectionAndStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, section_id, student_id")).
		WithArgs("sec-1", "stu-1").
		WillReturnRows(recordRow("rec-1", "sec-1", "stu-1", models.EnrollmentStatusEnrolled))

	record, err := repo.FindBySectionAndStudent(context.Background(), "sec-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, "rec-1", record.ID)
	require.Equal(t, models.EnrollmentStatusEnrolled, record.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryStatsBySection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS count")).
		WithArgs("sec-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count", "average", "max", "min"}).
			AddRow(3, 81.5, 92.0, 70.0))

	stats, err := repo.StatsBySection(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, 3, stats.Count)
	require.InDelta(t, 81.5, stats.Average, 1e-9)
	require.InDelta(t, 92.0, stats.Max, 1e-9)
	require.InDelta(t, 70.0, stats.Min, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func expectLoadSection(mock sqlmock.Sqlmock, sectionID string, enrolled, waitlist []string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, title")).
		WithArgs(sectionID).
		WillReturnRows(sectionRow(sectionID))

	enrolledRows := sqlmock.NewRows([]string{"student_id"})
	for _, id := range enrolled {
		enrolledRows.AddRow(id)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM enrollment_records")).
		WithArgs(sectionID, models.EnrollmentStatusEnrolled).
		WillReturnRows(enrolledRows)

	waitlistRows := sqlmock.NewRows([]string{"student_id"})
	for _, id := range waitlist {
		waitlistRows.AddRow(id)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM section_waitlist")).
		WithArgs(sectionID).
		WillReturnRows(waitlistRows)
}

func TestAtomicRegisterExistingStudentIsNoOp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	expectLoadSection(mock, "sec-1", []string{"stu-1"}, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, section_id, student_id")).
		WithArgs("sec-1", "stu-1").
		WillReturnRows(recordRow("rec-1", "sec-1", "stu-1", models.EnrollmentStatusEnrolled))
	mock.ExpectCommit()

	record, waitlistLen, err := repo.AtomicRegister(context.Background(), "sec-1", "stu-1", 0)
	require.NoError(t, err)
	require.Equal(t, "rec-1", record.ID)
	require.Equal(t, models.EnrollmentStatusEnrolled, record.Status)
	require.Zero(t, waitlistLen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicRegisterGrantsSeat(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	expectLoadSection(mock, "sec-1", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO enrollment_records")).
		WillReturnRows(recordRow("rec-new", "sec-1", "stu-9", models.EnrollmentStatusEnrolled))
	mock.ExpectCommit()

	record, waitlistLen, err := repo.AtomicRegister(context.Background(), "sec-1", "stu-9", 0)
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusEnrolled, record.Status)
	require.Zero(t, waitlistLen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicRegisterReusesDroppedRecord(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	now := time.Now()

	// A DROPPED student is absent from both seat lists, so the upsert
	// path runs and hands back the original record with its scores.
	mock.ExpectBegin()
	expectLoadSection(mock, "sec-1", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO enrollment_records")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "section_id", "student_id", "status", "component_scores", "weighting",
			"final_grade", "joined_at", "updated_at",
		}).AddRow("rec-old", "sec-1", "stu-1", models.EnrollmentStatusEnrolled,
			[]byte(`{"midterm":77}`), []byte(`{}`), 0.0, now, now))
	mock.ExpectCommit()

	record, waitlistLen, err := repo.AtomicRegister(context.Background(), "sec-1", "stu-1", 0)
	require.NoError(t, err)
	require.Equal(t, "rec-old", record.ID)
	require.Equal(t, models.EnrollmentStatusEnrolled, record.Status)
	require.InDelta(t, 77.0, record.ComponentScores["midterm"], 1e-9)
	require.Zero(t, waitlistLen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicRegisterCreditLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	expectLoadSection(mock, "sec-1", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.credit_hours FROM courses")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"credit_hours"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(c.credit_hours), 0)")).
		WithArgs("stu-9", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(22))
	mock.ExpectRollback()

	_, _, err := repo.AtomicRegister(context.Background(), "sec-1", "stu-9", 24)
	require.True(t, appErrors.HasCode(err, appErrors.ErrCreditLimit))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicDropWaitlistedStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	expectLoadSection(mock, "sec-1", []string{"stu-1"}, []string{"stu-2"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, section_id, student_id")).
		WithArgs("sec-1", "stu-2").
		WillReturnRows(recordRow("rec-2", "sec-1", "stu-2", models.EnrollmentStatusWaitlisted))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollment_records SET status")).
		WithArgs(models.EnrollmentStatusDropped, sqlmock.AnyArg(), "rec-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM section_waitlist")).
		WithArgs("sec-1", "stu-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.AtomicDrop(context.Background(), "sec-1", "stu-2")
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusDropped, result.Dropped.Status)
	require.Nil(t, result.Promoted, "dropping a waitlisted student frees no seat")
	require.Zero(t, result.WaitlistLength)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicDropMissingRecord(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	expectLoadSection(mock, "sec-1", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, section_id, student_id")).
		WithArgs("sec-1", "stu-9").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.AtomicDrop(context.Background(), "sec-1", "stu-9")
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}
