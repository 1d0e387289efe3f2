package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-registrar-api/internal/models"
)

func TestCourseRepositoryMissingPrerequisites(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)

	// A prerequisite is satisfied by a final grade at or above the
	// passing threshold or by an active registration in it.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.code FROM course_prerequisites")).
		WithArgs("course-2", "stu-1", passingGrade,
			models.EnrollmentStatusEnrolled, models.EnrollmentStatusWaitlisted).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("CS101").AddRow("MA201"))

	missing, err := repo.MissingPrerequisites(context.Background(), "stu-1", "course-2")
	require.NoError(t, err)
	require.Equal(t, []string{"CS101", "MA201"}, missing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryMissingPrerequisitesNoneMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.code FROM course_prerequisites")).
		WithArgs("course-2", "stu-1", passingGrade,
			models.EnrollmentStatusEnrolled, models.EnrollmentStatusWaitlisted).
		WillReturnRows(sqlmock.NewRows([]string{"code"}))

	missing, err := repo.MissingPrerequisites(context.Background(), "stu-1", "course-2")
	require.NoError(t, err)
	require.Empty(t, missing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryAddPrerequisite(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_prerequisites")).
		WithArgs("course-2", "course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddPrerequisite(context.Background(), "course-2", "course-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
