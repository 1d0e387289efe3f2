package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-registrar-api/internal/models"
)

const courseColumns = `id, code, title, credit_hours, created_at, updated_at`

// CourseRepository handles course catalogue persistence.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by primary key.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns the full course catalogue ordered by code.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses ORDER BY code", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, title, credit_hours, created_at, updated_at)
        VALUES (:id, :code, :title, :credit_hours, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// AddPrerequisite records that prereqID must be completed before courseID.
func (r *CourseRepository) AddPrerequisite(ctx context.Context, courseID, prereqID string) error {
	const query = `INSERT INTO course_prerequisites (course_id, prerequisite_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, courseID, prereqID); err != nil {
		return fmt.Errorf("add prerequisite: %w", err)
	}
	return nil
}

// passingGrade is the minimum final grade that satisfies a prerequisite.
const passingGrade = 40

// MissingPrerequisites returns the course codes the student has not yet
// satisfied among the course's prerequisites. A prerequisite counts as
// satisfied when the student passed any section of it, or currently
// holds a seat or waitlist slot in one (taking it concurrently).
func (r *CourseRepository) MissingPrerequisites(ctx context.Context, studentID, courseID string) ([]string, error) {
	const query = `SELECT c.code FROM course_prerequisites cp
        JOIN courses c ON c.id = cp.prerequisite_id
        WHERE cp.course_id = $1
        AND NOT EXISTS (
            SELECT 1 FROM enrollment_records er
            JOIN sections s ON s.id = er.section_id
            WHERE s.course_id = cp.prerequisite_id
            AND er.student_id = $2
            AND (er.final_grade >= $3 OR er.status IN ($4, $5))
        )
        ORDER BY c.code`
	var missing []string
	if err := r.db.SelectContext(ctx, &missing, query, courseID, studentID, passingGrade,
		models.EnrollmentStatusEnrolled, models.EnrollmentStatusWaitlisted); err != nil {
		return nil, fmt.Errorf("missing prerequisites: %w", err)
	}
	return missing, nil
}
