package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-registrar-api/internal/models"
)

const sectionColumns = `id, course_id, title, faculty_id, day_of_week, start_minute, end_minute,
        location, capacity, enrollment_deadline, drop_deadline, semester, year, assessment_weights,
        created_at, updated_at`

// SectionRepository handles persistence of sections and their seat lists.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns sections filtered by the provided criteria.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error) {
	base := "FROM sections s"
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("s.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("s.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.title ILIKE $%d OR s.id ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"title":      "s.title",
		"capacity":   "s.capacity",
		"created_at": "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.title"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		sectionColumns, base+clause, orderBy, order, size, offset)

	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// FindByID returns a section with its enrolled and waitlist collections.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	section, err := loadSection(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	return section, nil
}

// Create inserts a new section.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	if section.AssessmentWeights == nil {
		section.AssessmentWeights = models.FloatMap{}
	}
	const query = `INSERT INTO sections (id, course_id, title, faculty_id, day_of_week, start_minute, end_minute,
        location, capacity, enrollment_deadline, drop_deadline, semester, year, assessment_weights, created_at, updated_at)
        VALUES (:id, :course_id, :title, :faculty_id, :day_of_week, :start_minute, :end_minute,
        :location, :capacity, :enrollment_deadline, :drop_deadline, :semester, :year, :assessment_weights, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update persists mutable section attributes.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET course_id = :course_id, title = :title, faculty_id = :faculty_id,
        day_of_week = :day_of_week, start_minute = :start_minute, end_minute = :end_minute, location = :location,
        capacity = :capacity, enrollment_deadline = :enrollment_deadline, drop_deadline = :drop_deadline,
        semester = :semester, year = :year, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// Delete removes a section and cascades to its seat lists and records.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// AssignInstructor sets the section's assigned faculty member.
func (r *SectionRepository) AssignInstructor(ctx context.Context, sectionID, facultyID string) error {
	const query = `UPDATE sections SET faculty_id = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, facultyID, time.Now().UTC(), sectionID); err != nil {
		return fmt.Errorf("assign instructor: %w", err)
	}
	return nil
}

// UpdateWeights replaces the section's assessment weight scheme.
func (r *SectionRepository) UpdateWeights(ctx context.Context, sectionID string, weights models.FloatMap) error {
	const query = `UPDATE sections SET assessment_weights = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, weights, time.Now().UTC(), sectionID); err != nil {
		return fmt.Errorf("update assessment weights: %w", err)
	}
	return nil
}

type queryer interface {
	sqlx.QueryerContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// loadSection fetches the section row plus its ordered seat collections.
// With forUpdate set the row is locked for the duration of the caller's
// transaction, forming the per-section critical region.
func loadSection(ctx context.Context, q queryer, id string, forUpdate bool) (*models.Section, error) {
	query := fmt.Sprintf("SELECT %s FROM sections WHERE id = $1", sectionColumns)
	if forUpdate {
		query += " FOR UPDATE"
	}
	var section models.Section
	if err := q.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}

	const enrolledQuery = `SELECT student_id FROM enrollment_records
        WHERE section_id = $1 AND status = $2 ORDER BY joined_at, id`
	if err := q.SelectContext(ctx, &section.Enrolled, enrolledQuery, id, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("load enrolled list: %w", err)
	}

	const waitlistQuery = `SELECT student_id FROM section_waitlist WHERE section_id = $1 ORDER BY position`
	if err := q.SelectContext(ctx, &section.Waitlist, waitlistQuery, id); err != nil {
		return nil, fmt.Errorf("load waitlist: %w", err)
	}
	return &section, nil
}
