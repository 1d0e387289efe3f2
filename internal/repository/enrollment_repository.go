package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-registrar-api/internal/models"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
)

const recordColumns = `id, section_id, student_id, status, component_scores, weighting, final_grade, joined_at, updated_at`

// EnrollmentRepository persists enrollment records and owns the atomic
// register/drop transitions. Both run inside a transaction that locks
// the section row (SELECT ... FOR UPDATE), so the capacity check and the
// list mutation are never separated by a window another request could
// slip through. Different sections lock different rows and do not
// contend.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindBySectionAndStudent returns the record for a (section, student) pair.
func (r *EnrollmentRepository) FindBySectionAndStudent(ctx context.Context, sectionID, studentID string) (*models.EnrollmentRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollment_records WHERE section_id = $1 AND student_id = $2", recordColumns)
	var record models.EnrollmentRecord
	if err := r.db.GetContext(ctx, &record, query, sectionID, studentID); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListBySection returns all records for a section with student context.
func (r *EnrollmentRepository) ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT er.id, er.section_id, er.student_id, er.status, er.component_scores, er.weighting,
        er.final_grade, er.joined_at, er.updated_at,
        st.full_name AS student_name, st.student_no AS student_no, se.title AS section_title
        FROM enrollment_records er
        JOIN students st ON st.id = er.student_id
        JOIN sections se ON se.id = er.section_id
        WHERE er.section_id = $1 ORDER BY er.joined_at, er.id`
	var records []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &records, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section enrollments: %w", err)
	}
	return records, nil
}

// ListByStudent returns all records for a student with section context.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT er.id, er.section_id, er.student_id, er.status, er.component_scores, er.weighting,
        er.final_grade, er.joined_at, er.updated_at,
        st.full_name AS student_name, st.student_no AS student_no, se.title AS section_title
        FROM enrollment_records er
        JOIN students st ON st.id = er.student_id
        JOIN sections se ON se.id = er.section_id
        WHERE er.student_id = $1 ORDER BY er.joined_at, er.id`
	var records []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return records, nil
}

// ListEnrolledSections returns the sections a student currently holds a
// seat in, used for schedule-conflict detection.
func (r *EnrollmentRepository) ListEnrolledSections(ctx context.Context, studentID string) ([]models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE id IN (
        SELECT section_id FROM enrollment_records WHERE student_id = $1 AND status = $2)`, sectionColumns)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list enrolled sections: %w", err)
	}
	return sections, nil
}

// WaitlistBySection returns the FIFO waitlist with student names.
func (r *EnrollmentRepository) WaitlistBySection(ctx context.Context, sectionID string) ([]models.WaitlistEntry, error) {
	const query = `SELECT w.student_id, st.full_name AS student_name, w.position
        FROM section_waitlist w
        JOIN students st ON st.id = w.student_id
        WHERE w.section_id = $1 ORDER BY w.position`
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, sectionID); err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	return entries, nil
}

// SaveScores persists the record's component score sheet.
func (r *EnrollmentRepository) SaveScores(ctx context.Context, record *models.EnrollmentRecord) error {
	const query = `UPDATE enrollment_records SET component_scores = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, record.ComponentScores, record.UpdatedAt, record.ID); err != nil {
		return fmt.Errorf("save scores: %w", err)
	}
	return nil
}

// SaveFinal persists the computed final grade together with its
// weighting snapshot; the two always change as a unit.
func (r *EnrollmentRepository) SaveFinal(ctx context.Context, record *models.EnrollmentRecord) error {
	const query = `UPDATE enrollment_records SET final_grade = $1, weighting = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, record.FinalGrade, record.Weighting, record.UpdatedAt, record.ID); err != nil {
		return fmt.Errorf("save final grade: %w", err)
	}
	return nil
}

// StatsBySection aggregates final grades over currently enrolled students.
func (r *EnrollmentRepository) StatsBySection(ctx context.Context, sectionID string) (*models.GradeStats, error) {
	const query = `SELECT COUNT(*) AS count,
        COALESCE(AVG(final_grade), 0) AS average,
        COALESCE(MAX(final_grade), 0) AS max,
        COALESCE(MIN(final_grade), 0) AS min
        FROM enrollment_records WHERE section_id = $1 AND status = $2`
	var stats models.GradeStats
	if err := r.db.GetContext(ctx, &stats, query, sectionID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("section grade stats: %w", err)
	}
	return &stats, nil
}

// AtomicRegister performs the admission decision and transition as one
// unit: under the section lock it checks capacity and either grants a
// seat or appends to the waitlist tail. Registering a student who
// already holds a seat or waitlist slot returns the existing record
// unchanged. A DROPPED record is reused so prior scores survive
// re-registration. maxTermCredits > 0 enforces the per-term credit
// ceiling when a seat would be granted. The second return value is the
// section's waitlist length after the transition.
func (r *EnrollmentRepository) AtomicRegister(ctx context.Context, sectionID, studentID string, maxTermCredits int) (*models.EnrollmentRecord, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin register: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	section, err := loadSection(ctx, tx, sectionID, true)
	if err != nil {
		return nil, 0, err
	}

	if section.HasStudent(studentID) {
		record, err := findRecordTx(ctx, tx, sectionID, studentID)
		if err != nil {
			return nil, 0, err
		}
		if err := tx.Commit(); err != nil {
			return nil, 0, fmt.Errorf("commit register: %w", err)
		}
		return record, len(section.Waitlist), nil
	}

	hasSeat := !section.IsFull()

	if hasSeat && maxTermCredits > 0 {
		var courseCredits int
		const creditsQuery = `SELECT c.credit_hours FROM courses c JOIN sections s ON s.course_id = c.id WHERE s.id = $1`
		if err := tx.GetContext(ctx, &courseCredits, creditsQuery, sectionID); err != nil {
			return nil, 0, fmt.Errorf("load course credits: %w", err)
		}
		var currentCredits int
		const loadQuery = `SELECT COALESCE(SUM(c.credit_hours), 0) FROM enrollment_records er
            JOIN sections s ON s.id = er.section_id
            JOIN courses c ON c.id = s.course_id
            WHERE er.student_id = $1 AND er.status = $2`
		if err := tx.GetContext(ctx, &currentCredits, loadQuery, studentID, models.EnrollmentStatusEnrolled); err != nil {
			return nil, 0, fmt.Errorf("load enrolled credits: %w", err)
		}
		if currentCredits+courseCredits > maxTermCredits {
			return nil, 0, appErrors.Clone(appErrors.ErrCreditLimit,
				fmt.Sprintf("credit load would exceed the maximum of %d hours", maxTermCredits))
		}
	}

	status := models.EnrollmentStatusWaitlisted
	if hasSeat {
		section.EnrollStudent(studentID)
		status = models.EnrollmentStatusEnrolled
	} else {
		section.WaitlistStudent(studentID)
	}

	now := time.Now().UTC()
	upsert := fmt.Sprintf(`INSERT INTO enrollment_records (id, section_id, student_id, status, component_scores, weighting, final_grade, joined_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $7)
        ON CONFLICT (section_id, student_id)
        DO UPDATE SET status = EXCLUDED.status, joined_at = EXCLUDED.joined_at, updated_at = EXCLUDED.updated_at
        RETURNING %s`, recordColumns)
	var record models.EnrollmentRecord
	if err := tx.GetContext(ctx, &record, upsert,
		uuid.NewString(), sectionID, studentID, status, models.FloatMap{}, models.FloatMap{}, now); err != nil {
		return nil, 0, fmt.Errorf("upsert enrollment record: %w", err)
	}

	if !hasSeat {
		const enqueue = `INSERT INTO section_waitlist (section_id, student_id, position)
            VALUES ($1, $2, COALESCE((SELECT MAX(position) FROM section_waitlist WHERE section_id = $1), 0) + 1)`
		if _, err := tx.ExecContext(ctx, enqueue, sectionID, studentID); err != nil {
			return nil, 0, fmt.Errorf("enqueue waitlist: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit register: %w", err)
	}
	return &record, len(section.Waitlist), nil
}

// AtomicDrop removes the student from whichever list holds them and,
// when the dropped student held a seat, promotes the waitlist head in
// the same transaction. Dropping a waitlisted student never triggers a
// promotion.
func (r *EnrollmentRepository) AtomicDrop(ctx context.Context, sectionID, studentID string) (*models.DropResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin drop: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	section, err := loadSection(ctx, tx, sectionID, true)
	if err != nil {
		return nil, err
	}

	record, err := findRecordTx(ctx, tx, sectionID, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in the section")
		}
		return nil, err
	}
	if !record.Active() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in the section")
	}

	previousStatus := record.Status
	section.RemoveStudent(studentID)

	now := time.Now().UTC()
	record.Status = models.EnrollmentStatusDropped
	record.UpdatedAt = now
	if err := updateStatusTx(ctx, tx, record.ID, models.EnrollmentStatusDropped, now); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM section_waitlist WHERE section_id = $1 AND student_id = $2`, sectionID, studentID); err != nil {
		return nil, fmt.Errorf("dequeue waitlist: %w", err)
	}

	result := &models.DropResult{Dropped: record}

	if previousStatus == models.EnrollmentStatusEnrolled {
		if promotedID := section.PromoteNextWaitlisted(); promotedID != "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM section_waitlist WHERE section_id = $1 AND student_id = $2`, sectionID, promotedID); err != nil {
				return nil, fmt.Errorf("dequeue promoted student: %w", err)
			}
			promoted, err := findRecordTx(ctx, tx, sectionID, promotedID)
			if err != nil {
				return nil, fmt.Errorf("load promoted record: %w", err)
			}
			promoted.Status = models.EnrollmentStatusEnrolled
			promoted.JoinedAt = now
			promoted.UpdatedAt = now
			const promote = `UPDATE enrollment_records SET status = $1, joined_at = $2, updated_at = $2 WHERE id = $3`
			if _, err := tx.ExecContext(ctx, promote, models.EnrollmentStatusEnrolled, now, promoted.ID); err != nil {
				return nil, fmt.Errorf("promote waitlisted student: %w", err)
			}
			result.Promoted = promoted
		}
	}
	result.WaitlistLength = len(section.Waitlist)

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit drop: %w", err)
	}
	return result, nil
}

func findRecordTx(ctx context.Context, tx *sqlx.Tx, sectionID, studentID string) (*models.EnrollmentRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollment_records WHERE section_id = $1 AND student_id = $2", recordColumns)
	var record models.EnrollmentRecord
	if err := tx.GetContext(ctx, &record, query, sectionID, studentID); err != nil {
		return nil, err
	}
	return &record, nil
}

func updateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.EnrollmentStatus, ts time.Time) error {
	const query = `UPDATE enrollment_records SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, status, ts, id); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}
