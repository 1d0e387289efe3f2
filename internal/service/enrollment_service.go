package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-registrar-api/internal/models"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
)

type enrollmentStore interface {
	AtomicRegister(ctx context.Context, sectionID, studentID string, maxTermCredits int) (*models.EnrollmentRecord, int, error)
	AtomicDrop(ctx context.Context, sectionID, studentID string) (*models.DropResult, error)
	FindBySectionAndStudent(ctx context.Context, sectionID, studentID string) (*models.EnrollmentRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error)
	ListEnrolledSections(ctx context.Context, studentID string) ([]models.Section, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUsername(ctx context.Context, username string) (*models.Student, error)
}

type prerequisiteChecker interface {
	MissingPrerequisites(ctx context.Context, studentID, courseID string) ([]string, error)
}

type maintenanceReader interface {
	MaintenanceMode(ctx context.Context) (bool, error)
}

type registrationMetrics interface {
	RecordRegistration(status models.EnrollmentStatus)
	RecordPromotion()
	SetWaitlistLength(sectionID string, length int)
}

// RegistrationRequest identifies the section and student for a
// register or drop operation.
type RegistrationRequest struct {
	SectionID string `json:"section_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

// EnrollmentService orchestrates registration and drop workflows:
// access control, deadline checks, prerequisite and schedule validation,
// then the store's atomic transition.
type EnrollmentService struct {
	store          enrollmentStore
	sections       sectionReader
	students       studentReader
	courses        prerequisiteChecker
	settings       maintenanceReader
	metrics        registrationMetrics
	validator      *validator.Validate
	logger         *zap.Logger
	maxTermCredits int
	enforcePrereqs bool
	now            func() time.Time
}

// NewEnrollmentService constructs EnrollmentService. metrics may be nil.
func NewEnrollmentService(
	store enrollmentStore,
	sections sectionReader,
	students studentReader,
	courses prerequisiteChecker,
	settings maintenanceReader,
	metrics registrationMetrics,
	maxTermCredits int,
	enforcePrereqs bool,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		store:          store,
		sections:       sections,
		students:       students,
		courses:        courses,
		settings:       settings,
		metrics:        metrics,
		validator:      validate,
		logger:         logger,
		maxTermCredits: maxTermCredits,
		enforcePrereqs: enforcePrereqs,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// RegisterSection registers a student into a section, granting a seat
// when one is free or a waitlist slot otherwise. Registering a student
// who already holds a seat or slot returns the existing record.
func (s *EnrollmentService) RegisterSection(ctx context.Context, actor *models.User, req RegistrationRequest) (*models.EnrollmentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	section, student, err := s.authorize(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	if s.pastDeadline(section.EnrollmentDeadline) {
		return nil, appErrors.Clone(appErrors.ErrDeadlinePassed, "enrollment deadline has passed for this section")
	}
	if err := s.requireOwnership(actor, student); err != nil {
		return nil, err
	}

	existing, err := s.store.FindBySectionAndStudent(ctx, section.ID, student.ID)
	switch {
	case err == nil:
		if existing.Active() {
			return existing, nil
		}
	case err != sql.ErrNoRows:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing registration")
	}

	if s.enforcePrereqs {
		missing, err := s.courses.MissingPrerequisites(ctx, student.ID, section.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisites")
		}
		if len(missing) > 0 {
			return nil, appErrors.Clone(appErrors.ErrPrerequisites,
				fmt.Sprintf("missing prerequisites: %s", strings.Join(missing, ", ")))
		}
	}

	enrolled, err := s.store.ListEnrolledSections(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule")
	}
	for i := range enrolled {
		if section.Overlaps(&enrolled[i]) {
			return nil, appErrors.Clone(appErrors.ErrScheduleConflict,
				fmt.Sprintf("schedule conflict with section %q", enrolled[i].Title))
		}
	}

	record, waitlistLen, err := s.store.AtomicRegister(ctx, section.ID, student.ID, s.maxTermCredits)
	if err != nil {
		if e := appErrors.FromError(err); e.Code != appErrors.ErrInternal.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register")
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration(record.Status)
		s.metrics.SetWaitlistLength(section.ID, waitlistLen)
	}
	s.logger.Info("registration completed",
		zap.String("section_id", section.ID),
		zap.String("student_id", student.ID),
		zap.String("status", string(record.Status)))
	return record, nil
}

// DropSection removes a student from a section. When the student held a
// seat, the head of the waitlist is promoted in the same transaction.
func (s *EnrollmentService) DropSection(ctx context.Context, actor *models.User, req RegistrationRequest) (*models.DropResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid drop payload")
	}
	section, student, err := s.authorize(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	if s.pastDeadline(section.DropDeadline) {
		return nil, appErrors.Clone(appErrors.ErrDeadlinePassed, "drop deadline has passed for this section")
	}
	if err := s.requireOwnership(actor, student); err != nil {
		return nil, err
	}

	result, err := s.store.AtomicDrop(ctx, section.ID, student.ID)
	if err != nil {
		if e := appErrors.FromError(err); e.Code != appErrors.ErrInternal.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop")
	}

	if s.metrics != nil {
		s.metrics.SetWaitlistLength(section.ID, result.WaitlistLength)
	}
	if result.Promoted != nil {
		if s.metrics != nil {
			s.metrics.RecordPromotion()
		}
		s.logger.Info("waitlisted student promoted",
			zap.String("section_id", section.ID),
			zap.String("student_id", result.Promoted.StudentID))
	}
	return result, nil
}

// MyEnrollments lists the acting student's registrations across sections.
func (s *EnrollmentService) MyEnrollments(ctx context.Context, actor *models.User) ([]models.EnrollmentDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	student, err := s.studentForActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return records, nil
}

// ListForSection lists every record for a section, dropped included.
// Staff view; the roster endpoint filters to active seats.
func (s *EnrollmentService) ListForSection(ctx context.Context, actor *models.User, sectionID string) ([]models.EnrollmentDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	records, err := s.store.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return records, nil
}

// authorize runs the shared access-control gate for register and drop:
// session, maintenance lockout (administrators bypass), and target
// existence.
func (s *EnrollmentService) authorize(ctx context.Context, actor *models.User, req RegistrationRequest) (*models.Section, *models.Student, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}

	locked, err := s.settings.MaintenanceMode(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read maintenance mode")
	}
	if locked && !actor.IsAdmin() {
		return nil, nil, appErrors.ErrMaintenanceLocked
	}

	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	return section, student, nil
}

// requireOwnership restricts student-role actors to their own records.
func (s *EnrollmentService) requireOwnership(actor *models.User, student *models.Student) error {
	if actor.Role == models.RoleStudent && !strings.EqualFold(actor.Username, student.Username) {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only manage their own sections")
	}
	return nil
}

func (s *EnrollmentService) studentForActor(ctx context.Context, actor *models.User) (*models.Student, error) {
	student, err := s.students.FindByUsername(ctx, actor.Username)
	if err == nil {
		return student, nil
	}
	if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
}

// pastDeadline compares at day granularity: the operation stays open
// through the end of the deadline day.
func (s *EnrollmentService) pastDeadline(deadline time.Time) bool {
	if deadline.IsZero() {
		return false
	}
	today := s.now().Truncate(24 * time.Hour)
	day := deadline.UTC().Truncate(24 * time.Hour)
	return today.After(day)
}
