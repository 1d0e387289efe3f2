package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-registrar-api/internal/models"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id string) error
	AssignInstructor(ctx context.Context, sectionID, facultyID string) error
}

type rosterReader interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error)
	WaitlistBySection(ctx context.Context, sectionID string) ([]models.WaitlistEntry, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type facultyByIDReader interface {
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
}

// CreateSectionRequest describes a new scheduled offering.
type CreateSectionRequest struct {
	CourseID           string    `json:"course_id" validate:"required"`
	Title              string    `json:"title" validate:"required"`
	DayOfWeek          int       `json:"day_of_week" validate:"gte=0,lte=6"`
	StartMinute        int       `json:"start_minute" validate:"gte=0,lt=1440"`
	EndMinute          int       `json:"end_minute" validate:"gtefield=StartMinute,lt=1440"`
	Location           string    `json:"location"`
	Capacity           int       `json:"capacity" validate:"gt=0"`
	EnrollmentDeadline time.Time `json:"enrollment_deadline"`
	DropDeadline       time.Time `json:"drop_deadline"`
	Semester           string    `json:"semester" validate:"required"`
	Year               int       `json:"year" validate:"gte=2000"`
}

// UpdateSectionRequest carries mutable section attributes.
type UpdateSectionRequest struct {
	Title              string    `json:"title" validate:"required"`
	DayOfWeek          int       `json:"day_of_week" validate:"gte=0,lte=6"`
	StartMinute        int       `json:"start_minute" validate:"gte=0,lt=1440"`
	EndMinute          int       `json:"end_minute" validate:"gtefield=StartMinute,lt=1440"`
	Location           string    `json:"location"`
	Capacity           int       `json:"capacity" validate:"gt=0"`
	EnrollmentDeadline time.Time `json:"enrollment_deadline"`
	DropDeadline       time.Time `json:"drop_deadline"`
}

// SectionAvailability is the public seat view of a section.
type SectionAvailability struct {
	SectionID      string `json:"section_id"`
	Capacity       int    `json:"capacity"`
	Enrolled       int    `json:"enrolled"`
	AvailableSeats int    `json:"available_seats"`
	WaitlistLength int    `json:"waitlist_length"`
	Full           bool   `json:"full"`
}

// SectionService manages the section catalogue and staff views.
type SectionService struct {
	repo        sectionRepository
	enrollments rosterReader
	courses     courseReader
	faculty     facultyByIDReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionRepository, enrollments rosterReader, courses courseReader, faculty facultyByIDReader, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, enrollments: enrollments, courses: courses, faculty: faculty, validator: validate, logger: logger}
}

// List returns sections with pagination metadata.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return sections, pagination, nil
}

// Get returns a section with its seat collections.
func (s *SectionService) Get(ctx context.Context, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// Availability returns the seat and waitlist counts for a section.
func (s *SectionService) Availability(ctx context.Context, id string) (*SectionAvailability, error) {
	section, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SectionAvailability{
		SectionID:      section.ID,
		Capacity:       section.Capacity,
		Enrolled:       len(section.Enrolled),
		AvailableSeats: section.AvailableSeats(),
		WaitlistLength: len(section.Waitlist),
		Full:           section.IsFull(),
	}, nil
}

// Create adds a section for an existing course.
func (s *SectionService) Create(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	section := &models.Section{
		CourseID:           req.CourseID,
		Title:              req.Title,
		DayOfWeek:          time.Weekday(req.DayOfWeek),
		StartMinute:        req.StartMinute,
		EndMinute:          req.EndMinute,
		Location:           req.Location,
		Capacity:           req.Capacity,
		EnrollmentDeadline: req.EnrollmentDeadline,
		DropDeadline:       req.DropDeadline,
		Semester:           req.Semester,
		Year:               req.Year,
		AssessmentWeights:  models.FloatMap{},
	}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	s.logger.Info("section created", zap.String("section_id", section.ID), zap.String("course_id", section.CourseID))
	return section, nil
}

// Update replaces a section's mutable attributes. Capacity may shrink
// below current enrollment; existing seats are never revoked, the
// section simply stays full until attrition catches up.
func (s *SectionService) Update(ctx context.Context, id string, req UpdateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	section, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	section.Title = req.Title
	section.DayOfWeek = time.Weekday(req.DayOfWeek)
	section.StartMinute = req.StartMinute
	section.EndMinute = req.EndMinute
	section.Location = req.Location
	section.Capacity = req.Capacity
	section.EnrollmentDeadline = req.EnrollmentDeadline
	section.DropDeadline = req.DropDeadline
	if err := s.repo.Update(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return section, nil
}

// Delete removes a section.
func (s *SectionService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	return nil
}

// AssignInstructor sets the section's instructor of record.
func (s *SectionService) AssignInstructor(ctx context.Context, sectionID, facultyID string) (*models.Section, error) {
	section, err := s.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.faculty.FindByID(ctx, facultyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty member")
	}
	if err := s.repo.AssignInstructor(ctx, sectionID, facultyID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign instructor")
	}
	section.FacultyID = facultyID
	return section, nil
}

// Roster returns the staff view of a section's seats and waitlist.
func (s *SectionService) Roster(ctx context.Context, sectionID string) (*models.SectionRoster, error) {
	section, err := s.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	records, err := s.enrollments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	enrolled := make([]models.EnrollmentDetail, 0, len(records))
	for _, record := range records {
		if record.Status == models.EnrollmentStatusEnrolled {
			enrolled = append(enrolled, record)
		}
	}
	waitlist, err := s.enrollments.WaitlistBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist")
	}
	return &models.SectionRoster{Section: section, Enrolled: enrolled, Waitlist: waitlist}, nil
}
