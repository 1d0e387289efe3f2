package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-registrar-api/internal/models"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
)

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, search string, p models.Pagination) ([]models.Student, int, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type courseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	AddPrerequisite(ctx context.Context, courseID, prereqID string) error
}

type facultyStore interface {
	List(ctx context.Context) ([]models.Faculty, error)
	Create(ctx context.Context, faculty *models.Faculty) error
}

// CreateStudentRequest registers a new learner in the catalogue.
type CreateStudentRequest struct {
	StudentNo string `json:"student_no" validate:"required"`
	Username  string `json:"username" validate:"required"`
	FullName  string `json:"full_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Program   string `json:"program"`
}

// UpdateStudentRequest carries mutable student attributes.
type UpdateStudentRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Program  string `json:"program"`
	Active   *bool  `json:"active" validate:"required"`
}

// CreateCourseRequest adds a catalogue entry.
type CreateCourseRequest struct {
	Code        string `json:"code" validate:"required"`
	Title       string `json:"title" validate:"required"`
	CreditHours int    `json:"credit_hours" validate:"gt=0"`
}

// AddPrerequisiteRequest links an existing course as a prerequisite.
type AddPrerequisiteRequest struct {
	PrerequisiteID string `json:"prerequisite_id" validate:"required"`
}

// CreateFacultyRequest registers a new instructor.
type CreateFacultyRequest struct {
	Username   string `json:"username" validate:"required"`
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department"`
}

// CatalogService manages the student, course, and instructor registries
// that sections and registrations reference.
type CatalogService struct {
	students  studentStore
	courses   courseStore
	faculty   facultyStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(students studentStore, courses courseStore, faculty facultyStore, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{students: students, courses: courses, faculty: faculty, validator: validate, logger: logger}
}

// ListStudents returns students matching an optional search term.
func (s *CatalogService) ListStudents(ctx context.Context, search string, p models.Pagination) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, search, p)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	pagination := &models.Pagination{Page: page, PageSize: p.Limit(), TotalCount: total}
	return students, pagination, nil
}

// CreateStudent adds a student; new students start active.
func (s *CatalogService) CreateStudent(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		StudentNo: req.StudentNo,
		Username:  req.Username,
		FullName:  req.FullName,
		Email:     req.Email,
		Program:   req.Program,
		Active:    true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("student_no", student.StudentNo))
	return student, nil
}

// UpdateStudent replaces a student's mutable attributes.
func (s *CatalogService) UpdateStudent(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	student.FullName = req.FullName
	student.Email = req.Email
	student.Program = req.Program
	student.Active = *req.Active
	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// ListCourses returns the course catalogue.
func (s *CatalogService) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// CreateCourse adds a catalogue entry.
func (s *CatalogService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Code:        req.Code,
		Title:       req.Title,
		CreditHours: req.CreditHours,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// AddPrerequisite requires prereq to be satisfied before registering for
// any section of the course. Both courses must already exist and a
// course cannot require itself.
func (s *CatalogService) AddPrerequisite(ctx context.Context, courseID string, req AddPrerequisiteRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisite payload")
	}
	if req.PrerequisiteID == courseID {
		return appErrors.Clone(appErrors.ErrValidation, "a course cannot be its own prerequisite")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.courses.FindByID(ctx, req.PrerequisiteID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "prerequisite course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisite course")
	}
	if err := s.courses.AddPrerequisite(ctx, courseID, req.PrerequisiteID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add prerequisite")
	}
	s.logger.Info("prerequisite added",
		zap.String("course_id", courseID),
		zap.String("prerequisite_id", req.PrerequisiteID))
	return nil
}

// ListFaculty returns all instructors.
func (s *CatalogService) ListFaculty(ctx context.Context) ([]models.Faculty, error) {
	faculty, err := s.faculty.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	return faculty, nil
}

// CreateFaculty registers an instructor.
func (s *CatalogService) CreateFaculty(ctx context.Context, req CreateFacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	faculty := &models.Faculty{
		Username:   req.Username,
		FullName:   req.FullName,
		Email:      req.Email,
		Department: req.Department,
	}
	if err := s.faculty.Create(ctx, faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty member")
	}
	s.logger.Info("faculty member created", zap.String("faculty_id", faculty.ID), zap.String("username", faculty.Username))
	return faculty, nil
}
