package service

import (
	"context"
	"database/sql"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-registrar-api/internal/models"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
)

type gradeStore interface {
	FindBySectionAndStudent(ctx context.Context, sectionID, studentID string) (*models.EnrollmentRecord, error)
	SaveScores(ctx context.Context, record *models.EnrollmentRecord) error
	SaveFinal(ctx context.Context, record *models.EnrollmentRecord) error
	StatsBySection(ctx context.Context, sectionID string) (*models.GradeStats, error)
}

type weightsWriter interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	UpdateWeights(ctx context.Context, sectionID string, weights models.FloatMap) error
}

type facultyReader interface {
	FindByUsername(ctx context.Context, username string) (*models.Faculty, error)
}

// DefineAssessmentsRequest replaces a section's full weight scheme.
type DefineAssessmentsRequest struct {
	Weights map[string]float64 `json:"weights" validate:"required,min=1"`
}

// RecordScoreRequest records one component score for one student.
type RecordScoreRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Component string  `json:"component" validate:"required"`
	Score     float64 `json:"score" validate:"gte=0"`
}

// GradebookService manages assessment schemes, component scores, and
// final grade computation for a section.
type GradebookService struct {
	store     gradeStore
	sections  weightsWriter
	faculty   facultyReader
	settings  maintenanceReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradebookService constructs GradebookService.
func NewGradebookService(store gradeStore, sections weightsWriter, faculty facultyReader, settings maintenanceReader, validate *validator.Validate, logger *zap.Logger) *GradebookService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradebookService{store: store, sections: sections, faculty: faculty, settings: settings, validator: validate, logger: logger}
}

// DefineAssessments replaces the section's weight scheme wholesale.
// Weights are not required to sum to 100; a mismatch is logged so staff
// can catch typos without being blocked mid-term.
func (s *GradebookService) DefineAssessments(ctx context.Context, actor *models.User, sectionID string, req DefineAssessmentsRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	for component, weight := range req.Weights {
		if weight < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "weight for "+component+" must not be negative")
		}
	}
	section, err := s.ensureInstructorAccess(ctx, actor, sectionID)
	if err != nil {
		return nil, err
	}

	weights := models.FloatMap(req.Weights)
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum != 100 {
		s.logger.Warn("assessment weights do not sum to 100",
			zap.String("section_id", sectionID),
			zap.Float64("sum", sum))
	}

	if err := s.sections.UpdateWeights(ctx, sectionID, weights); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assessment weights")
	}
	section.AssessmentWeights = weights
	return section, nil
}

// RecordScore upserts one component score on a student's record. Later
// calls for the same component overwrite the earlier value.
func (s *GradebookService) RecordScore(ctx context.Context, actor *models.User, sectionID string, req RecordScoreRequest) (*models.EnrollmentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}
	if _, err := s.ensureInstructorAccess(ctx, actor, sectionID); err != nil {
		return nil, err
	}
	record, err := s.activeRecord(ctx, sectionID, req.StudentID)
	if err != nil {
		return nil, err
	}
	record.PutScore(req.Component, req.Score)
	if err := s.store.SaveScores(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save score")
	}
	return record, nil
}

// ComputeFinal applies the section's current weight scheme to the
// student's scores and stores the result along with a snapshot of the
// scheme used. Recomputing after a scheme change uses the new scheme;
// until then the stored grade keeps the old snapshot.
func (s *GradebookService) ComputeFinal(ctx context.Context, actor *models.User, sectionID, studentID string) (*models.EnrollmentRecord, error) {
	section, err := s.ensureInstructorAccess(ctx, actor, sectionID)
	if err != nil {
		return nil, err
	}
	record, err := s.activeRecord(ctx, sectionID, studentID)
	if err != nil {
		return nil, err
	}

	final := section.ComputeFinalScore(record.ComponentScores)
	record.FinalGrade = roundGrade(final)
	record.Weighting = section.AssessmentWeights.Clone()
	if err := s.store.SaveFinal(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save final grade")
	}

	s.logger.Info("final grade computed",
		zap.String("section_id", sectionID),
		zap.String("student_id", studentID),
		zap.Float64("final_grade", record.FinalGrade))
	return record, nil
}

// StatsForSection aggregates final grades over enrolled students.
func (s *GradebookService) StatsForSection(ctx context.Context, actor *models.User, sectionID string) (*models.GradeStats, error) {
	if _, err := s.ensureInstructorAccess(ctx, actor, sectionID); err != nil {
		return nil, err
	}
	stats, err := s.store.StatsBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute grade stats")
	}
	return stats, nil
}

// ensureInstructorAccess gates every gradebook mutation: a session must
// exist, maintenance locks everyone out of grading, and only an
// administrator or the section's assigned instructor may proceed.
func (s *GradebookService) ensureInstructorAccess(ctx context.Context, actor *models.User, sectionID string) (*models.Section, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	locked, err := s.settings.MaintenanceMode(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read maintenance mode")
	}
	if locked {
		return nil, appErrors.ErrMaintenanceLocked
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	if actor.IsAdmin() {
		return section, nil
	}
	if actor.Role != models.RoleFaculty {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors may manage the gradebook")
	}

	instructor, err := s.faculty.FindByUsername(ctx, actor.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this section")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor.ID != section.FacultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this section")
	}
	return section, nil
}

func (s *GradebookService) activeRecord(ctx context.Context, sectionID, studentID string) (*models.EnrollmentRecord, error) {
	record, err := s.store.FindBySectionAndStudent(ctx, sectionID, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in section")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment record")
	}
	if !record.Active() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in section")
	}
	return record, nil
}

func roundGrade(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
