package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-registrar-api/internal/models"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
	"github.com/noah-isme/campus-registrar-api/pkg/export"
)

// Export formats accepted by the export endpoints.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type exportEnrollmentReader interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error)
	WaitlistBySection(ctx context.Context, sectionID string) ([]models.WaitlistEntry, error)
}

// ExportFile is a rendered document ready to stream to the client.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders section rosters and gradebooks as CSV or PDF.
// Access mirrors the gradebook: administrators and the assigned
// instructor only.
type ExportService struct {
	sections    sectionReader
	enrollments exportEnrollmentReader
	faculty     facultyReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(sections sectionReader, enrollments exportEnrollmentReader, faculty facultyReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		sections:    sections,
		enrollments: enrollments,
		faculty:     faculty,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Roster renders the enrolled and waitlisted students of a section.
func (s *ExportService) Roster(ctx context.Context, actor *models.User, sectionID, format string) (*ExportFile, error) {
	section, err := s.checkAccess(ctx, actor, sectionID)
	if err != nil {
		return nil, err
	}
	records, err := s.enrollments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	waitlist, err := s.enrollments.WaitlistBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist")
	}

	positions := make(map[string]int, len(waitlist))
	for _, entry := range waitlist {
		positions[entry.StudentID] = entry.Position
	}

	data := export.Dataset{Headers: []string{"Student No", "Name", "Status", "Waitlist Position", "Joined At"}}
	for _, record := range records {
		if record.Status == models.EnrollmentStatusDropped {
			continue
		}
		position := ""
		if p, ok := positions[record.StudentID]; ok {
			position = strconv.Itoa(p)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Student No":        record.StudentNo,
			"Name":              record.StudentName,
			"Status":            string(record.Status),
			"Waitlist Position": position,
			"Joined At":         record.JoinedAt.Format(time.RFC3339),
		})
	}

	return s.render(data, format, fmt.Sprintf("roster-%s", section.ID), fmt.Sprintf("Roster: %s", section.Title))
}

// Gradebook renders component scores and final grades for the section.
func (s *ExportService) Gradebook(ctx context.Context, actor *models.User, sectionID, format string) (*ExportFile, error) {
	section, err := s.checkAccess(ctx, actor, sectionID)
	if err != nil {
		return nil, err
	}
	records, err := s.enrollments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gradebook")
	}

	components := make([]string, 0, len(section.AssessmentWeights))
	for component := range section.AssessmentWeights {
		components = append(components, component)
	}
	sort.Strings(components)

	headers := append([]string{"Student No", "Name"}, components...)
	headers = append(headers, "Final Grade")
	data := export.Dataset{Headers: headers}

	for _, record := range records {
		if record.Status != models.EnrollmentStatusEnrolled {
			continue
		}
		row := map[string]string{
			"Student No":  record.StudentNo,
			"Name":        record.StudentName,
			"Final Grade": strconv.FormatFloat(record.FinalGrade, 'f', 2, 64),
		}
		for _, component := range components {
			if score, ok := record.ComponentScores[component]; ok {
				row[component] = strconv.FormatFloat(score, 'f', 2, 64)
			}
		}
		data.Rows = append(data.Rows, row)
	}

	return s.render(data, format, fmt.Sprintf("gradebook-%s", section.ID), fmt.Sprintf("Gradebook: %s", section.Title))
}

func (s *ExportService) checkAccess(ctx context.Context, actor *models.User, sectionID string) (*models.Section, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
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
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors may export section data")
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

func (s *ExportService) render(data export.Dataset, format, baseName, title string) (*ExportFile, error) {
	switch strings.ToLower(format) {
	case FormatCSV, "":
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{FileName: baseName + ".csv", ContentType: "text/csv", Content: content}, nil
	case FormatPDF:
		content, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{FileName: baseName + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+format)
	}
}
