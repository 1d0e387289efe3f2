package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-registrar-api/internal/models"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
)

type maintenanceStore interface {
	MaintenanceMode(ctx context.Context) (bool, error)
	SetMaintenanceMode(ctx context.Context, enabled bool) error
}

// MaintenanceStatus reports the current lockout state.
type MaintenanceStatus struct {
	Enabled bool `json:"enabled"`
}

// MaintenanceService exposes the institution-wide maintenance toggle.
// While enabled, registration and grading are locked for everyone
// except administrators on the registration path.
type MaintenanceService struct {
	store  maintenanceStore
	logger *zap.Logger
}

// NewMaintenanceService constructs MaintenanceService.
func NewMaintenanceService(store maintenanceStore, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{store: store, logger: logger}
}

// Status returns the current maintenance state.
func (s *MaintenanceService) Status(ctx context.Context) (*MaintenanceStatus, error) {
	enabled, err := s.store.MaintenanceMode(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read maintenance mode")
	}
	return &MaintenanceStatus{Enabled: enabled}, nil
}

// Set flips the maintenance flag. Administrators only.
func (s *MaintenanceService) Set(ctx context.Context, actor *models.User, enabled bool) (*MaintenanceStatus, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may toggle maintenance mode")
	}
	if err := s.store.SetMaintenanceMode(ctx, enabled); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set maintenance mode")
	}
	s.logger.Info("maintenance mode changed",
		zap.Bool("enabled", enabled),
		zap.String("actor", actor.Username))
	return &MaintenanceStatus{Enabled: enabled}, nil
}
