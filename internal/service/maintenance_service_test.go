package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
)

type mockMaintenanceStore struct {
	enabled bool
}

func (m *mockMaintenanceStore) MaintenanceMode(ctx context.Context) (bool, error) {
	return m.enabled, nil
}

func (m *mockMaintenanceStore) SetMaintenanceMode(ctx context.Context, enabled bool) error {
	m.enabled = enabled
	return nil
}

func TestMaintenanceToggle(t *testing.T) {
	store := &mockMaintenanceStore{}
	svc := NewMaintenanceService(store, nil)
	ctx := context.Background()

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Enabled)

	status, err = svc.Set(ctx, admin(), true)
	require.NoError(t, err)
	assert.True(t, status.Enabled)
	assert.True(t, store.enabled)
}

func TestMaintenanceSetRequiresAdmin(t *testing.T) {
	store := &mockMaintenanceStore{}
	svc := NewMaintenanceService(store, nil)
	ctx := context.Background()

	_, err := svc.Set(ctx, nil, true)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))

	_, err = svc.Set(ctx, studentActor("alice"), true)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
	assert.False(t, store.enabled)
}
