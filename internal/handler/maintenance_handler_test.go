package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-registrar-api/internal/middleware"
	"github.com/noah-isme/campus-registrar-api/internal/models"
	"github.com/noah-isme/campus-registrar-api/internal/service"
)

type fakeMaintenanceStore struct {
	enabled bool
}

func (f *fakeMaintenanceStore) MaintenanceMode(ctx context.Context) (bool, error) {
	return f.enabled, nil
}

func (f *fakeMaintenanceStore) SetMaintenanceMode(ctx context.Context, enabled bool) error {
	f.enabled = enabled
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "adm-1", Username: "registrar", Role: models.RoleAdmin}
}

func TestMaintenanceHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeMaintenanceStore{enabled: true}
	h := NewMaintenanceHandler(service.NewMaintenanceService(store, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/maintenance", nil)

	h.Status(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data service.MaintenanceStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Enabled)
}

func TestMaintenanceHandlerSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeMaintenanceStore{}
	h := NewMaintenanceHandler(service.NewMaintenanceService(store, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/maintenance", strings.NewReader(`{"enabled":true}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, adminClaims())

	h.Set(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, store.enabled)
}

func TestMaintenanceHandlerSetRejectsMissingPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMaintenanceHandler(service.NewMaintenanceService(&fakeMaintenanceStore{}, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/maintenance", strings.NewReader(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, adminClaims())

	h.Set(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaintenanceHandlerSetUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMaintenanceHandler(service.NewMaintenanceService(&fakeMaintenanceStore{}, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/maintenance", strings.NewReader(`{"enabled":true}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Set(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
