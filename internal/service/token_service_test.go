package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-registrar-api/internal/models"
	appErrors "github.com/noah-isme/campus-registrar-api/pkg/errors"
)

func TestTokenIssueAndValidate(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	user := &models.User{ID: "u-1", Username: "turing", FullName: "Alan Turing", Role: models.RoleFaculty}
	token, err := svc.Issue(user)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleFaculty, claims.Role)

	actor := claims.Actor()
	require.NotNil(t, actor)
	assert.Equal(t, "turing", actor.Username)
}

func TestTokenValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.Issue(&models.User{ID: "u-1", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestTokenValidateRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	_, err := svc.Validate("not-a-token")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestTokenValidateRejectsExpired(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	svc.expiry = -time.Minute

	token, err := svc.Issue(&models.User{ID: "u-1", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
