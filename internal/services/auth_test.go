package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub-backend/internal/pkg/apperr"
	"github.com/coursehub/coursehub-backend/internal/pkg/logger"
	"github.com/coursehub/coursehub-backend/internal/repos"
	"github.com/coursehub/coursehub-backend/internal/requestdata"
	"github.com/coursehub/coursehub-backend/internal/types"
)

func newTestAuth(t *testing.T) AuthService {
	t.Helper()
	db := newTestDB(t)
	log := logger.NewNop()
	userRepo := repos.NewUserRepo(db, log)
	return NewAuthService(db, log, userRepo, "test-secret", time.Hour)
}

func TestRegisterLoginTokenRoundTrip(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.RegisterUser(ctx, "Lou Learner", "Lou@Example.Test", "hunter2secret", types.RoleUser)
	require.NoError(t, err)
	require.Equal(t, "lou@example.test", user.Email)
	require.NotEqual(t, "hunter2secret", user.PasswordHash)

	token, loggedIn, err := auth.LoginUser(ctx, "lou@example.test", "hunter2secret")
	require.NoError(t, err)
	require.Equal(t, user.ID, loggedIn.ID)

	withIdentity, err := auth.SetContextFromToken(ctx, token)
	require.NoError(t, err)
	rd := requestdata.GetRequestData(withIdentity)
	require.NotNil(t, rd)
	require.Equal(t, user.ID, rd.UserID)
	require.Equal(t, types.RoleUser, rd.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.RegisterUser(ctx, "Lou Learner", "lou@example.test", "hunter2secret", types.RoleUser)
	require.NoError(t, err)

	_, _, err = auth.LoginUser(ctx, "lou@example.test", "wrong")
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.RegisterUser(ctx, "Lou Learner", "lou@example.test", "hunter2secret", types.RoleUser)
	require.NoError(t, err)

	_, err = auth.RegisterUser(ctx, "Lou Again", "lou@example.test", "hunter2secret", types.RoleUser)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSetContextFromTokenRejectsGarbage(t *testing.T) {
	auth := newTestAuth(t)

	_, err := auth.SetContextFromToken(context.Background(), "not-a-jwt")
	require.Error(t, err)
}
