package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/photoblog/models"
	"github.com/cppla/photoblog/testutil"
	"github.com/cppla/photoblog/utils"
)

func TestMain(m *testing.M) {
	utils.PasswordCost = bcrypt.MinCost
	m.Run()
}

func TestEnsureDefaultAuthor(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewUserService(db)
	ctx := context.Background()

	existing, created, err := svc.EnsureDefaultAuthor(ctx, testutil.AdminID, "ignored", "pw")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "admin", existing.Username)

	user, created, err := svc.EnsureDefaultAuthor(ctx, 10, "mobile", "s3cret")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint(10), user.ID)

	got, err := svc.Authenticate(ctx, "mobile", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, uint(10), got.ID)

	generated, created, err := svc.EnsureDefaultAuthor(ctx, 11, "robot", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, generated.PasswordHash)
}

func TestAuthenticate(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewUserService(db)
	ctx := context.Background()

	hash, err := utils.HashPassword("letmein")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", testutil.EditorID).Update("password_hash", hash).Error)

	user, err := svc.Authenticate(ctx, " editor ", "letmein")
	require.NoError(t, err)
	assert.Equal(t, testutil.EditorID, user.ID)

	_, err = svc.Authenticate(ctx, "editor", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "letmein")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "admin", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Get(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
