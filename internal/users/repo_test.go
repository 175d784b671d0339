package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  display_name TEXT NOT NULL,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	require.NoError(t, db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_lower_email ON users (LOWER(email));`).Error)
	return db
}

func TestFindByEmailIsCaseInsensitive(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{
		ID:           uuid.New(),
		Email:        "maria@example.com",
		PasswordHash: "hash",
		DisplayName:  "Maria",
	}))

	user, err := repo.FindByEmail(ctx, "MARIA@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", user.Email)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{
		ID:           uuid.New(),
		Email:        "maria@example.com",
		PasswordHash: "hash",
		DisplayName:  "Maria",
	}))

	err := repo.Create(ctx, &models.User{
		ID:           uuid.New(),
		Email:        "Maria@Example.com",
		PasswordHash: "hash",
		DisplayName:  "Maria",
	})
	require.Error(t, err)
}

func TestTouchLastLogin(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, repo.Create(ctx, &models.User{
		ID:           id,
		Email:        "maria@example.com",
		PasswordHash: "hash",
		DisplayName:  "Maria",
	}))

	at := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastLogin(ctx, id, at))

	user, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, user.LastLoginAt)
	assert.WithinDuration(t, at, *user.LastLoginAt, time.Second)
}
