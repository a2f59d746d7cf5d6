package users

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := t.TempDir() + "/users.db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func createUser(t *testing.T, repo *Repository, username string) *entities.User {
	t.Helper()
	user := &entities.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         entities.UserRoleBorrower,
	}
	require.NoError(t, repo.Create(user))
	return user
}

func TestRepository_Create(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	user := createUser(t, repo, "testuser")

	assert.NotZero(t, user.ID)
	got, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", got.Username)
	assert.Equal(t, entities.UserRoleBorrower, got.Role)
}

func TestRepository_GetByUsernameOrEmail(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	created := createUser(t, repo, "testuser")

	byName, err := repo.GetByUsernameOrEmail("testuser")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byEmail, err := repo.GetByUsernameOrEmail("testuser@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.GetByUsernameOrEmail("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetByID(999)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_TokenHash(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	user := createUser(t, repo, "testuser")
	now := time.Now()

	require.NoError(t, repo.SetTokenHash(user.ID, "abc123", &now))

	got, err := repo.GetByTokenHash("abc123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotNil(t, got.TokenCreatedAt)

	require.NoError(t, repo.SetTokenHash(user.ID, "", nil))
	_, err = repo.GetByTokenHash("abc123")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByTokenHash("")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.SetTokenHash(999, "x", nil), ErrNotFound)
}

func TestRepository_Exists(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	createUser(t, repo, "testuser")

	exists, err := repo.Exists("testuser", "other@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists("other", "testuser@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists("other", "other@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepository_LoginTracking(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	user := createUser(t, repo, "testuser")
	lockedUntil := time.Now().Add(time.Hour)

	require.NoError(t, repo.RecordFailedLogin(user.ID, 5, &lockedUntil))
	got, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.FailedLoginCount)
	require.NotNil(t, got.LockedUntil)

	require.NoError(t, repo.RecordLogin(user.ID, time.Now()))
	got, err = repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginCount)
	assert.Nil(t, got.LockedUntil)
	assert.NotNil(t, got.LastLoginAt)
}

func TestRepository_ListAndCount(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	createUser(t, repo, "zoe")
	createUser(t, repo, "adam")

	users, err := repo.List()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "adam", users[0].Username)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
