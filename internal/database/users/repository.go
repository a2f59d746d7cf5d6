// Package users provides database operations for library accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByUsernameOrEmail("alice")
package users

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

var ErrNotFound = errors.New("user not found")

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) first(query *gorm.DB) (*entities.User, error) {
	var user entities.User
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts a fully populated user (password already hashed).
func (r *Repository) Create(user *entities.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	return r.first(r.db.Where("id = ?", id))
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(username string) (*entities.User, error) {
	return r.first(r.db.Where("username = ?", username))
}

// GetByUsernameOrEmail matches the login identifier against both columns.
func (r *Repository) GetByUsernameOrEmail(identifier string) (*entities.User, error) {
	return r.first(r.db.Where("username = ? OR email = ?", identifier, identifier))
}

// GetByTokenHash retrieves a user by the SHA-256 hash of their API token.
func (r *Repository) GetByTokenHash(hash string) (*entities.User, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	return r.first(r.db.Where("token_hash = ?", hash))
}

// Exists reports whether the username or email is already taken.
func (r *Repository) Exists(username, email string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

// List returns all users ordered by username.
func (r *Repository) List() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Order("username ASC").Find(&users).Error
	return users, err
}

// Count returns the number of accounts.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

// RecordLogin stamps a successful login and clears the lockout state.
func (r *Repository) RecordLogin(id uint, at time.Time) error {
	return r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"last_login_at":      at,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error
}

// RecordFailedLogin stores the failure counter and an optional lock expiry.
func (r *Repository) RecordFailedLogin(id uint, failures int, lockedUntil *time.Time) error {
	updates := map[string]any{"failed_login_count": failures}
	if lockedUntil != nil {
		updates["locked_until"] = *lockedUntil
	}
	return r.db.Model(&entities.User{}).Where("id = ?", id).Updates(updates).Error
}

// SetTokenHash replaces the API token hash. An empty hash revokes the token.
func (r *Repository) SetTokenHash(id uint, hash string, createdAt *time.Time) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(map[string]any{
		"token_hash":       hash,
		"token_created_at": createdAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePasswordHash stores a new bcrypt hash.
func (r *Repository) UpdatePasswordHash(id uint, hash string) error {
	return r.db.Model(&entities.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}
