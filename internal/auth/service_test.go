package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

func TestService_CreateUser(t *testing.T) {
	s := newTestStack(t)

	user := s.createUser(t, "librarian1", entities.UserRoleLibrarian)

	assert.NotZero(t, user.ID)
	assert.Equal(t, entities.UserRoleLibrarian, user.Role)
	assert.NotEqual(t, testPassword, user.PasswordHash)
}

func TestService_CreateUser_Validation(t *testing.T) {
	s := newTestStack(t)
	s.createUser(t, "taken", entities.UserRoleBorrower)

	tests := []struct {
		name                      string
		username, email, password string
		role                      entities.UserRole
		wantErr                   error
	}{
		{"missing username", "", "a@example.com", testPassword, entities.UserRoleBorrower, ErrUsernameRequired},
		{"missing email", "alice", "", testPassword, entities.UserRoleBorrower, ErrEmailRequired},
		{"missing password", "alice", "a@example.com", "", entities.UserRoleBorrower, ErrPasswordRequired},
		{"bad username", "a b", "a@example.com", testPassword, entities.UserRoleBorrower, ErrUsernameInvalid},
		{"bad email", "alice", "not-an-email", testPassword, entities.UserRoleBorrower, ErrEmailInvalid},
		{"unknown role", "alice", "a@example.com", testPassword, entities.UserRole("admin"), ErrInvalidRole},
		{"short password", "alice", "a@example.com", "short", entities.UserRoleBorrower, ErrPasswordTooShort},
		{"duplicate username", "taken", "new@example.com", testPassword, entities.UserRoleBorrower, ErrUserExists},
		{"duplicate email", "fresh", "taken@example.com", testPassword, entities.UserRoleBorrower, ErrUserExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.service.CreateUser(tt.username, tt.email, tt.password, tt.role)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	s := newTestStack(t)
	created := s.createUser(t, "alice", entities.UserRoleBorrower)

	user, err := s.service.Authenticate("alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.NotNil(t, user.LastLoginAt)

	byEmail, err := s.service.Authenticate("alice@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = s.service.Authenticate("alice", "wrong-password-123")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = s.service.Authenticate("nobody", testPassword)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_Authenticate_LocksAccount(t *testing.T) {
	s := newTestStack(t)
	s.createUser(t, "alice", entities.UserRoleBorrower)

	for i := 0; i < s.cfg.MaxLoginAttempts; i++ {
		_, err := s.service.Authenticate("alice", "wrong-password-123")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}

	_, err := s.service.Authenticate("alice", testPassword)
	assert.ErrorIs(t, err, ErrAccountLocked)

	s.service.now = func() time.Time { return time.Now().Add(2 * s.cfg.LockoutDuration) }
	_, err = s.service.Authenticate("alice", testPassword)
	assert.NoError(t, err)
}

func TestService_Tokens(t *testing.T) {
	s := newTestStack(t)
	user := s.createUser(t, "alice", entities.UserRoleBorrower)

	token, err := s.service.GenerateToken(user.ID)
	require.NoError(t, err)

	got, err := s.service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.service.ValidateToken("bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = s.service.ValidateToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	s.service.now = func() time.Time { return time.Now().Add(2 * s.cfg.TokenExpiry) }
	_, err = s.service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	s.service.now = time.Now
	require.NoError(t, s.service.RevokeToken(user.ID))
	_, err = s.service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.service.GenerateToken(999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_ChangePassword(t *testing.T) {
	s := newTestStack(t)
	user := s.createUser(t, "alice", entities.UserRoleBorrower)

	assert.ErrorIs(t, s.service.ChangePassword(user.ID, "wrong-password-123", "another-password-1"), ErrInvalidPassword)
	require.NoError(t, s.service.ChangePassword(user.ID, testPassword, "another-password-1"))

	_, err := s.service.Authenticate("alice", "another-password-1")
	assert.NoError(t, err)
}

func TestService_HasUsers(t *testing.T) {
	s := newTestStack(t)

	has, err := s.service.HasUsers()
	require.NoError(t, err)
	assert.False(t, has)

	s.createUser(t, "alice", entities.UserRoleBorrower)
	has, err = s.service.HasUsers()
	require.NoError(t, err)
	assert.True(t, has)
}
