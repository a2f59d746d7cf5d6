package entities

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleSuperuser UserRole = "superuser" // full backoffice access
	UserRoleLibrarian UserRole = "librarian" // staff: renewals and catalog management
	UserRoleBorrower  UserRole = "borrower"  // may only see their own loans
)

// Capability names a permission checked by route guards.
type Capability string

const (
	// CapabilityMarkReturned allows renewing loans, listing every loan and
	// managing authors and books.
	CapabilityMarkReturned Capability = "catalog.can_mark_returned"
	// CapabilityAdmin allows access to the administrative backoffice.
	CapabilityAdmin Capability = "catalog.admin"
)

var roleCapabilities = map[UserRole][]Capability{
	UserRoleSuperuser: {CapabilityMarkReturned, CapabilityAdmin},
	UserRoleLibrarian: {CapabilityMarkReturned},
	UserRoleBorrower:  nil,
}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Has reports whether the role grants the capability.
func (r UserRole) Has(capability Capability) bool {
	for _, c := range roleCapabilities[r] {
		if c == capability {
			return true
		}
	}
	return false
}

type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Username         string         `gorm:"uniqueIndex;size:100" json:"username"`
	Email            string         `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash     string         `gorm:"size:255" json:"-"`
	Role             UserRole       `gorm:"size:20;default:'borrower'" json:"role"`
	TokenHash        string         `gorm:"index;size:64" json:"-"`
	TokenCreatedAt   *time.Time     `json:"-"`
	LastLoginAt      *time.Time     `json:"last_login_at,omitempty"`
	FailedLoginCount int            `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time     `json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsStaff reports whether the user may perform staff operations.
func (u *User) IsStaff() bool {
	return u != nil && u.Role.Has(CapabilityMarkReturned)
}

func (User) TableName() string {
	return "users"
}
