package http

import (
	"html/template"

	"github.com/joelsmith11/locallibrary/internal/audit"
	"github.com/joelsmith11/locallibrary/internal/auth"
	"github.com/joelsmith11/locallibrary/internal/config"
	"github.com/joelsmith11/locallibrary/internal/database"
	"github.com/joelsmith11/locallibrary/internal/loans"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Loans    *loans.Service
	Audit    *audit.Service // optional

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth

	// CSRF protection is enabled when a secret is set
	CSRFSecret    []byte
	SecureCookies bool

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Templates, when set, replaces the files under TemplatesPath
	Templates *template.Template

	// Catalog page size (defaults to config.DefaultPageSize)
	PageSize int

	// Application info
	Version string
}
