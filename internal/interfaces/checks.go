package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"database/sql"

	"github.com/joelsmith11/locallibrary/internal/audit"
	"github.com/joelsmith11/locallibrary/internal/auth"
	"github.com/joelsmith11/locallibrary/internal/database/catalog"
	dbloans "github.com/joelsmith11/locallibrary/internal/database/loans"
	"github.com/joelsmith11/locallibrary/internal/database/users"
	"github.com/joelsmith11/locallibrary/internal/http"
	"github.com/joelsmith11/locallibrary/internal/loans"
	"github.com/joelsmith11/locallibrary/internal/scheduler"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Catalog repository
var _ http.CatalogReader = (*catalog.Repository)(nil)
var _ http.CatalogCounter = (*catalog.Repository)(nil)
var _ http.CatalogEditor = (*catalog.Repository)(nil)
var _ http.CatalogAdmin = (*catalog.Repository)(nil)

// Loans repository
var _ http.BorrowedLister = (*dbloans.Repository)(nil)
var _ http.InstanceCounter = (*dbloans.Repository)(nil)
var _ http.InstanceAdmin = (*dbloans.Repository)(nil)
var _ loans.Store = (*dbloans.Repository)(nil)

// Users repository
var _ auth.UserStore = (*users.Repository)(nil)
var _ http.UserLister = (*users.Repository)(nil)

// Health check
var _ http.Pinger = (*sql.DB)(nil)

// =============================================================================
// Services
// =============================================================================

// Renewal workflow
var _ http.Renewer = (*loans.Service)(nil)

// Audit trail
var _ http.AuditLogger = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ auth.AuthRecorder = (*audit.Service)(nil)
var _ scheduler.EventPruner = (*audit.Service)(nil)

// Sessions
var _ http.VisitCounter = (*auth.SessionManager)(nil)
