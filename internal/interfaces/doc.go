// Package interfaces documents the core abstractions used throughout the application.
//
// Controllers in internal/http depend on narrow, consumer-side interfaces
// (internal/http/stores.go). Services depend on their own store interfaces.
// The gorm repositories under internal/database and the services under
// internal/loans, internal/audit and internal/auth implement them.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - CatalogReader, CatalogCounter: public catalog pages and home statistics
//   - CatalogEditor: staff author/book forms
//   - CatalogAdmin: backoffice genres, languages and inline book titles
//   - BorrowedLister, InstanceCounter, InstanceAdmin: copies and loans
//   - loans.Store: the two operations the renewal workflow needs
//   - auth.UserStore: account persistence
//
// ## Service Interfaces
//
//   - Renewer: renewal workflow (loans.Service)
//   - AuditLogger, AuditReader, auth.AuthRecorder: audit trail (audit.Service)
//   - scheduler.EventPruner: audit retention (audit.Service)
//   - VisitCounter: per-session visit counter (auth.SessionManager)
//
// # Adding a New Database Domain
//
// To add a new data domain (e.g. reservations):
//
//  1. Create sub-package: internal/database/reservations/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Add it to database.Database and the AutoMigrate list
//
//  4. Declare the interface the controller needs in internal/http/stores.go
//     and add a compile-time check to checks.go:
//
//     var _ http.ReservationStore = (*reservations.Repository)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
