// Package database provides the data access layer for the catalog.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, reference data seeding
//	├── catalog/         # Genres, languages, authors and books
//	├── loans/           # Book instances and borrowed-items queries
//	├── users/           # User accounts
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
// Open wires one Repository per domain onto the shared connection:
//
//	db, err := database.Open(cfg.Database)
//
//	books, total, err := db.Catalog.ListBooks(10, 0)
//	onLoan, total, err := db.Loans.MyBorrowed(userID, 10, 0)
//
// Each sub-package can also be constructed directly from a *gorm.DB, which is
// how their tests run against an isolated SQLite file.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add a field for it on Database and wire it in Open
package database
