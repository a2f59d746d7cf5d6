package config

// Default paths and sizes
const (
	// DefaultDatabasePath is the default path for the SQLite catalog database
	DefaultDatabasePath = "./locallibrary.db"

	// DefaultPageSize is the number of records shown per catalog page
	DefaultPageSize = 10
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)
