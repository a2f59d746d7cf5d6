package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/joelsmith11/locallibrary/internal/config"
	"github.com/joelsmith11/locallibrary/internal/database/audit"
	"github.com/joelsmith11/locallibrary/internal/database/catalog"
	"github.com/joelsmith11/locallibrary/internal/database/loans"
	"github.com/joelsmith11/locallibrary/internal/database/users"
	"github.com/joelsmith11/locallibrary/internal/entities"
)

var defaultGenres = []entities.Genre{
	{Name: "Fiction"},
	{Name: "History"},
	{Name: "Poetry"},
	{Name: "Science Fiction"},
	{Name: "Fantasy"},
}

var defaultLanguages = []entities.Language{
	{Name: "English"},
	{Name: "French"},
	{Name: "German"},
	{Name: "Spanish"},
}

// Database owns the gorm connection and the domain repositories built on it.
type Database struct {
	DB *gorm.DB

	Catalog *catalog.Repository
	Loans   *loans.Repository
	Users   *users.Repository
	Audit   *audit.Repository
}

// NewDatabase opens (and migrates) a SQLite database at dbPath.
func NewDatabase(dbPath string) (*Database, error) {
	return Open(config.Database{
		Driver:   config.DriverSQLite,
		Path:     dbPath,
		LogLevel: "silent",
	})
}

// Open connects to the configured database, migrates the schema and seeds
// reference data (genres, languages) on an empty catalog.
func Open(cfg config.Database) (*Database, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate all entities
	err = db.AutoMigrate(
		&entities.User{},
		&entities.Genre{},
		&entities.Language{},
		&entities.Author{},
		&entities.Book{},
		&entities.BookInstance{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{
		DB:      db,
		Catalog: catalog.NewRepository(db),
		Loans:   loans.NewRepository(db),
		Users:   users.NewRepository(db),
		Audit:   audit.NewRepository(db),
	}

	if err := database.seedReferenceData(); err != nil {
		return nil, fmt.Errorf("failed to seed reference data: %w", err)
	}

	log.Printf("Database (%s) initialized successfully", cfg.Driver)

	return database, nil
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", config.DriverSQLite:
		return sqlite.Open(sqliteDSN(cfg.Path)), nil
	case config.DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN waits on locked databases instead of failing, as audit events
// are written from background goroutines.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000"
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// IsSQLite reports whether the connection uses the SQLite dialect.
func (d *Database) IsSQLite() bool {
	return d.DB.Dialector.Name() == "sqlite"
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedReferenceData() error {
	var genres int64
	if err := d.DB.Model(&entities.Genre{}).Count(&genres).Error; err != nil {
		return err
	}
	if genres == 0 {
		for _, genre := range defaultGenres {
			if err := d.DB.Create(&genre).Error; err != nil {
				return fmt.Errorf("failed to create genre %s: %w", genre.Name, err)
			}
		}
		log.Printf("Created %d default genres", len(defaultGenres))
	}

	var languages int64
	if err := d.DB.Model(&entities.Language{}).Count(&languages).Error; err != nil {
		return err
	}
	if languages == 0 {
		for _, language := range defaultLanguages {
			if err := d.DB.Create(&language).Error; err != nil {
				return fmt.Errorf("failed to create language %s: %w", language.Name, err)
			}
		}
		log.Printf("Created %d default languages", len(defaultLanguages))
	}
	return nil
}
