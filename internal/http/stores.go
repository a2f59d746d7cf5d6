package http

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joelsmith11/locallibrary/internal/database/audit"
	dbloans "github.com/joelsmith11/locallibrary/internal/database/loans"
	"github.com/joelsmith11/locallibrary/internal/entities"
	"github.com/joelsmith11/locallibrary/internal/loans"
)

// Each controller depends on the narrow interface it needs. The gorm
// repositories in internal/database satisfy all of them.

// --- Catalog ---

// CatalogReader provides the public catalog pages.
type CatalogReader interface {
	ListBooks(limit, offset int) ([]entities.Book, int64, error)
	GetBook(id uint) (*entities.Book, error)
	ListAuthors(limit, offset int) ([]entities.Author, int64, error)
	GetAuthor(id uint) (*entities.Author, error)
}

// CatalogCounter provides the home page statistics.
type CatalogCounter interface {
	CountBooks() (int64, error)
	CountAuthors() (int64, error)
	CountBooksInGenre(name string) (int64, error)
}

// ReferenceLister lists the choices of the book form.
type ReferenceLister interface {
	ListGenres() ([]entities.Genre, error)
	ListLanguages() ([]entities.Language, error)
	ListAuthors(limit, offset int) ([]entities.Author, int64, error)
}

// CatalogEditor backs the staff create, update and delete forms.
type CatalogEditor interface {
	ReferenceLister
	GetAuthor(id uint) (*entities.Author, error)
	CreateAuthor(author *entities.Author) error
	UpdateAuthor(author *entities.Author) error
	DeleteAuthor(id uint) error
	GetBook(id uint) (*entities.Book, error)
	CreateBook(book *entities.Book, genreIDs []uint) error
	UpdateBook(book *entities.Book, genreIDs []uint) error
	DeleteBook(id uint) error
}

// CatalogAdmin adds the reference-data and inline editing operations of
// the backoffice.
type CatalogAdmin interface {
	CatalogEditor
	ListBooks(limit, offset int) ([]entities.Book, int64, error)
	ListAllBooks() ([]entities.Book, error)
	GetGenre(id uint) (*entities.Genre, error)
	CreateGenre(genre *entities.Genre) error
	UpdateGenre(genre *entities.Genre) error
	DeleteGenre(id uint) error
	GetLanguage(id uint) (*entities.Language, error)
	CreateLanguage(language *entities.Language) error
	UpdateLanguage(language *entities.Language) error
	DeleteLanguage(id uint) error
	UpdateBookTitles(authorID uint, titles map[uint]string) error
}

// --- Loans ---

// BorrowedLister lists copies currently on loan.
type BorrowedLister interface {
	MyBorrowed(userID uint, limit, offset int) ([]entities.BookInstance, int64, error)
	AllBorrowed(limit, offset int) ([]entities.BookInstance, int64, error)
}

// InstanceCounter provides copy statistics for the home page.
type InstanceCounter interface {
	CountInstances() (int64, error)
	CountByStatus(status entities.LoanStatus) (int64, error)
}

// InstanceAdmin backs the backoffice copy editor.
type InstanceAdmin interface {
	GetInstance(id uuid.UUID) (*entities.BookInstance, error)
	ListInstances(filter dbloans.InstanceFilter, limit, offset int) ([]entities.BookInstance, int64, error)
	CreateInstance(instance *entities.BookInstance) error
	UpdateInstance(instance *entities.BookInstance) error
	DeleteInstance(id uuid.UUID) error
}

// Renewer runs the renewal workflow. Implemented by loans.Service.
type Renewer interface {
	Today() time.Time
	ProposedDate() time.Time
	Instance(ctx context.Context, id uuid.UUID) (*entities.BookInstance, error)
	Renew(ctx context.Context, id uuid.UUID, candidate time.Time) (*loans.Renewal, error)
}

// --- Users, sessions and audit ---

// UserLister lists accounts for the borrower select.
type UserLister interface {
	List() ([]entities.User, error)
}

// VisitCounter counts visits per session.
type VisitCounter interface {
	RecordVisit(ctx context.Context) int
}

// AuditLogger records catalog and loan changes.
type AuditLogger interface {
	LogRenewal(userID uint, instanceID uuid.UUID, title string, previous *time.Time, dueBack time.Time)
	LogCatalogChange(userID uint, action, entityType, entityID, entityName string)
	LogDelete(userID uint, entityType, entityID, entityName string)
}

// AuditReader pages through the audit trail.
type AuditReader interface {
	GetEvents(filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// nopAudit is used when no audit service is configured.
type nopAudit struct{}

func (nopAudit) LogRenewal(uint, uuid.UUID, string, *time.Time, time.Time) {}
func (nopAudit) LogCatalogChange(uint, string, string, string, string)     {}
func (nopAudit) LogDelete(uint, string, string, string)                    {}
