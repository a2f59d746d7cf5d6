// Package loans provides database operations for book copies and the loans
// recorded on them.
package loans

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

var ErrInstanceNotFound = errors.New("book instance not found")

// DueBackFilter narrows the admin instance listing by due date.
type DueBackFilter string

const (
	DueBackAny   DueBackFilter = ""
	DueBackToday DueBackFilter = "today"
	DueBackPast7 DueBackFilter = "past7"
	DueBackMonth DueBackFilter = "month"
	DueBackYear  DueBackFilter = "year"
	DueBackNone  DueBackFilter = "none"
)

// InstanceFilter holds the optional admin list filters.
type InstanceFilter struct {
	Status  entities.LoanStatus
	DueBack DueBackFilter
	BookID  uint
	Today   time.Time
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) withDisplay() *gorm.DB {
	return r.db.Preload("Book").Preload("Borrower")
}

// GetInstance loads one copy with its book and borrower.
func (r *Repository) GetInstance(id uuid.UUID) (*entities.BookInstance, error) {
	var instance entities.BookInstance
	err := r.withDisplay().Where("id = ?", id).First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	return &instance, nil
}

// MyBorrowed returns the copies on loan to userID, soonest due first.
func (r *Repository) MyBorrowed(userID uint, limit, offset int) ([]entities.BookInstance, int64, error) {
	query := r.db.Model(&entities.BookInstance{}).
		Where("status = ? AND borrower_id = ?", entities.LoanStatusOnLoan, userID)
	return r.pageBorrowed(query, limit, offset)
}

// AllBorrowed returns every copy currently on loan, soonest due first.
func (r *Repository) AllBorrowed(limit, offset int) ([]entities.BookInstance, int64, error) {
	query := r.db.Model(&entities.BookInstance{}).
		Where("status = ?", entities.LoanStatusOnLoan)
	return r.pageBorrowed(query, limit, offset)
}

func (r *Repository) pageBorrowed(query *gorm.DB, limit, offset int) ([]entities.BookInstance, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var instances []entities.BookInstance
	q := query.Preload("Book").Preload("Borrower").Order("due_back ASC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&instances).Error; err != nil {
		return nil, 0, err
	}
	return instances, total, nil
}

// UpdateDueBack sets only the due date of a copy.
func (r *Repository) UpdateDueBack(id uuid.UUID, dueBack time.Time) error {
	result := r.db.Model(&entities.BookInstance{}).Where("id = ?", id).Update("due_back", dueBack)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

// ListInstances returns a filtered page of copies for the backoffice.
func (r *Repository) ListInstances(filter InstanceFilter, limit, offset int) ([]entities.BookInstance, int64, error) {
	query := r.db.Model(&entities.BookInstance{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.BookID > 0 {
		query = query.Where("book_id = ?", filter.BookID)
	}
	query = applyDueBackFilter(query, filter.DueBack, filter.Today)

	return r.pageBorrowed(query, limit, offset)
}

// applyDueBackFilter mirrors the date-hierarchy choices of the backoffice:
// due today, in the past seven days, this month, this year, or unset.
func applyDueBackFilter(query *gorm.DB, filter DueBackFilter, today time.Time) *gorm.DB {
	tomorrow := today.AddDate(0, 0, 1)
	switch filter {
	case DueBackToday:
		return query.Where("due_back >= ? AND due_back < ?", today, tomorrow)
	case DueBackPast7:
		return query.Where("due_back >= ? AND due_back < ?", today.AddDate(0, 0, -7), tomorrow)
	case DueBackMonth:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return query.Where("due_back >= ? AND due_back < ?", start, start.AddDate(0, 1, 0))
	case DueBackYear:
		start := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
		return query.Where("due_back >= ? AND due_back < ?", start, start.AddDate(1, 0, 0))
	case DueBackNone:
		return query.Where("due_back IS NULL")
	default:
		return query
	}
}

// CreateInstance inserts a copy; the ID is generated when unset.
func (r *Repository) CreateInstance(instance *entities.BookInstance) error {
	return r.db.Omit(clause.Associations).Create(instance).Error
}

// UpdateInstance overwrites every editable field of a copy without any
// renewal-window check.
func (r *Repository) UpdateInstance(instance *entities.BookInstance) error {
	result := r.db.Model(&entities.BookInstance{}).
		Where("id = ?", instance.ID).
		Select("book_id", "imprint", "due_back", "borrower_id", "status").
		Updates(instance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

func (r *Repository) DeleteInstance(id uuid.UUID) error {
	result := r.db.Where("id = ?", id).Delete(&entities.BookInstance{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

// CountInstances returns the total number of copies.
func (r *Repository) CountInstances() (int64, error) {
	var count int64
	err := r.db.Model(&entities.BookInstance{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of copies with the given status.
func (r *Repository) CountByStatus(status entities.LoanStatus) (int64, error) {
	var count int64
	err := r.db.Model(&entities.BookInstance{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
