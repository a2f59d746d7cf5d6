package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoanStatus is the availability flag of a single copy.
type LoanStatus string

const (
	LoanStatusMaintenance LoanStatus = "m"
	LoanStatusOnLoan      LoanStatus = "o"
	LoanStatusAvailable   LoanStatus = "a"
	LoanStatusReserved    LoanStatus = "r"
)

// LoanStatuses lists every status in display order.
var LoanStatuses = []LoanStatus{
	LoanStatusMaintenance,
	LoanStatusOnLoan,
	LoanStatusAvailable,
	LoanStatusReserved,
}

// Label returns the human-readable name of the status.
func (s LoanStatus) Label() string {
	switch s {
	case LoanStatusMaintenance:
		return "Maintenance"
	case LoanStatusOnLoan:
		return "On loan"
	case LoanStatusAvailable:
		return "Available"
	case LoanStatusReserved:
		return "Reserved"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of the known statuses.
func (s LoanStatus) Valid() bool {
	for _, known := range LoanStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200" json:"name"` // e.g. "Science Fiction", "French Poetry"
	CreatedAt time.Time `json:"created_at"`
}

type Language struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200" json:"name"` // e.g. "English", "Farsi"
	CreatedAt time.Time `json:"created_at"`
}

type Author struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FirstName   string     `gorm:"size:100" json:"first_name"`
	LastName    string     `gorm:"index;size:100" json:"last_name"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `gorm:"type:date" json:"date_of_death,omitempty"`
	Books       []Book     `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"books,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DisplayName renders the author as "Last, First".
func (a Author) DisplayName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	return a.LastName + ", " + a.FirstName
}

type Book struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Title      string         `gorm:"index;size:200" json:"title"`
	AuthorID   *uint          `gorm:"index" json:"author_id,omitempty"`
	Author     *Author        `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Summary    string         `gorm:"size:1000" json:"summary"`
	ISBN       string         `gorm:"column:isbn;size:13" json:"isbn"`
	Genres     []Genre        `gorm:"many2many:book_genres;" json:"genres,omitempty"`
	LanguageID *uint          `gorm:"index" json:"language_id,omitempty"`
	Language   *Language      `gorm:"foreignKey:LanguageID" json:"language,omitempty"`
	Instances  []BookInstance `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"instances,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// GenreSummary joins the first three genre names, as shown in admin listings.
func (b Book) GenreSummary() string {
	names := make([]string, 0, 3)
	for i, g := range b.Genres {
		if i == 3 {
			break
		}
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

// AuthorName returns the author's display name or an empty string.
func (b Book) AuthorName() string {
	if b.Author == nil {
		return ""
	}
	return b.Author.DisplayName()
}

// BookInstance is one circulating copy of a Book. Its primary key is a
// random UUID so copy records cannot be enumerated.
type BookInstance struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     *uint      `gorm:"index" json:"book_id,omitempty"`
	Book       *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Imprint    string     `gorm:"size:200" json:"imprint"`
	DueBack    *time.Time `gorm:"type:date;index" json:"due_back,omitempty"`
	BorrowerID *uint      `gorm:"index" json:"borrower_id,omitempty"`
	Borrower   *User      `gorm:"foreignKey:BorrowerID;constraint:OnDelete:SET NULL" json:"borrower,omitempty"`
	Status     LoanStatus `gorm:"size:1;index;default:'m'" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (bi *BookInstance) BeforeCreate(tx *gorm.DB) error {
	if bi.ID == uuid.Nil {
		bi.ID = uuid.New()
	}
	if bi.Status == "" {
		bi.Status = LoanStatusMaintenance
	}
	return nil
}

// DisplayTitle is the title of the book this copy belongs to.
func (bi BookInstance) DisplayTitle() string {
	if bi.Book == nil {
		return ""
	}
	return bi.Book.Title
}

// BorrowerName returns the borrower's username or an empty string.
func (bi BookInstance) BorrowerName() string {
	if bi.Borrower == nil {
		return ""
	}
	return bi.Borrower.Username
}

// IsOverdue reports whether the copy has a due date before today.
func (bi BookInstance) IsOverdue(today time.Time) bool {
	return bi.DueBack != nil && bi.DueBack.Before(today)
}

func (Genre) TableName() string {
	return "genres"
}

func (Language) TableName() string {
	return "languages"
}

func (Author) TableName() string {
	return "authors"
}

func (Book) TableName() string {
	return "books"
}

func (BookInstance) TableName() string {
	return "book_instances"
}
