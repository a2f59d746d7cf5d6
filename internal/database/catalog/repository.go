// Package catalog provides database operations for genres, languages,
// authors and books.
//
// # Usage
//
//	repo := catalog.NewRepository(db)
//	books, total, err := repo.ListBooks(10, 0)
//	author, err := repo.GetAuthor(id)
package catalog

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrUnknownAuthor   = errors.New("author does not exist")
	ErrUnknownLanguage = errors.New("language does not exist")
	ErrUnknownGenre    = errors.New("genre does not exist")
)

// Repository handles catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Genres ---

// ListGenres returns all genres ordered by name.
func (r *Repository) ListGenres() ([]entities.Genre, error) {
	var genres []entities.Genre
	err := r.db.Order("name ASC").Find(&genres).Error
	return genres, err
}

func (r *Repository) GetGenre(id uint) (*entities.Genre, error) {
	var genre entities.Genre
	if err := r.db.First(&genre, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &genre, nil
}

func (r *Repository) CreateGenre(genre *entities.Genre) error {
	return r.db.Create(genre).Error
}

func (r *Repository) UpdateGenre(genre *entities.Genre) error {
	result := r.db.Model(&entities.Genre{ID: genre.ID}).Update("name", genre.Name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGenre removes a genre and its book associations.
func (r *Repository) DeleteGenre(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM book_genres WHERE genre_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Genre{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Languages ---

// ListLanguages returns all languages ordered by name.
func (r *Repository) ListLanguages() ([]entities.Language, error) {
	var languages []entities.Language
	err := r.db.Order("name ASC").Find(&languages).Error
	return languages, err
}

func (r *Repository) GetLanguage(id uint) (*entities.Language, error) {
	var language entities.Language
	if err := r.db.First(&language, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &language, nil
}

func (r *Repository) CreateLanguage(language *entities.Language) error {
	return r.db.Create(language).Error
}

func (r *Repository) UpdateLanguage(language *entities.Language) error {
	result := r.db.Model(&entities.Language{ID: language.ID}).Update("name", language.Name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLanguage removes a language; books written in it keep a NULL language.
func (r *Repository) DeleteLanguage(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Book{}).Where("language_id = ?", id).Update("language_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Language{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Authors ---

// ListAuthors returns a page of authors ordered by last name, first name.
func (r *Repository) ListAuthors(limit, offset int) ([]entities.Author, int64, error) {
	var authors []entities.Author
	var total int64

	if err := r.db.Model(&entities.Author{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.Order("last_name ASC").Order("first_name ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	err := query.Find(&authors).Error
	return authors, total, err
}

// GetAuthor retrieves an author with their books.
func (r *Repository) GetAuthor(id uint) (*entities.Author, error) {
	var author entities.Author
	err := r.db.Preload("Books", func(db *gorm.DB) *gorm.DB {
		return db.Order("title ASC")
	}).First(&author, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &author, nil
}

func (r *Repository) CreateAuthor(author *entities.Author) error {
	return r.db.Omit(clause.Associations).Create(author).Error
}

// UpdateAuthor overwrites the editable author fields, including clearing dates.
func (r *Repository) UpdateAuthor(author *entities.Author) error {
	result := r.db.Model(&entities.Author{ID: author.ID}).
		Select("first_name", "last_name", "date_of_birth", "date_of_death").
		Updates(author)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAuthor removes an author. Their books remain with a NULL author.
func (r *Repository) DeleteAuthor(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Book{}).Where("author_id = ?", id).Update("author_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Author{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UpdateBookTitles renames books of one author in bulk (admin inline edit).
// Titles for books not owned by the author are ignored.
func (r *Repository) UpdateBookTitles(authorID uint, titles map[uint]string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for bookID, title := range titles {
			err := tx.Model(&entities.Book{}).
				Where("id = ? AND author_id = ?", bookID, authorID).
				Update("title", title).Error
			if err != nil {
				return fmt.Errorf("update title of book %d: %w", bookID, err)
			}
		}
		return nil
	})
}

// --- Books ---

// ListBooks returns a page of books ordered by title, with author and genres.
func (r *Repository) ListBooks(limit, offset int) ([]entities.Book, int64, error) {
	var books []entities.Book
	var total int64

	if err := r.db.Model(&entities.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.Preload("Author").Preload("Genres").Order("title ASC").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	err := query.Find(&books).Error
	return books, total, err
}

// GetBook retrieves a book with author, language, genres and copies.
func (r *Repository) GetBook(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.
		Preload("Author").
		Preload("Language").
		Preload("Genres", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		}).
		Preload("Instances", func(db *gorm.DB) *gorm.DB {
			return db.Order("due_back ASC")
		}).
		Preload("Instances.Borrower").
		First(&book, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &book, nil
}

// CreateBook inserts a book and links it to the given genres.
func (r *Repository) CreateBook(book *entities.Book, genreIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		genres, err := r.resolveReferences(tx, book, genreIDs)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(book).Error; err != nil {
			return err
		}
		if err := tx.Model(book).Association("Genres").Replace(genres); err != nil {
			return fmt.Errorf("link genres: %w", err)
		}
		book.Genres = genres
		return nil
	})
}

// UpdateBook overwrites the editable fields and replaces the genre set.
func (r *Repository) UpdateBook(book *entities.Book, genreIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		genres, err := r.resolveReferences(tx, book, genreIDs)
		if err != nil {
			return err
		}
		result := tx.Model(&entities.Book{ID: book.ID}).
			Select("title", "author_id", "summary", "isbn", "language_id").
			Updates(book)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&entities.Book{ID: book.ID}).Association("Genres").Replace(genres); err != nil {
			return fmt.Errorf("link genres: %w", err)
		}
		book.Genres = genres
		return nil
	})
}

// DeleteBook removes a book together with its copies and genre links.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookInstance{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM book_genres WHERE book_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListAllBooks returns every book ordered by title (for select inputs).
func (r *Repository) ListAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("title ASC").Find(&books).Error
	return books, err
}

// resolveReferences checks that the author, language and genres exist.
func (r *Repository) resolveReferences(tx *gorm.DB, book *entities.Book, genreIDs []uint) ([]entities.Genre, error) {
	if book.AuthorID != nil {
		var count int64
		if err := tx.Model(&entities.Author{}).Where("id = ?", *book.AuthorID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrUnknownAuthor
		}
	}
	if book.LanguageID != nil {
		var count int64
		if err := tx.Model(&entities.Language{}).Where("id = ?", *book.LanguageID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrUnknownLanguage
		}
	}

	genres := []entities.Genre{}
	if len(genreIDs) == 0 {
		return genres, nil
	}
	unique := make(map[uint]struct{}, len(genreIDs))
	for _, id := range genreIDs {
		unique[id] = struct{}{}
	}
	if err := tx.Where("id IN ?", genreIDs).Order("name ASC").Find(&genres).Error; err != nil {
		return nil, err
	}
	if len(genres) != len(unique) {
		return nil, ErrUnknownGenre
	}
	return genres, nil
}

// --- Counts ---

// CountBooks returns the total number of books.
func (r *Repository) CountBooks() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}

// CountAuthors returns the total number of authors.
func (r *Repository) CountAuthors() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Author{}).Count(&count).Error
	return count, err
}

// CountBooksInGenre counts distinct books having a genre whose name matches
// case-insensitively.
func (r *Repository) CountBooksInGenre(name string) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).
		Joins("JOIN book_genres ON book_genres.book_id = books.id").
		Joins("JOIN genres ON genres.id = book_genres.genre_id").
		Where("LOWER(genres.name) = LOWER(?)", name).
		Distinct("books.id").
		Count(&count).Error
	return count, err
}
