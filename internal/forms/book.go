package forms

import (
	"strconv"
	"strings"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

// BookForm is the submitted book form. Author and language are optional
// references; genre may repeat.
type BookForm struct {
	Title    string   `form:"title" validate:"required,max=200"`
	Author   string   `form:"author" validate:"omitempty,numeric"`
	Summary  string   `form:"summary" validate:"required,max=1000"`
	ISBN     string   `form:"isbn" validate:"required,len=13,numeric"`
	Genre    []string `form:"genre" validate:"dive,numeric"`
	Language string   `form:"language" validate:"omitempty,numeric"`
}

// BookFormFrom fills the form from an existing book.
func BookFormFrom(book *entities.Book) BookForm {
	form := BookForm{
		Title:   book.Title,
		Summary: book.Summary,
		ISBN:    book.ISBN,
	}
	if book.AuthorID != nil {
		form.Author = idString(*book.AuthorID)
	}
	if book.LanguageID != nil {
		form.Language = idString(*book.LanguageID)
	}
	for _, g := range book.Genres {
		form.Genre = append(form.Genre, idString(g.ID))
	}
	return form
}

func (f *BookForm) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Author = strings.TrimSpace(f.Author)
	f.Summary = strings.TrimSpace(f.Summary)
	f.ISBN = strings.TrimSpace(f.ISBN)
	f.Language = strings.TrimSpace(f.Language)
	genres := f.Genre[:0]
	for _, g := range f.Genre {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	f.Genre = genres
}

// Validate checks the form and, when valid, copies it onto book and
// returns the selected genre IDs. Whether the referenced rows exist is
// checked when saving.
func (f *BookForm) Validate(book *entities.Book) ([]uint, Errors) {
	f.normalize()
	errs := validateStruct(f)
	if errs.Any() {
		return nil, errs
	}

	authorID, ok := parseID(f.Author)
	if !ok {
		errs.Add("author", msgInvalidChoice)
	}
	languageID, ok := parseID(f.Language)
	if !ok {
		errs.Add("language", msgInvalidChoice)
	}
	genreIDs := make([]uint, 0, len(f.Genre))
	for _, g := range f.Genre {
		id, ok := parseID(g)
		if !ok {
			errs.Add("genre", msgInvalidChoice)
			continue
		}
		genreIDs = append(genreIDs, *id)
	}
	if errs.Any() {
		return nil, errs
	}

	book.Title = f.Title
	book.Summary = f.Summary
	book.ISBN = f.ISBN
	book.AuthorID = authorID
	book.LanguageID = languageID
	return genreIDs, errs
}

// HasGenre reports whether id is among the selected genres.
func (f BookForm) HasGenre(id uint) bool {
	want := idString(id)
	for _, g := range f.Genre {
		if g == want {
			return true
		}
	}
	return false
}

// parseID reads an optional reference. Blank yields nil; zero or a value
// outside the key range is not a valid choice.
func parseID(value string) (*uint, bool) {
	if value == "" {
		return nil, true
	}
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil || n == 0 {
		return nil, false
	}
	id := uint(n)
	return &id, true
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
