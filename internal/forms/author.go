package forms

import (
	"strings"
	"time"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

// AuthorForm is the submitted author form.
type AuthorForm struct {
	FirstName   string `form:"first_name" validate:"required,max=100"`
	LastName    string `form:"last_name" validate:"required,max=100"`
	DateOfBirth string `form:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	DateOfDeath string `form:"date_of_death" validate:"omitempty,datetime=2006-01-02"`
}

// NewAuthorForm returns the initial create form, with date of death set to
// today.
func NewAuthorForm(today time.Time) AuthorForm {
	return AuthorForm{DateOfDeath: today.Format(DateLayout)}
}

// AuthorFormFrom fills the form from an existing author.
func AuthorFormFrom(author *entities.Author) AuthorForm {
	return AuthorForm{
		FirstName:   author.FirstName,
		LastName:    author.LastName,
		DateOfBirth: FormatDate(author.DateOfBirth),
		DateOfDeath: FormatDate(author.DateOfDeath),
	}
}

func (f *AuthorForm) normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.DateOfBirth = strings.TrimSpace(f.DateOfBirth)
	f.DateOfDeath = strings.TrimSpace(f.DateOfDeath)
}

// Validate checks the form and, when valid, copies it onto author.
func (f *AuthorForm) Validate(author *entities.Author) Errors {
	f.normalize()
	errs := validateStruct(f)
	if errs.Any() {
		return errs
	}

	born, _ := ParseDate(f.DateOfBirth)
	died, _ := ParseDate(f.DateOfDeath)
	if born != nil && died != nil && died.Before(*born) {
		errs.Add("date_of_death", "Date of death cannot precede date of birth.")
		return errs
	}

	author.FirstName = f.FirstName
	author.LastName = f.LastName
	author.DateOfBirth = born
	author.DateOfDeath = died
	return errs
}
