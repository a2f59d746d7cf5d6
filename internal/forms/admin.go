package forms

import (
	"strings"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

var NameSchema = Schema{
	Entity: "name",
	Fields: []Field{
		{Name: "name", Label: "Name", Type: "text", Required: true},
	},
}

// Fieldset groups fields under a heading on the backoffice edit pages.
type Fieldset struct {
	Title  string
	Fields []Field
}

// InstanceFieldsets lays out the copy editor.
var InstanceFieldsets = []Fieldset{
	{
		Title: "General Information",
		Fields: []Field{
			{Name: "book", Label: "Book", Type: "select", Required: true},
			{Name: "imprint", Label: "Imprint", Type: "text", Required: true},
			{Name: "id", Label: "Id", Type: "readonly"},
		},
	},
	{
		Title: "Availability",
		Fields: []Field{
			{Name: "status", Label: "Book availability", Type: "select", Required: true},
			{Name: "due_back", Label: "Due back", Type: "date"},
			{Name: "borrower", Label: "Borrower", Type: "select"},
		},
	},
}

// NameForm edits the single name of a genre or language.
type NameForm struct {
	Name string `form:"name" validate:"required,max=200"`
}

// Validate checks the form and returns the trimmed name.
func (f *NameForm) Validate() (string, Errors) {
	f.Name = strings.TrimSpace(f.Name)
	return f.Name, validateStruct(f)
}

// InstanceForm is the backoffice copy editor. Due dates entered here are
// not checked against the renewal window.
type InstanceForm struct {
	Book     string `form:"book" validate:"required,numeric"`
	Imprint  string `form:"imprint" validate:"required,max=200"`
	Status   string `form:"status" validate:"required,oneof=m o a r"`
	DueBack  string `form:"due_back" validate:"omitempty,datetime=2006-01-02"`
	Borrower string `form:"borrower" validate:"omitempty,numeric"`
}

// NewInstanceForm returns a blank form with the default status.
func NewInstanceForm() InstanceForm {
	return InstanceForm{Status: string(entities.LoanStatusMaintenance)}
}

// InstanceFormFrom fills the form from an existing copy.
func InstanceFormFrom(instance *entities.BookInstance) InstanceForm {
	form := InstanceForm{
		Imprint: instance.Imprint,
		Status:  string(instance.Status),
		DueBack: FormatDate(instance.DueBack),
	}
	if instance.BookID != nil {
		form.Book = idString(*instance.BookID)
	}
	if instance.BorrowerID != nil {
		form.Borrower = idString(*instance.BorrowerID)
	}
	return form
}

func (f *InstanceForm) normalize() {
	f.Book = strings.TrimSpace(f.Book)
	f.Imprint = strings.TrimSpace(f.Imprint)
	f.Status = strings.TrimSpace(f.Status)
	f.DueBack = strings.TrimSpace(f.DueBack)
	f.Borrower = strings.TrimSpace(f.Borrower)
}

// Validate checks the form and, when valid, copies it onto instance.
func (f *InstanceForm) Validate(instance *entities.BookInstance) Errors {
	f.normalize()
	errs := validateStruct(f)
	if errs.Any() {
		return errs
	}

	bookID, ok := parseID(f.Book)
	if !ok || bookID == nil {
		errs.Add("book", msgInvalidChoice)
	}
	borrowerID, ok := parseID(f.Borrower)
	if !ok {
		errs.Add("borrower", msgInvalidChoice)
	}
	if errs.Any() {
		return errs
	}
	dueBack, _ := ParseDate(f.DueBack)

	instance.BookID = bookID
	instance.Imprint = f.Imprint
	instance.Status = entities.LoanStatus(f.Status)
	instance.DueBack = dueBack
	instance.BorrowerID = borrowerID
	return errs
}
