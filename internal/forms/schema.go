// Package forms describes the editable fields of catalog entities and binds
// and validates submitted values for them. The same schema and form types
// serve both the create and the update flows.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format of every date input.
const DateLayout = "2006-01-02"

// Field describes one input of an edit form.
type Field struct {
	Name     string
	Label    string
	Type     string // text, textarea, date, select, multiselect
	Required bool
}

// Schema is the ordered field set of an editable entity.
type Schema struct {
	Entity string
	Fields []Field
}

var AuthorSchema = Schema{
	Entity: "author",
	Fields: []Field{
		{Name: "first_name", Label: "First name", Type: "text", Required: true},
		{Name: "last_name", Label: "Last name", Type: "text", Required: true},
		{Name: "date_of_birth", Label: "Date of birth", Type: "date"},
		{Name: "date_of_death", Label: "Died", Type: "date"},
	},
}

var BookSchema = Schema{
	Entity: "book",
	Fields: []Field{
		{Name: "title", Label: "Title", Type: "text", Required: true},
		{Name: "author", Label: "Author", Type: "select"},
		{Name: "summary", Label: "Summary", Type: "textarea", Required: true},
		{Name: "isbn", Label: "ISBN", Type: "text", Required: true},
		{Name: "genre", Label: "Genre", Type: "multiselect"},
		{Name: "language", Label: "Language", Type: "select"},
	},
}

const msgInvalidChoice = "Select a valid choice."

// ErrUnreadable is the form-wide message for a body that could not be parsed.
const ErrUnreadable = "The submitted form could not be read."

// Errors maps a field name to its message. The empty key holds
// form-wide errors.
type Errors map[string]string

func (e Errors) Add(field, message string) {
	if _, exists := e[field]; !exists {
		e[field] = message
	}
}

func (e Errors) Any() bool {
	return len(e) > 0
}

func (e Errors) Get(field string) string {
	return e[field]
}

// BindError reports a failed request bind as a form-wide error.
func BindError(err error) Errors {
	if err == nil {
		return Errors{}
	}
	return Errors{"": ErrUnreadable}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their form name so errors line up with the inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and converts failures to Errors.
func validateStruct(form any) Errors {
	errs := Errors{}
	err := validate.Struct(form)
	if err == nil {
		return errs
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		errs.Add("", err.Error())
		return errs
	}
	for _, fe := range ve {
		errs.Add(fieldName(fe), message(fe))
	}
	return errs
}

// fieldName strips the slice index of dive errors (genre[0] -> genre).
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "len":
		return fmt.Sprintf("Ensure this value has exactly %s characters.", fe.Param())
	case "numeric", "number":
		return "Enter a whole number."
	case "datetime":
		return "Enter a valid date."
	case "oneof":
		return msgInvalidChoice
	default:
		return "Enter a valid value."
	}
}

// ParseDate parses an optional YYYY-MM-DD value. Blank input yields nil.
func ParseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatDate renders an optional date for an input value.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// Value returns the submitted value of the field whose form tag is name.
// Slice fields yield their first element. It lets templates render a
// Schema generically.
func Value(form any, name string) string {
	v := reflect.ValueOf(form)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return ""
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.SplitN(t.Field(i).Tag.Get("form"), ",", 2)[0] != name {
			continue
		}
		f := v.Field(i)
		switch f.Kind() {
		case reflect.String:
			return f.String()
		case reflect.Slice:
			if f.Len() > 0 && f.Index(0).Kind() == reflect.String {
				return f.Index(0).String()
			}
		}
		return ""
	}
	return ""
}
