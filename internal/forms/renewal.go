package forms

import (
	"strings"
	"time"
)

// RenewalHelpText is shown under the renewal date input.
const RenewalHelpText = "Enter a date between now and 4 weeks (default 3)."

// RenewalForm is the submitted renewal form.
type RenewalForm struct {
	RenewalDate string `form:"renewal_date" json:"renewal_date" validate:"required,datetime=2006-01-02"`
}

// NewRenewalForm returns the form pre-filled with the proposed date.
func NewRenewalForm(proposed time.Time) RenewalForm {
	return RenewalForm{RenewalDate: proposed.Format(DateLayout)}
}

// Parse validates the input format and returns the candidate date. The
// renewal window itself is checked by the loan service.
func (f *RenewalForm) Parse() (time.Time, Errors) {
	f.RenewalDate = strings.TrimSpace(f.RenewalDate)
	errs := validateStruct(f)
	if errs.Any() {
		return time.Time{}, errs
	}
	t, err := time.Parse(DateLayout, f.RenewalDate)
	if err != nil {
		errs.Add("renewal_date", "Enter a valid date.")
		return time.Time{}, errs
	}
	return t, errs
}
