package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joelsmith11/locallibrary/internal/auth"
	"github.com/joelsmith11/locallibrary/internal/entities"
	"github.com/joelsmith11/locallibrary/internal/forms"
	"github.com/joelsmith11/locallibrary/internal/loans"
)

// StaffBorrowedPath is where a successful renewal lands.
const StaffBorrowedPath = "/staffbooks/"

// LoansController serves the borrowed-book lists and the renewal form.
type LoansController struct {
	borrowed BorrowedLister
	renewer  Renewer
	audit    AuditLogger
	pageSize int
}

func NewLoansController(borrowed BorrowedLister, renewer Renewer, auditLogger AuditLogger, pageSize int) *LoansController {
	if auditLogger == nil {
		auditLogger = nopAudit{}
	}
	return &LoansController{
		borrowed: borrowed,
		renewer:  renewer,
		audit:    auditLogger,
		pageSize: pageSize,
	}
}

// MyBorrowed lists the copies on loan to the current user.
func (lc *LoansController) MyBorrowed(c *gin.Context) {
	userID := auth.GetUserID(c)
	instances, page, err := paginate(c, lc.pageSize, func(limit, offset int) ([]entities.BookInstance, int64, error) {
		return lc.borrowed.MyBorrowed(userID, limit, offset)
	})
	lc.renderBorrowed(c, "mybooks.html", "Borrowed books", instances, page, err)
}

// AllBorrowed lists every copy on loan. Staff only.
func (lc *LoansController) AllBorrowed(c *gin.Context) {
	instances, page, err := paginate(c, lc.pageSize, lc.borrowed.AllBorrowed)
	lc.renderBorrowed(c, "staffbooks.html", "All borrowed books", instances, page, err)
}

func (lc *LoansController) renderBorrowed(c *gin.Context, template, title string, instances []entities.BookInstance, page Pagination, err error) {
	if errors.Is(err, errPageNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderInternalError(c, err, "list borrowed")
		return
	}

	data := viewData(c, title)
	data["Instances"] = instances
	data["Pagination"] = page
	data["Today"] = lc.renewer.Today()
	c.HTML(http.StatusOK, template, data)
}

// loadInstance resolves the :instance_id parameter, rendering 404 for
// malformed or unknown IDs.
func (lc *LoansController) loadInstance(c *gin.Context) (*entities.BookInstance, bool) {
	id, err := uuid.Parse(c.Param("instance_id"))
	if err != nil {
		renderNotFound(c)
		return nil, false
	}

	instance, err := lc.renewer.Instance(c.Request.Context(), id)
	if errors.Is(err, loans.ErrInstanceNotFound) {
		renderNotFound(c)
		return nil, false
	}
	if err != nil {
		renderInternalError(c, err, "get instance")
		return nil, false
	}
	return instance, true
}

func (lc *LoansController) renderRenew(c *gin.Context, instance *entities.BookInstance, form forms.RenewalForm, errs forms.Errors) {
	data := viewData(c, "Renew: "+instance.DisplayTitle())
	data["Instance"] = instance
	data["Form"] = form
	data["Errors"] = errs
	data["HelpText"] = forms.RenewalHelpText
	data["Today"] = lc.renewer.Today()
	c.HTML(http.StatusOK, "renew.html", data)
}

// RenewPage shows the renewal form with the proposed date.
func (lc *LoansController) RenewPage(c *gin.Context) {
	instance, ok := lc.loadInstance(c)
	if !ok {
		return
	}
	lc.renderRenew(c, instance, forms.NewRenewalForm(lc.renewer.ProposedDate()), forms.Errors{})
}

// Renew validates the submitted date and updates the due date. Invalid
// input re-renders the form with the reason.
func (lc *LoansController) Renew(c *gin.Context) {
	instance, ok := lc.loadInstance(c)
	if !ok {
		return
	}

	var form forms.RenewalForm
	if errs := bindForm(c, &form); errs.Any() {
		lc.renderRenew(c, instance, form, errs)
		return
	}

	candidate, errs := form.Parse()
	if errs.Any() {
		lc.renderRenew(c, instance, form, errs)
		return
	}

	renewal, err := lc.renewer.Renew(c.Request.Context(), instance.ID, candidate)
	var validationErr *loans.ValidationError
	switch {
	case errors.As(err, &validationErr):
		errs.Add("renewal_date", validationErr.Error())
		lc.renderRenew(c, instance, form, errs)
		return
	case errors.Is(err, loans.ErrInstanceNotFound):
		renderNotFound(c)
		return
	case err != nil:
		renderInternalError(c, err, "renew instance")
		return
	}

	lc.audit.LogRenewal(auth.GetUserID(c), renewal.Instance.ID, renewal.Instance.DisplayTitle(),
		renewal.PreviousDueBack, *renewal.Instance.DueBack)
	c.Redirect(http.StatusFound, StaffBorrowedPath)
}
