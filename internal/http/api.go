package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joelsmith11/locallibrary/internal/auth"
	"github.com/joelsmith11/locallibrary/internal/database/catalog"
	"github.com/joelsmith11/locallibrary/internal/entities"
	"github.com/joelsmith11/locallibrary/internal/forms"
	"github.com/joelsmith11/locallibrary/internal/loans"
)

// CodeInvalidDate is returned when the renewal date cannot be parsed.
const CodeInvalidDate = "INVALID_DATE"

// APIController exposes the catalog and the renewal workflow as JSON for
// token clients.
type APIController struct {
	catalog  CatalogReader
	borrowed BorrowedLister
	renewer  Renewer
	home     *HomeController
	audit    AuditLogger
	pageSize int
}

func NewAPIController(reader CatalogReader, borrowed BorrowedLister, renewer Renewer, home *HomeController, auditLogger AuditLogger, pageSize int) *APIController {
	if auditLogger == nil {
		auditLogger = nopAudit{}
	}
	return &APIController{
		catalog:  reader,
		borrowed: borrowed,
		renewer:  renewer,
		home:     home,
		audit:    auditLogger,
		pageSize: pageSize,
	}
}

// respondPage writes one page of a list, or the matching error.
func respondPage[T any](c *gin.Context, items []T, page Pagination, err error, context string) {
	if errors.Is(err, errPageNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid page", Code: "NOT_FOUND"})
		return
	}
	if err != nil {
		respondInternalError(c, err, context)
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.Pages,
		HasMore:    page.HasNext(),
	})
}

func (api *APIController) Stats(c *gin.Context) {
	stats, err := api.home.stats()
	if err != nil {
		respondInternalError(c, err, "api stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (api *APIController) ListBooks(c *gin.Context) {
	books, page, err := paginate(c, api.pageSize, api.catalog.ListBooks)
	respondPage(c, books, page, err, "api list books")
}

func (api *APIController) GetBook(c *gin.Context) {
	id, ok := parseAPIIDParam(c, "id")
	if !ok {
		return
	}
	book, err := api.catalog.GetBook(id)
	if errors.Is(err, catalog.ErrNotFound) {
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "api get book")
		return
	}
	if !auth.HasCapability(c, entities.CapabilityMarkReturned) {
		for i := range book.Instances {
			book.Instances[i].BorrowerID = nil
			book.Instances[i].Borrower = nil
		}
	}
	c.JSON(http.StatusOK, book)
}

func (api *APIController) ListAuthors(c *gin.Context) {
	authors, page, err := paginate(c, api.pageSize, api.catalog.ListAuthors)
	respondPage(c, authors, page, err, "api list authors")
}

func (api *APIController) GetAuthor(c *gin.Context) {
	id, ok := parseAPIIDParam(c, "id")
	if !ok {
		return
	}
	author, err := api.catalog.GetAuthor(id)
	if errors.Is(err, catalog.ErrNotFound) {
		respondNotFound(c, "author")
		return
	}
	if err != nil {
		respondInternalError(c, err, "api get author")
		return
	}
	c.JSON(http.StatusOK, author)
}

func (api *APIController) MyBorrowed(c *gin.Context) {
	userID := auth.GetUserID(c)
	instances, page, err := paginate(c, api.pageSize, func(limit, offset int) ([]entities.BookInstance, int64, error) {
		return api.borrowed.MyBorrowed(userID, limit, offset)
	})
	respondPage(c, instances, page, err, "api my borrowed")
}

func (api *APIController) AllBorrowed(c *gin.Context) {
	instances, page, err := paginate(c, api.pageSize, api.borrowed.AllBorrowed)
	respondPage(c, instances, page, err, "api all borrowed")
}

// Renew sets a new due date from {"renewal_date": "YYYY-MM-DD"}.
func (api *APIController) Renew(c *gin.Context) {
	id, err := uuid.Parse(c.Param("instance_id"))
	if err != nil {
		respondNotFound(c, "book instance")
		return
	}

	var form forms.RenewalForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidDate})
		return
	}
	candidate, errs := form.Parse()
	if errs.Any() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   errs.Get("renewal_date"),
			Code:    CodeInvalidDate,
			Details: errs,
		})
		return
	}

	renewal, err := api.renewer.Renew(c.Request.Context(), id, candidate)
	var validationErr *loans.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Error(), Code: validationErr.Code()})
		return
	case errors.Is(err, loans.ErrInstanceNotFound):
		respondNotFound(c, "book instance")
		return
	case err != nil:
		respondInternalError(c, err, "api renew")
		return
	}

	api.audit.LogRenewal(auth.GetUserID(c), renewal.Instance.ID, renewal.Instance.DisplayTitle(),
		renewal.PreviousDueBack, *renewal.Instance.DueBack)
	c.JSON(http.StatusOK, gin.H{
		"id":       renewal.Instance.ID,
		"due_back": formatDate(renewal.Instance.DueBack),
	})
}
