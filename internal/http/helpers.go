package http

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joelsmith11/locallibrary/internal/auth"
	"github.com/joelsmith11/locallibrary/internal/entities"
	"github.com/joelsmith11/locallibrary/internal/forms"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // field errors
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// --- JSON Error Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: "NOT_FOUND"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// --- HTML Helpers ---

// viewData returns the values every page template expects.
func viewData(c *gin.Context, title string) gin.H {
	return gin.H{
		"Title":     title,
		"User":      auth.CurrentUser(c),
		"IsStaff":   auth.HasCapability(c, entities.CapabilityMarkReturned),
		"IsAdmin":   auth.HasCapability(c, entities.CapabilityAdmin),
		"CSRFToken": auth.GetCSRFToken(c),
		"CSRFField": auth.CSRFFieldName,
	}
}

// renderNotFound renders the 404 page.
func renderNotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "404.html", viewData(c, "Not found"))
}

// renderForbidden renders the 403 page. It is also installed as the
// forbidden handler of the auth middleware.
func renderForbidden(c *gin.Context) {
	c.HTML(http.StatusForbidden, "403.html", viewData(c, "Forbidden"))
}

// renderInternalError logs err and renders a plain 500 response.
func renderInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.String(http.StatusInternalServerError, "Internal server error")
}

// bindForm binds the posted form into dst. A body that cannot be parsed
// yields a form-wide error instead of empty fields.
func bindForm(c *gin.Context, dst any) forms.Errors {
	err := c.ShouldBind(dst)
	if err != nil {
		log.Printf("[Forms] failed to bind %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	return forms.BindError(err)
}

// --- Parameter Parsing ---

// parseIDParam extracts an unsigned integer ID from URL parameters.
// Malformed IDs cannot name a record, so they render the 404 page.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		renderNotFound(c)
		return 0, false
	}
	return uint(id), true
}

// parseAPIIDParam is parseIDParam for JSON endpoints.
func parseAPIIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// --- Pagination ---

// errPageNotFound reports a malformed or out-of-range page number.
var errPageNotFound = errors.New("invalid page")

// Pagination describes the current page of a list view.
type Pagination struct {
	Page     int
	Pages    int
	Total    int64
	PageSize int
}

func newPagination(page, size int, total int64) Pagination {
	pages := int((total + int64(size) - 1) / int64(size))
	if pages < 1 {
		pages = 1
	}
	return Pagination{Page: page, Pages: pages, Total: total, PageSize: size}
}

func (p Pagination) IsPaginated() bool { return p.Pages > 1 }
func (p Pagination) HasPrevious() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool     { return p.Page < p.Pages }
func (p Pagination) Previous() int     { return p.Page - 1 }
func (p Pagination) Next() int         { return p.Page + 1 }

// paginate loads the page named by the "page" query parameter. The first
// page always exists, even when empty; "last" names the final page. Any
// other page past the end yields errPageNotFound.
func paginate[T any](c *gin.Context, size int, fetch func(limit, offset int) ([]T, int64, error)) ([]T, Pagination, error) {
	raw := c.DefaultQuery("page", "1")

	page := 1
	if raw == "last" {
		items, total, err := fetch(size, 0)
		if err != nil {
			return nil, Pagination{}, err
		}
		p := newPagination(1, size, total)
		if p.Pages == 1 {
			return items, p, nil
		}
		page = p.Pages
	} else {
		n, err := strconv.Atoi(raw)
		// n*size must not overflow the offset
		if err != nil || n < 1 || n > math.MaxInt/size {
			return nil, Pagination{}, errPageNotFound
		}
		page = n
	}

	items, total, err := fetch(size, (page-1)*size)
	if err != nil {
		return nil, Pagination{}, err
	}
	if page > 1 && len(items) == 0 {
		return nil, Pagination{}, errPageNotFound
	}
	return items, newPagination(page, size, total), nil
}

// --- Template Functions ---

// formatDate renders an optional date as YYYY-MM-DD.
func formatDate(t *time.Time) string {
	return forms.FormatDate(t)
}

// formatTime renders a timestamp for tables.
func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
