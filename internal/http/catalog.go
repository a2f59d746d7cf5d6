package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joelsmith11/locallibrary/internal/database/catalog"
)

// CatalogController serves the public book and author pages.
type CatalogController struct {
	reader   CatalogReader
	pageSize int
}

func NewCatalogController(reader CatalogReader, pageSize int) *CatalogController {
	return &CatalogController{
		reader:   reader,
		pageSize: pageSize,
	}
}

func (cc *CatalogController) BookList(c *gin.Context) {
	books, page, err := paginate(c, cc.pageSize, cc.reader.ListBooks)
	if errors.Is(err, errPageNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderInternalError(c, err, "list books")
		return
	}

	data := viewData(c, "Book List")
	data["Books"] = books
	data["Pagination"] = page
	c.HTML(http.StatusOK, "book_list.html", data)
}

func (cc *CatalogController) BookDetail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.reader.GetBook(id)
	if errors.Is(err, catalog.ErrNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderInternalError(c, err, "get book")
		return
	}

	data := viewData(c, book.Title)
	data["Book"] = book
	c.HTML(http.StatusOK, "book_detail.html", data)
}

func (cc *CatalogController) AuthorList(c *gin.Context) {
	authors, page, err := paginate(c, cc.pageSize, cc.reader.ListAuthors)
	if errors.Is(err, errPageNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderInternalError(c, err, "list authors")
		return
	}

	data := viewData(c, "Author List")
	data["Authors"] = authors
	data["Pagination"] = page
	c.HTML(http.StatusOK, "author_list.html", data)
}

func (cc *CatalogController) AuthorDetail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	author, err := cc.reader.GetAuthor(id)
	if errors.Is(err, catalog.ErrNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderInternalError(c, err, "get author")
		return
	}

	data := viewData(c, author.DisplayName())
	data["Author"] = author
	c.HTML(http.StatusOK, "author_detail.html", data)
}

// redirectTo permanently redirects the singular URL style
// (/book/1) to the plural one (/books/1).
func redirectTo(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, prefix+c.Param("id"))
	}
}
