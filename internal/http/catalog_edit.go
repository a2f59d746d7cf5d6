package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joelsmith11/locallibrary/internal/auth"
	"github.com/joelsmith11/locallibrary/internal/database/catalog"
	"github.com/joelsmith11/locallibrary/internal/entities"
	"github.com/joelsmith11/locallibrary/internal/forms"
)

// CatalogEditController serves the staff create, update and delete forms
// for authors and books. Create and update share one template per entity.
type CatalogEditController struct {
	store CatalogEditor
	audit AuditLogger
	today func() time.Time
}

func NewCatalogEditController(store CatalogEditor, auditLogger AuditLogger, today func() time.Time) *CatalogEditController {
	if auditLogger == nil {
		auditLogger = nopAudit{}
	}
	return &CatalogEditController{
		store: store,
		audit: auditLogger,
		today: today,
	}
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// --- Authors ---

func (ec *CatalogEditController) renderAuthorForm(c *gin.Context, author *entities.Author, form forms.AuthorForm, errs forms.Errors) {
	title := "Create Author"
	if author != nil {
		title = "Update Author: " + author.DisplayName()
	}
	data := viewData(c, title)
	data["Schema"] = forms.AuthorSchema
	data["Author"] = author
	data["Form"] = form
	data["Errors"] = errs
	c.HTML(http.StatusOK, "author_form.html", data)
}

// loadAuthor resolves :id, rendering 404 for unknown authors.
func (ec *CatalogEditController) loadAuthor(c *gin.Context) (*entities.Author, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	author, err := ec.store.GetAuthor(id)
	if errors.Is(err, catalog.ErrNotFound) {
		renderNotFound(c)
		return nil, false
	}
	if err != nil {
		renderInternalError(c, err, "get author")
		return nil, false
	}
	return author, true
}

func (ec *CatalogEditController) AuthorCreatePage(c *gin.Context) {
	ec.renderAuthorForm(c, nil, forms.NewAuthorForm(ec.today()), forms.Errors{})
}

func (ec *CatalogEditController) AuthorCreate(c *gin.Context) {
	var form forms.AuthorForm
	if errs := bindForm(c, &form); errs.Any() {
		ec.renderAuthorForm(c, nil, form, errs)
		return
	}

	author := &entities.Author{}
	if errs := form.Validate(author); errs.Any() {
		ec.renderAuthorForm(c, nil, form, errs)
		return
	}

	if err := ec.store.CreateAuthor(author); err != nil {
		renderInternalError(c, err, "create author")
		return
	}

	ec.audit.LogCatalogChange(auth.GetUserID(c), "create", "author", idString(author.ID), author.DisplayName())
	c.Redirect(http.StatusFound, "/authors/"+idString(author.ID))
}

func (ec *CatalogEditController) AuthorUpdatePage(c *gin.Context) {
	author, ok := ec.loadAuthor(c)
	if !ok {
		return
	}
	ec.renderAuthorForm(c, author, forms.AuthorFormFrom(author), forms.Errors{})
}

func (ec *CatalogEditController) AuthorUpdate(c *gin.Context) {
	author, ok := ec.loadAuthor(c)
	if !ok {
		return
	}

	var form forms.AuthorForm
	if errs := bindForm(c, &form); errs.Any() {
		ec.renderAuthorForm(c, author, form, errs)
		return
	}

	if errs := form.Validate(author); errs.Any() {
		ec.renderAuthorForm(c, author, form, errs)
		return
	}

	if err := ec.store.UpdateAuthor(author); err != nil {
		renderInternalError(c, err, "update author")
		return
	}

	ec.audit.LogCatalogChange(auth.GetUserID(c), "update", "author", idString(author.ID), author.DisplayName())
	c.Redirect(http.StatusFound, "/authors/"+idString(author.ID))
}

func (ec *CatalogEditController) AuthorDeletePage(c *gin.Context) {
	author, ok := ec.loadAuthor(c)
	if !ok {
		return
	}
	data := viewData(c, "Delete Author")
	data["Kind"] = "author"
	data["Name"] = author.DisplayName()
	data["Related"] = len(author.Books)
	data["Cancel"] = "/authors/" + idString(author.ID)
	c.HTML(http.StatusOK, "confirm_delete.html", data)
}

// AuthorDelete removes the author. Their books stay, without an author.
func (ec *CatalogEditController) AuthorDelete(c *gin.Context) {
	author, ok := ec.loadAuthor(c)
	if !ok {
		return
	}

	err := ec.store.DeleteAuthor(author.ID)
	if errors.Is(err, catalog.ErrNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderInternalError(c, err, "delete author")
		return
	}

	ec.audit.LogDelete(auth.GetUserID(c), "author", idString(author.ID), author.DisplayName())
	c.Redirect(http.StatusFound, "/authors/")
}

// --- Books ---

// bookChoices loads the options of the author, genre and language inputs.
func (ec *CatalogEditController) bookChoices() (gin.H, error) {
	authors, _, err := ec.store.ListAuthors(0, 0)
	if err != nil {
		return nil, err
	}
	genres, err := ec.store.ListGenres()
	if err != nil {
		return nil, err
	}
	languages, err := ec.store.ListLanguages()
	if err != nil {
		return nil, err
	}
	return gin.H{"Authors": authors, "Genres": genres, "Languages": languages}, nil
}

func (ec *CatalogEditController) renderBookForm(c *gin.Context, book *entities.Book, form forms.BookForm, errs forms.Errors) {
	choices, err := ec.bookChoices()
	if err != nil {
		renderInternalError(c, err, "book form choices")
		return
	}

	title := "Create Book"
	if book != nil {
		title = "Update Book: " + book.Title
	}
	data := viewData(c, title)
	data["Schema"] = forms.BookSchema
	data["Book"] = book
	data["Form"] = form
	data["Errors"] = errs
	data["Choices"] = choices
	c.HTML(http.StatusOK, "book_form.html", data)
}

func (ec *CatalogEditController) loadBook(c *gin.Context) (*entities.Book, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	book, err := ec.store.GetBook(id)
	if errors.Is(err, catalog.ErrNotFound) {
		renderNotFound(c)
		return nil, false
	}
	if err != nil {
		renderInternalError(c, err, "get book")
		return nil, false
	}
	return book, true
}

// referenceError maps an unknown-reference error to the offending field.
func referenceError(err error) (forms.Errors, bool) {
	errs := forms.Errors{}
	switch {
	case errors.Is(err, catalog.ErrUnknownAuthor):
		errs.Add("author", "Select a valid choice. That author does not exist.")
	case errors.Is(err, catalog.ErrUnknownLanguage):
		errs.Add("language", "Select a valid choice. That language does not exist.")
	case errors.Is(err, catalog.ErrUnknownGenre):
		errs.Add("genre", "Select a valid choice. That genre does not exist.")
	default:
		return nil, false
	}
	return errs, true
}

func (ec *CatalogEditController) BookCreatePage(c *gin.Context) {
	ec.renderBookForm(c, nil, forms.BookForm{}, forms.Errors{})
}

func (ec *CatalogEditController) BookCreate(c *gin.Context) {
	var form forms.BookForm
	if errs := bindForm(c, &form); errs.Any() {
		ec.renderBookForm(c, nil, form, errs)
		return
	}

	book := &entities.Book{}
	genreIDs, errs := form.Validate(book)
	if errs.Any() {
		ec.renderBookForm(c, nil, form, errs)
		return
	}

	if err := ec.store.CreateBook(book, genreIDs); err != nil {
		if refErrs, ok := referenceError(err); ok {
			ec.renderBookForm(c, nil, form, refErrs)
			return
		}
		renderInternalError(c, err, "create book")
		return
	}

	ec.audit.LogCatalogChange(auth.GetUserID(c), "create", "book", idString(book.ID), book.Title)
	c.Redirect(http.StatusFound, "/books/"+idString(book.ID))
}

func (ec *CatalogEditController) BookUpdatePage(c *gin.Context) {
	book, ok := ec.loadBook(c)
	if !ok {
		return
	}
	ec.renderBookForm(c, book, forms.BookFormFrom(book), forms.Errors{})
}

func (ec *CatalogEditController) BookUpdate(c *gin.Context) {
	book, ok := ec.loadBook(c)
	if !ok {
		return
	}

	var form forms.BookForm
	if errs := bindForm(c, &form); errs.Any() {
		ec.renderBookForm(c, book, form, errs)
		return
	}

	genreIDs, errs := form.Validate(book)
	if errs.Any() {
		ec.renderBookForm(c, book, form, errs)
		return
	}

	if err := ec.store.UpdateBook(book, genreIDs); err != nil {
		if refErrs, ok := referenceError(err); ok {
			ec.renderBookForm(c, book, form, refErrs)
			return
		}
		renderInternalError(c, err, "update book")
		return
	}

	ec.audit.LogCatalogChange(auth.GetUserID(c), "update", "book", idString(book.ID), book.Title)
	c.Redirect(http.StatusFound, "/books/"+idString(book.ID))
}

func (ec *CatalogEditController) BookDeletePage(c *gin.Context) {
	book, ok := ec.loadBook(c)
	if !ok {
		return
	}
	data := viewData(c, "Delete Book")
	data["Kind"] = "book"
	data["Name"] = book.Title
	data["Related"] = len(book.Instances)
	data["Cancel"] = "/books/" + idString(book.ID)
	c.HTML(http.StatusOK, "confirm_delete.html", data)
}

// BookDelete removes the book together with its copies.
func (ec *CatalogEditController) BookDelete(c *gin.Context) {
	book, ok := ec.loadBook(c)
	if !ok {
		return
	}

	err := ec.store.DeleteBook(book.ID)
	if errors.Is(err, catalog.ErrNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderInternalError(c, err, "delete book")
		return
	}

	ec.audit.LogDelete(auth.GetUserID(c), "book", idString(book.ID), book.Title)
	c.Redirect(http.StatusFound, "/books/")
}
