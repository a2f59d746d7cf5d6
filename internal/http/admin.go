package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joelsmith11/locallibrary/internal/auth"
	dbaudit "github.com/joelsmith11/locallibrary/internal/database/audit"
	"github.com/joelsmith11/locallibrary/internal/database/catalog"
	dbloans "github.com/joelsmith11/locallibrary/internal/database/loans"
	"github.com/joelsmith11/locallibrary/internal/entities"
	"github.com/joelsmith11/locallibrary/internal/forms"
)

const (
	adminPrefix   = "/admin"
	auditPageSize = 50
)

// AdminController is the backoffice: a raw editor over every catalog
// table. Edits here bypass the renewal window.
type AdminController struct {
	catalog   CatalogAdmin
	instances InstanceAdmin
	users     UserLister
	events    AuditReader
	audit     AuditLogger
	today     func() time.Time
	pageSize  int
}

// AdminConfig groups the backoffice dependencies. Events and Audit may be nil.
type AdminConfig struct {
	Catalog   CatalogAdmin
	Instances InstanceAdmin
	Users     UserLister
	Events    AuditReader
	Audit     AuditLogger
	Today     func() time.Time
	PageSize  int
}

func NewAdminController(cfg AdminConfig) *AdminController {
	auditLogger := cfg.Audit
	if auditLogger == nil {
		auditLogger = nopAudit{}
	}
	return &AdminController{
		catalog:   cfg.Catalog,
		instances: cfg.Instances,
		users:     cfg.Users,
		events:    cfg.Events,
		audit:     auditLogger,
		today:     cfg.Today,
		pageSize:  cfg.PageSize,
	}
}

// RegisterRoutes mounts the backoffice under /admin. The caller applies
// the capability guard to group.
func (ac *AdminController) RegisterRoutes(group gin.IRouter) {
	group.GET("/", ac.Index)

	for _, na := range []*namedAdmin{ac.genreAdmin(), ac.languageAdmin()} {
		group.GET("/"+na.plural+"/", na.List)
		group.GET("/"+na.plural+"/add", na.AddPage)
		group.POST("/"+na.plural+"/add", na.Add)
		group.GET("/"+na.plural+"/:id", na.ChangePage)
		group.POST("/"+na.plural+"/:id", na.Change)
		group.GET("/"+na.plural+"/:id/delete", na.DeletePage)
		group.POST("/"+na.plural+"/:id/delete", na.Delete)
	}

	group.GET("/authors/", ac.AuthorList)
	group.GET("/authors/add", ac.AuthorAddPage)
	group.POST("/authors/add", ac.AuthorAdd)
	group.GET("/authors/:id", ac.AuthorChangePage)
	group.POST("/authors/:id", ac.AuthorChange)
	group.GET("/authors/:id/delete", ac.AuthorDeletePage)
	group.POST("/authors/:id/delete", ac.AuthorDelete)

	group.GET("/books/", ac.BookList)
	group.GET("/books/add", ac.BookAddPage)
	group.POST("/books/add", ac.BookAdd)
	group.GET("/books/:id", ac.BookChangePage)
	group.POST("/books/:id", ac.BookChange)
	group.GET("/books/:id/delete", ac.BookDeletePage)
	group.POST("/books/:id/delete", ac.BookDelete)

	group.GET("/instances/", ac.InstanceList)
	group.GET("/instances/add", ac.InstanceAddPage)
	group.POST("/instances/add", ac.InstanceAdd)
	group.GET("/instances/:instance_id", ac.InstanceChangePage)
	group.POST("/instances/:instance_id", ac.InstanceChange)
	group.GET("/instances/:instance_id/delete", ac.InstanceDeletePage)
	group.POST("/instances/:instance_id/delete", ac.InstanceDelete)

	if ac.events != nil {
		group.GET("/audit/", ac.AuditLog)
	}
}

func (ac *AdminController) Index(c *gin.Context) {
	data := viewData(c, "Site administration")
	data["HasAudit"] = ac.events != nil
	c.HTML(http.StatusOK, "admin_index.html", data)
}

func (ac *AdminController) confirmDelete(c *gin.Context, kind, name, cancel string) {
	data := viewData(c, "Delete "+kind)
	data["Kind"] = kind
	data["Name"] = name
	data["Cancel"] = cancel
	c.HTML(http.StatusOK, "confirm_delete.html", data)
}

// --- Genres and languages ---

type namedRow struct {
	ID   uint
	Name string
}

// namedAdmin edits an entity whose only field is its name.
type namedAdmin struct {
	ac     *AdminController
	kind   string // genre
	plural string // genres
	list   func() ([]namedRow, error)
	get    func(id uint) (string, error)
	create func(name string) (uint, error)
	update func(id uint, name string) error
	delete func(id uint) error
}

func (ac *AdminController) genreAdmin() *namedAdmin {
	return &namedAdmin{
		ac: ac, kind: "genre", plural: "genres",
		list: func() ([]namedRow, error) {
			genres, err := ac.catalog.ListGenres()
			rows := make([]namedRow, len(genres))
			for i, g := range genres {
				rows[i] = namedRow{ID: g.ID, Name: g.Name}
			}
			return rows, err
		},
		get: func(id uint) (string, error) {
			g, err := ac.catalog.GetGenre(id)
			if err != nil {
				return "", err
			}
			return g.Name, nil
		},
		create: func(name string) (uint, error) {
			g := &entities.Genre{Name: name}
			err := ac.catalog.CreateGenre(g)
			return g.ID, err
		},
		update: func(id uint, name string) error {
			return ac.catalog.UpdateGenre(&entities.Genre{ID: id, Name: name})
		},
		delete: ac.catalog.DeleteGenre,
	}
}

func (ac *AdminController) languageAdmin() *namedAdmin {
	return &namedAdmin{
		ac: ac, kind: "language", plural: "languages",
		list: func() ([]namedRow, error) {
			languages, err := ac.catalog.ListLanguages()
			rows := make([]namedRow, len(languages))
			for i, l := range languages {
				rows[i] = namedRow{ID: l.ID, Name: l.Name}
			}
			return rows, err
		},
		get: func(id uint) (string, error) {
			l, err := ac.catalog.GetLanguage(id)
			if err != nil {
				return "", err
			}
			return l.Name, nil
		},
		create: func(name string) (uint, error) {
			l := &entities.Language{Name: name}
			err := ac.catalog.CreateLanguage(l)
			return l.ID, err
		},
		update: func(id uint, name string) error {
			return ac.catalog.UpdateLanguage(&entities.Language{ID: id, Name: name})
		},
		delete: ac.catalog.DeleteLanguage,
	}
}

func (na *namedAdmin) listPath() string {
	return adminPrefix + "/" + na.plural + "/"
}

func (na *namedAdmin) List(c *gin.Context) {
	rows, err := na.list()
	if err != nil {
		renderInternalError(c, err, "list "+na.plural)
		return
	}
	data := viewData(c, "Select "+na.kind+" to change")
	data["Kind"] = na.kind
	data["Plural"] = na.plural
	data["Rows"] = rows
	c.HTML(http.StatusOK, "admin_named_list.html", data)
}

func (na *namedAdmin) render(c *gin.Context, id uint, form forms.NameForm, errs forms.Errors) {
	title := "Add " + na.kind
	if id != 0 {
		title = "Change " + na.kind
	}
	data := viewData(c, title)
	data["Kind"] = na.kind
	data["Plural"] = na.plural
	data["ID"] = id
	data["Schema"] = forms.NameSchema
	data["Form"] = form
	data["Errors"] = errs
	c.HTML(http.StatusOK, "admin_named_form.html", data)
}

// load resolves :id and the current name, rendering 404 when unknown.
func (na *namedAdmin) load(c *gin.Context) (uint, string, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return 0, "", false
	}
	name, err := na.get(id)
	if errors.Is(err, catalog.ErrNotFound) {
		renderNotFound(c)
		return 0, "", false
	}
	if err != nil {
		renderInternalError(c, err, "get "+na.kind)
		return 0, "", false
	}
	return id, name, true
}

func (na *namedAdmin) AddPage(c *gin.Context) {
	na.render(c, 0, forms.NameForm{}, forms.Errors{})
}

func (na *namedAdmin) Add(c *gin.Context) {
	var form forms.NameForm
	if errs := bindForm(c, &form); errs.Any() {
		na.render(c, 0, form, errs)
		return
	}
	name, errs := form.Validate()
	if errs.Any() {
		na.render(c, 0, form, errs)
		return
	}

	id, err := na.create(name)
	if err != nil {
		renderInternalError(c, err, "create "+na.kind)
		return
	}
	na.ac.audit.LogCatalogChange(auth.GetUserID(c), "create", na.kind, idString(id), name)
	c.Redirect(http.StatusFound, na.listPath())
}

func (na *namedAdmin) ChangePage(c *gin.Context) {
	id, name, ok := na.load(c)
	if !ok {
		return
	}
	na.render(c, id, forms.NameForm{Name: name}, forms.Errors{})
}

func (na *namedAdmin) Change(c *gin.Context) {
	id, _, ok := na.load(c)
	if !ok {
		return
	}

	var form forms.NameForm
	if errs := bindForm(c, &form); errs.Any() {
		na.render(c, id, form, errs)
		return
	}
	name, errs := form.Validate()
	if errs.Any() {
		na.render(c, id, form, errs)
		return
	}

	if err := na.update(id, name); err != nil {
		renderInternalError(c, err, "update "+na.kind)
		return
	}
	na.ac.audit.LogCatalogChange(auth.GetUserID(c), "update", na.kind, idString(id), name)
	c.Redirect(http.StatusFound, na.listPath())
}

func (na *namedAdmin) DeletePage(c *gin.Context) {
	id, name, ok := na.load(c)
	if !ok {
		return
	}
	na.ac.confirmDelete(c, na.kind, name, na.listPath()+idString(id))
}

func (na *namedAdmin) Delete(c *gin.Context) {
	id, name, ok := na.load(c)
	if !ok {
		return
	}
	if err := na.delete(id); err != nil {
		renderInternalError(c, err, "delete "+na.kind)
		return
	}
	na.ac.audit.LogDelete(auth.GetUserID(c), na.kind, idString(id), name)
	c.Redirect(http.StatusFound, na.listPath())
}

// --- Authors ---

// bookTitleRow is one inline book row on the author page.
type bookTitleRow struct {
	ID    uint
	Title string
	Error string
}

func (ac *AdminController) AuthorList(c *gin.Context) {
	authors, page, err := paginate(c, ac.pageSize, ac.catalog.ListAuthors)
	if errors.Is(err, errPageNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderInternalError(c, err, "admin list authors")
		return
	}
	data := viewData(c, "Select author to change")
	data["Authors"] = authors
	data["Pagination"] = page
	c.HTML(http.StatusOK, "admin_author_list.html", data)
}

func (ac *AdminController) renderAuthor(c *gin.Context, author *entities.Author, form forms.AuthorForm, errs forms.Errors, rows []bookTitleRow) {
	title := "Add author"
	if author != nil {
		title = "Change author"
	}
	data := viewData(c, title)
	data["Author"] = author
	data["Form"] = form
	data["Errors"] = errs
	data["Books"] = rows
	c.HTML(http.StatusOK, "admin_author_form.html", data)
}

func (ac *AdminController) loadAuthor(c *gin.Context) (*entities.Author, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	author, err := ac.catalog.GetAuthor(id)
	if errors.Is(err, catalog.ErrNotFound) {
		renderNotFound(c)
		return nil, false
	}
	if err != nil {
		renderInternalError(c, err, "admin get author")
		return nil, false
	}
	return author, true
}

func (ac *AdminController) AuthorAddPage(c *gin.Context) {
	ac.renderAuthor(c, nil, forms.AuthorForm{}, forms.Errors{}, nil)
}

func (ac *AdminController) AuthorAdd(c *gin.Context) {
	var form forms.AuthorForm
	if errs := bindForm(c, &form); errs.Any() {
		ac.renderAuthor(c, nil, form, errs, nil)
		return
	}

	author := &entities.Author{}
	if errs := form.Validate(author); errs.Any() {
		ac.renderAuthor(c, nil, form, errs, nil)
		return
	}
	if err := ac.catalog.CreateAuthor(author); err != nil {
		renderInternalError(c, err, "admin create author")
		return
	}
	ac.audit.LogCatalogChange(auth.GetUserID(c), "create", "author", idString(author.ID), author.DisplayName())
	c.Redirect(http.StatusFound, adminPrefix+"/authors/")
}

func (ac *AdminController) AuthorChangePage(c *gin.Context) {
	author, ok := ac.loadAuthor(c)
	if !ok {
		return
	}
	ac.renderAuthor(c, author, forms.AuthorFormFrom(author), forms.Errors{}, authorTitleRows(author))
}

// authorTitleRows lists the stored titles of the author's books.
func authorTitleRows(author *entities.Author) []bookTitleRow {
	rows := make([]bookTitleRow, len(author.Books))
	for i, b := range author.Books {
		rows[i] = bookTitleRow{ID: b.ID, Title: b.Title}
	}
	return rows
}

// AuthorChange saves the author and the inline titles of their books,
// submitted as book_title_<id> fields.
func (ac *AdminController) AuthorChange(c *gin.Context) {
	author, ok := ac.loadAuthor(c)
	if !ok {
		return
	}

	var form forms.AuthorForm
	if errs := bindForm(c, &form); errs.Any() {
		ac.renderAuthor(c, author, form, errs, authorTitleRows(author))
		return
	}

	rows := make([]bookTitleRow, len(author.Books))
	titles := make(map[uint]string, len(author.Books))
	rowsValid := true
	for i, b := range author.Books {
		title, submitted := c.GetPostForm("book_title_" + idString(b.ID))
		if !submitted {
			title = b.Title
		}
		title = strings.TrimSpace(title)
		rows[i] = bookTitleRow{ID: b.ID, Title: title}
		switch {
		case title == "":
			rows[i].Error = "This field is required."
			rowsValid = false
		case len(title) > 200:
			rows[i].Error = "Ensure this value has at most 200 characters."
			rowsValid = false
		case title != b.Title:
			titles[b.ID] = title
		}
	}

	errs := form.Validate(author)
	if errs.Any() || !rowsValid {
		ac.renderAuthor(c, author, form, errs, rows)
		return
	}

	if err := ac.catalog.UpdateAuthor(author); err != nil {
		renderInternalError(c, err, "admin update author")
		return
	}
	if len(titles) > 0 {
		if err := ac.catalog.UpdateBookTitles(author.ID, titles); err != nil {
			renderInternalError(c, err, "admin update book titles")
			return
		}
	}
	ac.audit.LogCatalogChange(auth.GetUserID(c), "update", "author", idString(author.ID), author.DisplayName())
	c.Redirect(http.StatusFound, adminPrefix+"/authors/")
}

func (ac *AdminController) AuthorDeletePage(c *gin.Context) {
	author, ok := ac.loadAuthor(c)
	if !ok {
		return
	}
	ac.confirmDelete(c, "author", author.DisplayName(), adminPrefix+"/authors/"+idString(author.ID))
}

func (ac *AdminController) AuthorDelete(c *gin.Context) {
	author, ok := ac.loadAuthor(c)
	if !ok {
		return
	}
	if err := ac.catalog.DeleteAuthor(author.ID); err != nil {
		renderInternalError(c, err, "admin delete author")
		return
	}
	ac.audit.LogDelete(auth.GetUserID(c), "author", idString(author.ID), author.DisplayName())
	c.Redirect(http.StatusFound, adminPrefix+"/authors/")
}

// --- Books ---

// instanceRow is one inline copy row on the book page. An empty ID marks
// the blank row for adding a copy.
type instanceRow struct {
	ID     string
	Form   forms.InstanceForm
	Errors forms.Errors
	Delete bool
}

func (ac *AdminController) BookList(c *gin.Context) {
	books, page, err := paginate(c, ac.pageSize, ac.catalog.ListBooks)
	if errors.Is(err, errPageNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderInternalError(c, err, "admin list books")
		return
	}
	data := viewData(c, "Select book to change")
	data["Books"] = books
	data["Pagination"] = page
	c.HTML(http.StatusOK, "admin_book_list.html", data)
}

func (ac *AdminController) renderBook(c *gin.Context, book *entities.Book, form forms.BookForm, errs forms.Errors, rows []instanceRow) {
	authors, _, err := ac.catalog.ListAuthors(0, 0)
	if err != nil {
		renderInternalError(c, err, "admin book choices")
		return
	}
	genres, err := ac.catalog.ListGenres()
	if err != nil {
		renderInternalError(c, err, "admin book choices")
		return
	}
	languages, err := ac.catalog.ListLanguages()
	if err != nil {
		renderInternalError(c, err, "admin book choices")
		return
	}
	users, err := ac.users.List()
	if err != nil {
		renderInternalError(c, err, "admin book choices")
		return
	}

	title := "Add book"
	if book != nil {
		title = "Change book"
	}
	data := viewData(c, title)
	data["Book"] = book
	data["Form"] = form
	data["Errors"] = errs
	data["Instances"] = rows
	data["Statuses"] = entities.LoanStatuses
	data["Choices"] = gin.H{"Authors": authors, "Genres": genres, "Languages": languages, "Users": users}
	c.HTML(http.StatusOK, "admin_book_form.html", data)
}

func (ac *AdminController) loadBook(c *gin.Context) (*entities.Book, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	book, err := ac.catalog.GetBook(id)
	if errors.Is(err, catalog.ErrNotFound) {
		renderNotFound(c)
		return nil, false
	}
	if err != nil {
		renderInternalError(c, err, "admin get book")
		return nil, false
	}
	return book, true
}

func (ac *AdminController) BookAddPage(c *gin.Context) {
	ac.renderBook(c, nil, forms.BookForm{}, forms.Errors{}, nil)
}

func (ac *AdminController) BookAdd(c *gin.Context) {
	var form forms.BookForm
	if errs := bindForm(c, &form); errs.Any() {
		ac.renderBook(c, nil, form, errs, nil)
		return
	}

	book := &entities.Book{}
	genreIDs, errs := form.Validate(book)
	if errs.Any() {
		ac.renderBook(c, nil, form, errs, nil)
		return
	}
	if err := ac.catalog.CreateBook(book, genreIDs); err != nil {
		if refErrs, ok := referenceError(err); ok {
			ac.renderBook(c, nil, form, refErrs, nil)
			return
		}
		renderInternalError(c, err, "admin create book")
		return
	}
	ac.audit.LogCatalogChange(auth.GetUserID(c), "create", "book", idString(book.ID), book.Title)
	c.Redirect(http.StatusFound, adminPrefix+"/books/"+idString(book.ID))
}

func (ac *AdminController) BookChangePage(c *gin.Context) {
	book, ok := ac.loadBook(c)
	if !ok {
		return
	}
	ac.renderBook(c, book, forms.BookFormFrom(book), forms.Errors{}, bookInstanceRows(book))
}

// bookInstanceRows lists the stored copies of book plus one blank row.
func bookInstanceRows(book *entities.Book) []instanceRow {
	rows := make([]instanceRow, 0, len(book.Instances)+1)
	for i := range book.Instances {
		inst := &book.Instances[i]
		rows = append(rows, instanceRow{ID: inst.ID.String(), Form: forms.InstanceFormFrom(inst), Errors: forms.Errors{}})
	}
	return append(rows, instanceRow{Form: forms.NewInstanceForm(), Errors: forms.Errors{}})
}

// inlineInstances reads the parallel instance_* arrays of the book page.
func inlineInstances(c *gin.Context, bookID uint) []instanceRow {
	ids := c.PostFormArray("instance_id")
	imprints := c.PostFormArray("instance_imprint")
	statuses := c.PostFormArray("instance_status")
	dueBacks := c.PostFormArray("instance_due_back")
	borrowers := c.PostFormArray("instance_borrower")
	deleted := make(map[string]bool)
	for _, id := range c.PostFormArray("instance_delete") {
		deleted[id] = true
	}

	at := func(values []string, i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}

	rows := make([]instanceRow, 0, len(ids))
	for i, id := range ids {
		rows = append(rows, instanceRow{
			ID: id,
			Form: forms.InstanceForm{
				Book:     idString(bookID),
				Imprint:  at(imprints, i),
				Status:   at(statuses, i),
				DueBack:  at(dueBacks, i),
				Borrower: at(borrowers, i),
			},
			Errors: forms.Errors{},
			Delete: id != "" && deleted[id],
		})
	}
	return rows
}

// BookChange saves the book and its inline copies. The blank row adds a
// copy when an imprint is given.
func (ac *AdminController) BookChange(c *gin.Context) {
	book, ok := ac.loadBook(c)
	if !ok {
		return
	}

	var form forms.BookForm
	if errs := bindForm(c, &form); errs.Any() {
		ac.renderBook(c, book, form, errs, bookInstanceRows(book))
		return
	}

	known := make(map[string]bool, len(book.Instances))
	for _, inst := range book.Instances {
		known[inst.ID.String()] = true
	}

	rows := inlineInstances(c, book.ID)
	type pending struct {
		instance entities.BookInstance
		create   bool
	}
	var saves []pending
	var deletes []uuid.UUID
	rowsValid := true
	for i := range rows {
		row := &rows[i]
		if row.ID == "" && strings.TrimSpace(row.Form.Imprint) == "" {
			continue
		}
		if row.ID != "" && !known[row.ID] {
			row.Errors.Add("", "This copy does not belong to the book.")
			rowsValid = false
			continue
		}
		if row.Delete {
			deletes = append(deletes, uuid.MustParse(row.ID))
			continue
		}
		var instance entities.BookInstance
		if row.Errors = row.Form.Validate(&instance); row.Errors.Any() {
			rowsValid = false
			continue
		}
		if row.ID != "" {
			instance.ID = uuid.MustParse(row.ID)
		}
		saves = append(saves, pending{instance: instance, create: row.ID == ""})
	}

	genreIDs, errs := form.Validate(book)
	if errs.Any() || !rowsValid {
		ac.renderBook(c, book, form, errs, rows)
		return
	}

	if err := ac.catalog.UpdateBook(book, genreIDs); err != nil {
		if refErrs, ok := referenceError(err); ok {
			ac.renderBook(c, book, form, refErrs, rows)
			return
		}
		renderInternalError(c, err, "admin update book")
		return
	}

	for _, p := range saves {
		instance := p.instance
		var err error
		if p.create {
			err = ac.instances.CreateInstance(&instance)
		} else {
			err = ac.instances.UpdateInstance(&instance)
		}
		if err != nil {
			renderInternalError(c, err, "admin save inline instance")
			return
		}
	}
	for _, id := range deletes {
		if err := ac.instances.DeleteInstance(id); err != nil {
			renderInternalError(c, err, "admin delete inline instance")
			return
		}
		ac.audit.LogDelete(auth.GetUserID(c), "book_instance", id.String(), book.Title)
	}

	ac.audit.LogCatalogChange(auth.GetUserID(c), "update", "book", idString(book.ID), book.Title)
	c.Redirect(http.StatusFound, adminPrefix+"/books/")
}

func (ac *AdminController) BookDeletePage(c *gin.Context) {
	book, ok := ac.loadBook(c)
	if !ok {
		return
	}
	ac.confirmDelete(c, "book", book.Title, adminPrefix+"/books/"+idString(book.ID))
}

func (ac *AdminController) BookDelete(c *gin.Context) {
	book, ok := ac.loadBook(c)
	if !ok {
		return
	}
	if err := ac.catalog.DeleteBook(book.ID); err != nil {
		renderInternalError(c, err, "admin delete book")
		return
	}
	ac.audit.LogDelete(auth.GetUserID(c), "book", idString(book.ID), book.Title)
	c.Redirect(http.StatusFound, adminPrefix+"/books/")
}

// --- Book instances ---

// dueBackChoices are the due date filter links, in display order.
var dueBackChoices = []struct {
	Value dbloans.DueBackFilter
	Label string
}{
	{dbloans.DueBackAny, "Any date"},
	{dbloans.DueBackToday, "Today"},
	{dbloans.DueBackPast7, "Past 7 days"},
	{dbloans.DueBackMonth, "This month"},
	{dbloans.DueBackYear, "This year"},
	{dbloans.DueBackNone, "No date"},
}

func validDueBackFilter(f dbloans.DueBackFilter) bool {
	for _, choice := range dueBackChoices {
		if choice.Value == f {
			return true
		}
	}
	return false
}

func (ac *AdminController) InstanceList(c *gin.Context) {
	filter := dbloans.InstanceFilter{
		Status:  entities.LoanStatus(c.Query("status")),
		DueBack: dbloans.DueBackFilter(c.Query("due_back")),
		Today:   ac.today(),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		filter.Status = ""
	}
	if !validDueBackFilter(filter.DueBack) {
		filter.DueBack = dbloans.DueBackAny
	}

	instances, page, err := paginate(c, ac.pageSize, func(limit, offset int) ([]entities.BookInstance, int64, error) {
		return ac.instances.ListInstances(filter, limit, offset)
	})
	if errors.Is(err, errPageNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderInternalError(c, err, "admin list instances")
		return
	}

	data := viewData(c, "Select book instance to change")
	data["Instances"] = instances
	data["Pagination"] = page
	data["Filter"] = filter
	data["Statuses"] = entities.LoanStatuses
	data["DueBackChoices"] = dueBackChoices
	c.HTML(http.StatusOK, "admin_instance_list.html", data)
}

func (ac *AdminController) renderInstance(c *gin.Context, instance *entities.BookInstance, form forms.InstanceForm, errs forms.Errors) {
	books, err := ac.catalog.ListAllBooks()
	if err != nil {
		renderInternalError(c, err, "admin instance choices")
		return
	}
	users, err := ac.users.List()
	if err != nil {
		renderInternalError(c, err, "admin instance choices")
		return
	}

	title := "Add book instance"
	if instance != nil {
		title = "Change book instance"
	}
	data := viewData(c, title)
	data["Instance"] = instance
	data["Form"] = form
	data["Errors"] = errs
	data["Fieldsets"] = forms.InstanceFieldsets
	data["Statuses"] = entities.LoanStatuses
	data["Choices"] = gin.H{"Books": books, "Users": users}
	c.HTML(http.StatusOK, "admin_instance_form.html", data)
}

func (ac *AdminController) loadInstance(c *gin.Context) (*entities.BookInstance, bool) {
	id, err := uuid.Parse(c.Param("instance_id"))
	if err != nil {
		renderNotFound(c)
		return nil, false
	}
	instance, err := ac.instances.GetInstance(id)
	if errors.Is(err, dbloans.ErrInstanceNotFound) {
		renderNotFound(c)
		return nil, false
	}
	if err != nil {
		renderInternalError(c, err, "admin get instance")
		return nil, false
	}
	return instance, true
}

func (ac *AdminController) InstanceAddPage(c *gin.Context) {
	form := forms.NewInstanceForm()
	if bookID := c.Query("book"); bookID != "" {
		form.Book = bookID
	}
	ac.renderInstance(c, nil, form, forms.Errors{})
}

func (ac *AdminController) InstanceAdd(c *gin.Context) {
	var form forms.InstanceForm
	if errs := bindForm(c, &form); errs.Any() {
		ac.renderInstance(c, nil, form, errs)
		return
	}

	instance := &entities.BookInstance{}
	if errs := form.Validate(instance); errs.Any() {
		ac.renderInstance(c, nil, form, errs)
		return
	}
	if _, err := ac.catalog.GetBook(*instance.BookID); errors.Is(err, catalog.ErrNotFound) {
		ac.renderInstance(c, nil, form, forms.Errors{"book": "Select a valid choice. That book does not exist."})
		return
	}
	if err := ac.instances.CreateInstance(instance); err != nil {
		renderInternalError(c, err, "admin create instance")
		return
	}
	ac.audit.LogCatalogChange(auth.GetUserID(c), "create", "book_instance", instance.ID.String(), instance.Imprint)
	c.Redirect(http.StatusFound, adminPrefix+"/instances/")
}

func (ac *AdminController) InstanceChangePage(c *gin.Context) {
	instance, ok := ac.loadInstance(c)
	if !ok {
		return
	}
	ac.renderInstance(c, instance, forms.InstanceFormFrom(instance), forms.Errors{})
}

func (ac *AdminController) InstanceChange(c *gin.Context) {
	instance, ok := ac.loadInstance(c)
	if !ok {
		return
	}

	var form forms.InstanceForm
	if errs := bindForm(c, &form); errs.Any() {
		ac.renderInstance(c, instance, form, errs)
		return
	}

	if errs := form.Validate(instance); errs.Any() {
		ac.renderInstance(c, instance, form, errs)
		return
	}
	if _, err := ac.catalog.GetBook(*instance.BookID); errors.Is(err, catalog.ErrNotFound) {
		ac.renderInstance(c, instance, form, forms.Errors{"book": "Select a valid choice. That book does not exist."})
		return
	}
	if err := ac.instances.UpdateInstance(instance); err != nil {
		renderInternalError(c, err, "admin update instance")
		return
	}
	ac.audit.LogCatalogChange(auth.GetUserID(c), "update", "book_instance", instance.ID.String(), instance.Imprint)
	c.Redirect(http.StatusFound, adminPrefix+"/instances/")
}

func (ac *AdminController) InstanceDeletePage(c *gin.Context) {
	instance, ok := ac.loadInstance(c)
	if !ok {
		return
	}
	name := instance.DisplayTitle() + " (" + instance.ID.String() + ")"
	ac.confirmDelete(c, "book instance", name, adminPrefix+"/instances/"+instance.ID.String())
}

func (ac *AdminController) InstanceDelete(c *gin.Context) {
	instance, ok := ac.loadInstance(c)
	if !ok {
		return
	}
	if err := ac.instances.DeleteInstance(instance.ID); err != nil {
		renderInternalError(c, err, "admin delete instance")
		return
	}
	ac.audit.LogDelete(auth.GetUserID(c), "book_instance", instance.ID.String(), instance.DisplayTitle())
	c.Redirect(http.StatusFound, adminPrefix+"/instances/")
}

// --- Audit log ---

func (ac *AdminController) AuditLog(c *gin.Context) {
	filter := dbaudit.Filter{
		EventType:  entities.AuditEventType(c.Query("event_type")),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
	}
	if userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32); err == nil {
		filter.UserID = uint(userID)
	}

	events, page, err := paginate(c, auditPageSize, func(limit, offset int) ([]entities.AuditEvent, int64, error) {
		return ac.events.GetEvents(filter, limit, offset)
	})
	if errors.Is(err, errPageNotFound) {
		renderNotFound(c)
		return
	}
	if err != nil {
		renderInternalError(c, err, "admin audit log")
		return
	}

	data := viewData(c, "Audit log")
	data["Events"] = events
	data["Pagination"] = page
	data["Filter"] = filter
	c.HTML(http.StatusOK, "admin_audit.html", data)
}
