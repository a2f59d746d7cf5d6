package http

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/joelsmith11/locallibrary/internal/audit"
	"github.com/joelsmith11/locallibrary/internal/auth"
	"github.com/joelsmith11/locallibrary/internal/config"
	"github.com/joelsmith11/locallibrary/internal/database"
	"github.com/joelsmith11/locallibrary/internal/entities"
	"github.com/joelsmith11/locallibrary/internal/loans"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "correct-horse-battery"

// testToday is the fixed calendar date seen by the loan service.
var testToday = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

// testPages render just enough of each page for assertions.
var testPages = map[string]string{
	"index.html":         `home books={{.Stats.Books}} copies={{.Stats.Instances}} available={{.Stats.InstancesAvailable}} authors={{.Stats.Authors}} history={{.Stats.HistoryBooks}} visits={{.NumVisits}}`,
	"book_list.html":     `books{{range .Books}} [{{.Title}}]{{end}} page={{.Pagination.Page}}/{{.Pagination.Pages}}`,
	"book_detail.html":   `book {{.Book.Title}} by {{.Book.AuthorName}} copies={{len .Book.Instances}}`,
	"author_list.html":   `authors{{range .Authors}} [{{.DisplayName}}]{{end}} page={{.Pagination.Page}}/{{.Pagination.Pages}}`,
	"author_detail.html": `author {{.Author.DisplayName}} books={{len .Author.Books}}`,
	"mybooks.html":       `mybooks{{range .Instances}} [{{.DisplayTitle}} {{formatDate .DueBack}}{{if .IsOverdue $.Today}} overdue{{end}}]{{end}}`,
	"staffbooks.html":    `staffbooks{{range .Instances}} [{{.DisplayTitle}} {{.BorrowerName}}]{{end}}`,
	"renew.html":         `renew {{.Instance.DisplayTitle}} date={{.Form.RenewalDate}}{{range $f, $msg := .Errors}} error={{$msg}}{{end}}`,
	"author_form.html":   `author form death={{.Form.DateOfDeath}}{{range $f, $msg := .Errors}} {{$f}}={{$msg}}{{end}}`,
	"book_form.html":     `book form genres={{len .Choices.Genres}}{{range $f, $msg := .Errors}} {{$f}}={{$msg}}{{end}}`,
	"404.html":           `not found`,
	"403.html":           `forbidden`,
	"login.html":         `login{{if .Error}} error={{.Error}}{{end}}`,
	"setup.html":         `setup`,

	"confirm_delete.html":      `delete {{.Kind}} {{.Name}}`,
	"admin_index.html":         `admin audit={{.HasAudit}}`,
	"admin_named_list.html":    `{{.Plural}}{{range .Rows}} [{{.Name}}]{{end}}`,
	"admin_named_form.html":    `{{.Kind}} form{{range $f, $msg := .Errors}} {{$f}}={{$msg}}{{end}}`,
	"admin_author_list.html":   `admin authors{{range .Authors}} [{{.DisplayName}}]{{end}}`,
	"admin_author_form.html":   `admin author{{range .Books}} [{{.Title}}{{if .Error}} error={{.Error}}{{end}}]{{end}}{{range $f, $msg := .Errors}} {{$f}}={{$msg}}{{end}}`,
	"admin_book_list.html":     `admin books{{range .Books}} [{{.Title}} | {{.GenreSummary}}]{{end}}`,
	"admin_book_form.html":     `admin book{{range .Instances}} [{{.Form.Imprint}}{{range $f, $msg := .Errors}} {{$f}}={{$msg}}{{end}}]{{end}}{{range $f, $msg := .Errors}} {{$f}}={{$msg}}{{end}}`,
	"admin_instance_list.html": `admin instances{{range .Instances}} [{{.Imprint}}]{{end}}`,
	"admin_instance_form.html": `admin instance{{range $f, $msg := .Errors}} {{$f}}={{$msg}}{{end}}`,
	"admin_audit.html":         `audit{{range .Events}} [{{.Action}}]{{end}}`,
}

func testTemplates(t *testing.T) *template.Template {
	t.Helper()
	tmpl := template.New("").Funcs(TemplateFuncs)
	for name, text := range testPages {
		template.Must(tmpl.New(name).Parse(text))
	}
	return tmpl
}

type fixture struct {
	db      *database.Database
	auth    *auth.Service
	audit   *audit.Service
	router  *gin.Engine
	genreID uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test adjust the router configuration.
func newFixtureWith(t *testing.T, configure func(*RouterConfig)) *fixture {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	authCfg := config.Auth{
		SessionLifetime:  time.Hour,
		TokenExpiry:      time.Hour,
		BcryptCost:       4,
		MaxLoginAttempts: 5,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
	authService := auth.NewService(db.Users, authCfg)
	sessions, err := auth.NewSessionManager(sqlDB, authCfg)
	require.NoError(t, err)

	auditService := audit.NewService(db.Audit)
	loanService := loans.NewService(db.Loans, func() time.Time {
		return testToday.Add(10 * time.Hour)
	})

	cfg := RouterConfig{
		Database:       db,
		Loans:          loanService,
		Audit:          auditService,
		AuthService:    authService,
		SessionManager: sessions,
		AuthConfig:     authCfg,
		Templates:      testTemplates(t),
		PageSize:       2,
		Version:        "test",
	}
	if configure != nil {
		configure(&cfg)
	}
	router, stop := NewRouter(cfg)
	t.Cleanup(func() {
		stop()
		auditService.Wait()
		db.Close()
	})

	genres, err := db.Catalog.ListGenres()
	require.NoError(t, err)
	require.NotEmpty(t, genres)

	return &fixture{
		db:      db,
		auth:    authService,
		audit:   auditService,
		router:  router,
		genreID: genres[0].ID,
	}
}

func (f *fixture) createUser(t *testing.T, username string, role entities.UserRole) *entities.User {
	t.Helper()
	user, err := f.auth.CreateUser(username, username+"@example.com", testPassword, role)
	require.NoError(t, err)
	return user
}

func (f *fixture) createAuthor(t *testing.T, first, last string) *entities.Author {
	t.Helper()
	author := &entities.Author{FirstName: first, LastName: last}
	require.NoError(t, f.db.Catalog.CreateAuthor(author))
	return author
}

func (f *fixture) createBook(t *testing.T, title string, author *entities.Author, genreIDs ...uint) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, Summary: "Summary of " + title, ISBN: "9781234567897"}
	if author != nil {
		book.AuthorID = &author.ID
	}
	require.NoError(t, f.db.Catalog.CreateBook(book, genreIDs))
	return book
}

func (f *fixture) createInstance(t *testing.T, book *entities.Book, status entities.LoanStatus, borrower *entities.User, dueBack *time.Time) *entities.BookInstance {
	t.Helper()
	instance := &entities.BookInstance{
		BookID:  &book.ID,
		Imprint: "First edition",
		Status:  status,
		DueBack: dueBack,
	}
	if borrower != nil {
		instance.BorrowerID = &borrower.ID
	}
	require.NoError(t, f.db.Loans.CreateInstance(instance))
	return instance
}

func (f *fixture) instance(t *testing.T, id uuid.UUID) *entities.BookInstance {
	t.Helper()
	instance, err := f.db.Loans.GetInstance(id)
	require.NoError(t, err)
	return instance
}

// login signs username in through the login form and returns the
// session cookies.
func (f *fixture) login(t *testing.T, username string) []*http.Cookie {
	t.Helper()
	w := f.post("/login", url.Values{"username": {username}, "password": {testPassword}}, nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

// token issues a bearer token for user.
func (f *fixture) token(t *testing.T, user *entities.User) string {
	t.Helper()
	token, err := f.auth.GenerateToken(user.ID)
	require.NoError(t, err)
	return token
}

func (f *fixture) get(target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return f.serve(req, cookies)
}

func (f *fixture) post(target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.serve(req, cookies)
}

// postRaw submits body as-is with a form content type.
func (f *fixture) postRaw(target, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.serve(req, cookies)
}

func (f *fixture) serve(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}
