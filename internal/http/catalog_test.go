package http

import (
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

func historyGenreID(t *testing.T, f *fixture) uint {
	t.Helper()
	genres, err := f.db.Catalog.ListGenres()
	require.NoError(t, err)
	for _, g := range genres {
		if strings.EqualFold(g.Name, HistoryGenre) {
			return g.ID
		}
	}
	t.Fatal("history genre not seeded")
	return 0
}

func TestHome_CountsAndVisits(t *testing.T) {
	f := newFixture(t)
	borrower := f.createUser(t, "reader", entities.UserRoleBorrower)
	author := f.createAuthor(t, "Mary", "Beard")
	spqr := f.createBook(t, "SPQR", author, historyGenreID(t, f))
	f.createBook(t, "Dune", nil, f.genreID)
	f.createInstance(t, spqr, entities.LoanStatusAvailable, nil, nil)
	f.createInstance(t, spqr, entities.LoanStatusOnLoan, borrower, datePtr(2026, 3, 20))

	w := f.get("/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "home books=2 copies=2 available=1 authors=1 history=1 visits=0", w.Body.String())

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "first visit should start a session")

	w = f.get("/", cookies)
	assert.Contains(t, w.Body.String(), "visits=1")
	w = f.get("/", cookies)
	assert.Contains(t, w.Body.String(), "visits=2")

	// A new browser starts over.
	w = f.get("/", nil)
	assert.Contains(t, w.Body.String(), "visits=0")
}

func TestBookList_Pagination(t *testing.T) {
	f := newFixture(t)
	for _, title := range []string{"Carrie", "Anathem", "Babel"} {
		f.createBook(t, title, nil)
	}

	tests := []struct {
		name     string
		target   string
		wantCode int
		wantBody string
	}{
		{"first page", "/books/", http.StatusOK, "books [Anathem] [Babel] page=1/2"},
		{"second page", "/books/?page=2", http.StatusOK, "books [Carrie] page=2/2"},
		{"last page", "/books/?page=last", http.StatusOK, "books [Carrie] page=2/2"},
		{"past the end", "/books/?page=3", http.StatusNotFound, "not found"},
		{"not a number", "/books/?page=abc", http.StatusNotFound, "not found"},
		{"zero", "/books/?page=0", http.StatusNotFound, "not found"},
		{"offset overflow", "/books/?page=4611686018427387905", http.StatusNotFound, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.get(tt.target, nil)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestAuthorList_EmptyFirstPageExists(t *testing.T) {
	f := newFixture(t)

	w := f.get("/authors/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "authors page=1/1", w.Body.String())

	w = f.get("/authors/?page=2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthorList_OrderedByName(t *testing.T) {
	f := newFixture(t)
	f.createAuthor(t, "Ursula", "Le Guin")
	f.createAuthor(t, "Iain", "Banks")

	w := f.get("/authors/", nil)
	assert.Equal(t, "authors [Banks, Iain] [Le Guin, Ursula] page=1/1", w.Body.String())
}

func TestBookDetail(t *testing.T) {
	f := newFixture(t)
	author := f.createAuthor(t, "Frank", "Herbert")
	book := f.createBook(t, "Dune", author, f.genreID)
	f.createInstance(t, book, entities.LoanStatusAvailable, nil, nil)

	w := f.get("/books/"+strconv.FormatUint(uint64(book.ID), 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "book Dune by Herbert, Frank copies=1", w.Body.String())

	for _, target := range []string{"/books/999", "/books/abc", "/books/0"} {
		w = f.get(target, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.Equal(t, "not found", w.Body.String(), target)
	}
}

func TestAuthorDetail(t *testing.T) {
	f := newFixture(t)
	author := f.createAuthor(t, "Frank", "Herbert")
	f.createBook(t, "Dune", author)
	f.createBook(t, "Dune Messiah", author)

	w := f.get("/authors/"+strconv.FormatUint(uint64(author.ID), 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "author Herbert, Frank books=2", w.Body.String())

	w = f.get("/authors/12345", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSingularRoutesRedirect(t *testing.T) {
	f := newFixture(t)

	w := f.get("/book/7", nil)
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/books/7", w.Header().Get("Location"))

	w = f.get("/author/3", nil)
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/authors/3", w.Header().Get("Location"))
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)

	w := f.get("/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", w.Body.String())

	w = f.get("/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NOT_FOUND"`)
}
