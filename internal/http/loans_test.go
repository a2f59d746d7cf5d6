package http

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbaudit "github.com/joelsmith11/locallibrary/internal/database/audit"
	"github.com/joelsmith11/locallibrary/internal/entities"
	"github.com/joelsmith11/locallibrary/internal/forms"
)

func TestMyBorrowed(t *testing.T) {
	f := newFixture(t)
	reader := f.createUser(t, "reader", entities.UserRoleBorrower)
	other := f.createUser(t, "other", entities.UserRoleBorrower)

	dune := f.createBook(t, "Dune", nil)
	emma := f.createBook(t, "Emma", nil)
	babel := f.createBook(t, "Babel", nil)
	f.createInstance(t, emma, entities.LoanStatusOnLoan, reader, datePtr(2026, 3, 20))
	f.createInstance(t, dune, entities.LoanStatusOnLoan, reader, datePtr(2026, 3, 1))
	f.createInstance(t, babel, entities.LoanStatusOnLoan, other, datePtr(2026, 3, 5))
	// Reserved for the reader but not on loan.
	f.createInstance(t, babel, entities.LoanStatusReserved, reader, datePtr(2026, 3, 2))

	w := f.get("/mybooks/", f.login(t, "reader"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mybooks [Dune 2026-03-01 overdue] [Emma 2026-03-20]", w.Body.String())
}

func TestMyBorrowed_RequiresLogin(t *testing.T) {
	f := newFixture(t)

	w := f.get("/mybooks/", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next="+url.QueryEscape("/mybooks/"), w.Header().Get("Location"))
}

func TestAllBorrowed(t *testing.T) {
	f := newFixture(t)
	reader := f.createUser(t, "reader", entities.UserRoleBorrower)
	other := f.createUser(t, "other", entities.UserRoleBorrower)
	f.createUser(t, "librarian", entities.UserRoleLibrarian)

	dune := f.createBook(t, "Dune", nil)
	emma := f.createBook(t, "Emma", nil)
	f.createInstance(t, emma, entities.LoanStatusOnLoan, reader, datePtr(2026, 3, 20))
	f.createInstance(t, dune, entities.LoanStatusOnLoan, other, datePtr(2026, 3, 12))
	f.createInstance(t, dune, entities.LoanStatusAvailable, nil, nil)

	t.Run("staff see every loan", func(t *testing.T) {
		w := f.get("/staffbooks/", f.login(t, "librarian"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "staffbooks [Dune other] [Emma reader]", w.Body.String())
	})

	t.Run("borrowers are forbidden", func(t *testing.T) {
		w := f.get("/staffbooks/", f.login(t, "reader"))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "forbidden", w.Body.String())
	})

	t.Run("anonymous users are sent to login", func(t *testing.T) {
		w := f.get("/staffbooks/", nil)
		assert.Equal(t, http.StatusFound, w.Code)
	})
}

func TestRenew(t *testing.T) {
	f := newFixture(t)
	reader := f.createUser(t, "reader", entities.UserRoleBorrower)
	f.createUser(t, "librarian", entities.UserRoleLibrarian)
	book := f.createBook(t, "Dune", nil)
	instance := f.createInstance(t, book, entities.LoanStatusOnLoan, reader, datePtr(2026, 3, 12))
	path := "/books/" + instance.ID.String() + "/renew/"

	staff := f.login(t, "librarian")

	t.Run("form proposes three weeks", func(t *testing.T) {
		w := f.get(path, staff)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "renew Dune date=2026-03-31", w.Body.String())
	})

	invalid := []struct {
		name    string
		date    string
		wantErr string
	}{
		{"past date", "2026-03-09", "Invalid date - renewal is in past"},
		{"too far ahead", "2026-04-08", "Invalid date - renewal more than 4 weeks ahead"},
		{"not a date", "next week", "Enter a valid date."},
		{"missing", "", "This field is required."},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			w := f.post(path, url.Values{"renewal_date": {tt.date}}, staff)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "error="+tt.wantErr)
			assert.Equal(t, "2026-03-12", forms.FormatDate(f.instance(t, instance.ID).DueBack))
		})
	}

	t.Run("today is accepted", func(t *testing.T) {
		w := f.post(path, url.Values{"renewal_date": {"2026-03-10"}}, staff)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "2026-03-10", forms.FormatDate(f.instance(t, instance.ID).DueBack))
	})

	t.Run("last day of the window is accepted", func(t *testing.T) {
		w := f.post(path, url.Values{"renewal_date": {"2026-04-07"}}, staff)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, StaffBorrowedPath, w.Header().Get("Location"))

		renewed := f.instance(t, instance.ID)
		assert.Equal(t, "2026-04-07", forms.FormatDate(renewed.DueBack))
		assert.Equal(t, entities.LoanStatusOnLoan, renewed.Status)
		require.NotNil(t, renewed.BorrowerID)
		assert.Equal(t, reader.ID, *renewed.BorrowerID)
	})

	t.Run("renewals are audited", func(t *testing.T) {
		f.audit.Wait()
		events, total, err := f.audit.GetEvents(dbaudit.Filter{EventType: entities.AuditEventLoan}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, "loan_renew", events[0].Action)
		assert.Equal(t, instance.ID.String(), events[0].EntityID)
	})
}

func TestRenew_Guards(t *testing.T) {
	f := newFixture(t)
	reader := f.createUser(t, "reader", entities.UserRoleBorrower)
	f.createUser(t, "librarian", entities.UserRoleLibrarian)
	book := f.createBook(t, "Dune", nil)
	instance := f.createInstance(t, book, entities.LoanStatusOnLoan, reader, datePtr(2026, 3, 12))
	path := "/books/" + instance.ID.String() + "/renew/"

	t.Run("borrower cannot renew", func(t *testing.T) {
		w := f.post(path, url.Values{"renewal_date": {"2026-03-20"}}, f.login(t, "reader"))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "2026-03-12", forms.FormatDate(f.instance(t, instance.ID).DueBack))
	})

	t.Run("anonymous is redirected to login", func(t *testing.T) {
		w := f.get(path, nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "/login?next=")
	})

	staff := f.login(t, "librarian")
	for _, target := range []string{
		"/books/not-a-uuid/renew/",
		"/books/" + uuid.NewString() + "/renew/",
	} {
		w := f.get(target, staff)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		w = f.post(target, url.Values{"renewal_date": {"2026-03-20"}}, staff)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
}
