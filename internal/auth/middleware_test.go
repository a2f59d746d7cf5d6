package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

func TestAuthorize(t *testing.T) {
	superuser := &entities.User{Role: entities.UserRoleSuperuser}
	librarian := &entities.User{Role: entities.UserRoleLibrarian}
	borrower := &entities.User{Role: entities.UserRoleBorrower}

	tests := []struct {
		name       string
		principal  *entities.User
		capability entities.Capability
		wantErr    error
	}{
		{"anonymous", nil, entities.CapabilityMarkReturned, ErrAuthRequired},
		{"borrower cannot renew", borrower, entities.CapabilityMarkReturned, ErrForbidden},
		{"librarian can renew", librarian, entities.CapabilityMarkReturned, nil},
		{"librarian is not admin", librarian, entities.CapabilityAdmin, ErrForbidden},
		{"superuser can renew", superuser, entities.CapabilityMarkReturned, nil},
		{"superuser is admin", superuser, entities.CapabilityAdmin, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.principal, tt.capability)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func guardedRouter(s *testStack) *gin.Engine {
	router := gin.New()
	router.Use(s.sessions.LoadAndSave())
	router.Use(s.mw.Handler())

	ok := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "auth_type": GetAuthType(c)})
	}
	router.GET("/open", ok)
	router.GET("/mybooks/", s.mw.RequireAuth(), ok)
	router.GET("/staffbooks/", s.mw.RequireCapability(entities.CapabilityMarkReturned), ok)
	router.GET("/api/staffbooks", s.mw.RequireCapability(entities.CapabilityMarkReturned), ok)
	return router
}

func bearerRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestMiddleware_AnonymousPassesThrough(t *testing.T) {
	s := newTestStack(t)
	router := guardedRouter(s)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"auth_type":"none"`)
}

func TestMiddleware_RequireAuth_RedirectsBrowser(t *testing.T) {
	s := newTestStack(t)
	router := guardedRouter(s)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mybooks/?page=2", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fmybooks%2F%3Fpage%3D2", w.Header().Get("Location"))
}

func TestMiddleware_RequireCapability_API(t *testing.T) {
	s := newTestStack(t)
	router := guardedRouter(s)

	borrower := s.createUser(t, "borrower", entities.UserRoleBorrower)
	librarian := s.createUser(t, "librarian", entities.UserRoleLibrarian)
	borrowerToken, err := s.service.GenerateToken(borrower.ID)
	require.NoError(t, err)
	librarianToken, err := s.service.GenerateToken(librarian.ID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"invalid token", "nope", http.StatusUnauthorized},
		{"borrower", borrowerToken, http.StatusForbidden},
		{"librarian", librarianToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, bearerRequest(http.MethodGet, "/api/staffbooks", tt.token))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestMiddleware_ForbiddenHandler(t *testing.T) {
	s := newTestStack(t)
	s.mw.SetForbiddenHandler(func(c *gin.Context) {
		c.String(http.StatusForbidden, "no entry")
	})

	router := gin.New()
	router.Use(func(c *gin.Context) {
		setUser(c, &entities.User{ID: 7, Role: entities.UserRoleBorrower}, AuthTypeSession)
		c.Next()
	})
	router.GET("/staffbooks/", s.mw.RequireCapability(entities.CapabilityMarkReturned), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/staffbooks/", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "no entry", w.Body.String())
}

func TestIsAPIRequest(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   bool
	}{
		{"api prefix", "/api/books", nil, true},
		{"json accept", "/books/", map[string]string{"Accept": "application/json"}, true},
		{"bearer attempt", "/books/", map[string]string{"Authorization": "Bearer x"}, true},
		{"browser", "/books/", map[string]string{"Accept": "text/html"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, IsAPIRequest(c))
		})
	}
}
