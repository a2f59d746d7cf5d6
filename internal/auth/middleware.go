package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joelsmith11/locallibrary/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUser     = "auth_user"
	ContextKeyAuthType = "auth_type" // "session", "bearer", or "none"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// LoginPath is where anonymous browsers are sent by RequireAuth.
const LoginPath = "/login"

// Middleware resolves the principal of each request and guards routes.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	forbidden      gin.HandlerFunc
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
	}
}

// Handler attaches the authenticated user, if any, to the context. It never
// rejects a request; use RequireAuth or RequireCapability for that.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try Bearer token first (for API clients)
		if user := m.tryBearerAuth(c); user != nil {
			setUser(c, user, AuthTypeBearer)
			c.Next()
			return
		}

		// Try session auth (for web UI)
		if user := m.trySessionAuth(c); user != nil {
			setUser(c, user, AuthTypeSession)
			c.Next()
			return
		}

		c.Set(ContextKeyAuthType, AuthTypeNone)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	token := bearerToken(c)
	if token == "" {
		return nil
	}
	user, err := m.service.ValidateToken(token)
	if err != nil {
		return nil
	}
	return user
}

func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}
	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}
	user, err := m.service.GetUserByID(userID)
	if err != nil {
		return nil
	}
	return user
}

func setUser(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyAuthType, authType)
}

// IsAPIRequest determines if this is an API request vs web browser request.
func IsAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	// Bearer token attempt, even if invalid
	return c.GetHeader("Authorization") != ""
}

// RequireAuth rejects anonymous requests: API clients get 401, browsers are
// redirected to the login page with a return path.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			m.deny(c, ErrAuthRequired)
			return
		}
		c.Next()
	}
}

// RequireCapability rejects requests whose principal lacks capability.
// Anonymous requests are treated as in RequireAuth; authenticated ones
// without the capability get 403.
func (m *Middleware) RequireCapability(capability entities.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := Authorize(CurrentUser(c), capability); err != nil {
			m.deny(c, err)
			return
		}
		c.Next()
	}
}

// SetForbiddenHandler sets the handler rendering the 403 page for browser
// requests. Without one a bare status is returned.
func (m *Middleware) SetForbiddenHandler(h gin.HandlerFunc) {
	m.forbidden = h
}

func (m *Middleware) deny(c *gin.Context, err error) {
	api := IsAPIRequest(c)

	if errors.Is(err, ErrAuthRequired) {
		if api {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
		return
	}

	if api {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}
	if m.forbidden != nil {
		c.Status(http.StatusForbidden)
		m.forbidden(c)
		c.Abort()
		return
	}
	c.AbortWithStatus(http.StatusForbidden)
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *gin.Context) *entities.User {
	if v, exists := c.Get(ContextKeyUser); exists {
		if user, ok := v.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetUserID retrieves the authenticated user's ID, or 0 when anonymous.
func GetUserID(c *gin.Context) uint {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// HasCapability reports whether the current user holds capability.
func HasCapability(c *gin.Context, capability entities.Capability) bool {
	return Authorize(CurrentUser(c), capability) == nil
}
