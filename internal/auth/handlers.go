package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/joelsmith11/locallibrary/internal/config"
	"github.com/joelsmith11/locallibrary/internal/entities"
)

// setupMutex serializes setup requests so only the first creates the
// superuser.
var setupMutex sync.Mutex

// AuthRecorder receives login and logout events for the audit trail.
type AuthRecorder interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

// isLocalPath reports whether path is safe to redirect to after login.
func isLocalPath(path string) bool {
	if !strings.HasPrefix(path, "/") {
		return false
	}
	// Protocol-relative (//evil.com), embedded schemes and backslash
	// tricks all leave the site.
	if strings.HasPrefix(path, "//") || strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// AuthController serves the login, logout and first-run setup pages.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	recorder       AuthRecorder
}

// NewAuthController creates a new authentication controller. recorder may
// be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth, recorder AuthRecorder) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		recorder:       recorder,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET(LoginPath, ac.LoginPage)
	router.POST(LoginPath, ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout)
	router.GET("/setup", ac.SetupPage)
	router.POST("/setup", ac.Setup)
}

// Stop releases the rate limiter.
func (ac *AuthController) Stop() {
	ac.rateLimiter.Stop()
}

func (ac *AuthController) record(c *gin.Context, userID uint, action string, success bool) {
	if ac.recorder != nil {
		ac.recorder.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
	}
}

func (ac *AuthController) renderLogin(c *gin.Context, data gin.H) {
	data["Title"] = "Login"
	data["CSRFToken"] = GetCSRFToken(c)
	data["CSRFField"] = CSRFFieldName
	c.HTML(http.StatusOK, "login.html", data)
}

func (ac *AuthController) renderSetup(c *gin.Context, data gin.H) {
	data["Title"] = "Initial Setup"
	data["CSRFToken"] = GetCSRFToken(c)
	data["CSRFField"] = CSRFFieldName
	data["MinPasswordLength"] = MinPasswordLength
	c.HTML(http.StatusOK, "setup.html", data)
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	next := sanitizeRedirectPath(c.Query("next"))

	if CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, next)
		return
	}

	if hasUsers, err := ac.service.HasUsers(); err == nil && !hasUsers {
		c.Redirect(http.StatusFound, "/setup")
		return
	}

	ac.renderLogin(c, gin.H{"Next": next})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username); !allowed {
		c.Header("Retry-After", retryAfter.String())
		ac.renderLogin(c, gin.H{
			"Next":     next,
			"Username": username,
			"Error":    "Too many login attempts. Please try again later.",
		})
		return
	}

	user, err := ac.service.Authenticate(username, password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, username)
		ac.record(c, 0, "login_failed", false)

		errorMsg := "Your username and password didn't match. Please try again."
		if errors.Is(err, ErrAccountLocked) {
			errorMsg = "Account is locked. Please try again later."
		}
		ac.renderLogin(c, gin.H{
			"Next":     next,
			"Username": username,
			"Error":    errorMsg,
		})
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, username)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		ac.renderLogin(c, gin.H{
			"Next":     next,
			"Username": username,
			"Error":    "Failed to create session",
		})
		return
	}

	ac.record(c, user.ID, "login", true)
	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and shows the login page.
func (ac *AuthController) Logout(c *gin.Context) {
	if userID := GetUserID(c); userID != 0 {
		ac.record(c, userID, "logout", true)
	}
	_ = ac.sessionManager.DestroySession(c.Request)
	c.Redirect(http.StatusFound, LoginPath)
}

// SetupPage renders the form creating the first superuser.
func (ac *AuthController) SetupPage(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.renderSetup(c, gin.H{"Error": "Database error. Please try again."})
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, LoginPath)
		return
	}
	ac.renderSetup(c, gin.H{})
}

// Setup creates the first superuser and logs them in.
func (ac *AuthController) Setup(c *gin.Context) {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.renderSetup(c, gin.H{"Error": "Database error. Please try again."})
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, LoginPath)
		return
	}

	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	if password != c.PostForm("confirm_password") {
		ac.renderSetup(c, gin.H{
			"Username": username,
			"Email":    email,
			"Error":    "Passwords do not match",
		})
		return
	}

	user, err := ac.service.CreateUser(username, email, password, entities.UserRoleSuperuser)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			c.Redirect(http.StatusFound, LoginPath)
			return
		}
		ac.renderSetup(c, gin.H{
			"Username": username,
			"Email":    email,
			"Error":    setupErrorMessage(err),
		})
		return
	}

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("[Auth] setup: failed to create session for %s: %v", user.Username, err)
		ac.record(c, user.ID, "setup", false)
		ac.renderSetup(c, gin.H{
			"Username": username,
			"Email":    email,
			"Error":    "Account created, but signing in failed. Please log in.",
		})
		return
	}

	ac.record(c, user.ID, "setup", true)
	c.Redirect(http.StatusFound, "/")
}

func setupErrorMessage(err error) string {
	for _, known := range []error{
		ErrPasswordTooShort, ErrPasswordTooLong,
		ErrUsernameRequired, ErrUsernameInvalid,
		ErrEmailRequired, ErrEmailInvalid, ErrPasswordRequired,
	} {
		if errors.Is(err, known) {
			msg := known.Error()
			return strings.ToUpper(msg[:1]) + msg[1:]
		}
	}
	return "Failed to create user"
}

// APITokenController handles API token management endpoints.
type APITokenController struct {
	service *Service
}

// NewAPITokenController creates a new API token controller.
func NewAPITokenController(service *Service) *APITokenController {
	return &APITokenController{service: service}
}

// GenerateToken creates a new API token for the authenticated user.
func (tc *APITokenController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	token, err := tc.service.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (tc *APITokenController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := tc.service.RevokeToken(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
