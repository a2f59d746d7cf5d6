package http

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/joelsmith11/locallibrary/internal/auth"
	"github.com/joelsmith11/locallibrary/internal/config"
	"github.com/joelsmith11/locallibrary/internal/entities"
	"github.com/joelsmith11/locallibrary/internal/forms"
)

// TemplateFuncs are the helpers available to every page template.
var TemplateFuncs = template.FuncMap{
	"formatDate": formatDate,
	"formatTime": formatTime,
	"fieldValue": forms.Value,
	"selected": func(value string, id uint) bool {
		return value == idString(id)
	},
}

// NewRouter creates and configures the HTTP router with all endpoints.
// The returned stop function releases background resources of the
// login rate limiter.
func NewRouter(cfg RouterConfig) (*gin.Engine, func()) {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(31536000))
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	var visits VisitCounter
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.LoadAndSave())
		visits = cfg.SessionManager
	}

	authMiddleware := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager)
	authMiddleware.SetForbiddenHandler(renderForbidden)
	router.Use(authMiddleware.Handler())

	tmpl := cfg.Templates
	if tmpl == nil {
		tmpl = template.Must(template.New("").Funcs(TemplateFuncs).ParseGlob(cfg.TemplatesPath + "/*.html"))
	}
	router.SetHTMLTemplate(tmpl)
	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}
	router.NoRoute(func(c *gin.Context) {
		if auth.IsAPIRequest(c) {
			respondNotFound(c, "resource")
			return
		}
		renderNotFound(c)
	})

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}

	var auditLogger AuditLogger
	var authRecorder auth.AuthRecorder
	var auditReader AuditReader
	if cfg.Audit != nil {
		auditLogger = cfg.Audit
		authRecorder = cfg.Audit
		auditReader = cfg.Audit
	}

	db := cfg.Database
	today := cfg.Loans.Today

	// Auth routes
	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.AuthConfig, authRecorder)
	authController.RegisterRoutes(router)

	requireAuth := authMiddleware.RequireAuth()
	requireStaff := authMiddleware.RequireCapability(entities.CapabilityMarkReturned)
	requireAdmin := authMiddleware.RequireCapability(entities.CapabilityAdmin)

	// Create controllers with appropriate interfaces
	var pinger Pinger
	if sqlDB, err := db.DB.DB(); err == nil {
		pinger = sqlDB
	}
	health := NewHealthController(pinger, cfg.Version)
	home := NewHomeController(db.Catalog, db.Loans, visits)
	catalogController := NewCatalogController(db.Catalog, pageSize)
	loansController := NewLoansController(db.Loans, cfg.Loans, auditLogger, pageSize)
	editController := NewCatalogEditController(db.Catalog, auditLogger, today)
	adminController := NewAdminController(AdminConfig{
		Catalog:   db.Catalog,
		Instances: db.Loans,
		Users:     db.Users,
		Events:    auditReader,
		Audit:     auditLogger,
		Today:     today,
		PageSize:  pageSize,
	})
	apiController := NewAPIController(db.Catalog, db.Loans, cfg.Loans, home, auditLogger, pageSize)
	tokenController := auth.NewAPITokenController(cfg.AuthService)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	// Catalog pages
	router.GET("/", home.Index)
	router.GET("/books/", catalogController.BookList)
	router.GET("/books/:id", catalogController.BookDetail)
	router.GET("/authors/", catalogController.AuthorList)
	router.GET("/authors/:id", catalogController.AuthorDetail)
	router.GET("/book/:id", redirectTo("/books/"))
	router.GET("/author/:id", redirectTo("/authors/"))

	// Loans
	router.GET("/mybooks/", requireAuth, loansController.MyBorrowed)
	router.GET("/staffbooks/", requireStaff, loansController.AllBorrowed)
	router.GET("/books/:id/renew/", requireStaff, renewParam(loansController.RenewPage))
	router.POST("/books/:id/renew/", requireStaff, renewParam(loansController.Renew))

	// Staff catalog editing
	router.GET("/authors/create", requireStaff, editController.AuthorCreatePage)
	router.POST("/authors/create", requireStaff, editController.AuthorCreate)
	router.GET("/authors/:id/update", requireStaff, editController.AuthorUpdatePage)
	router.POST("/authors/:id/update", requireStaff, editController.AuthorUpdate)
	router.GET("/authors/:id/delete", requireStaff, editController.AuthorDeletePage)
	router.POST("/authors/:id/delete", requireStaff, editController.AuthorDelete)
	router.GET("/books/create", requireStaff, editController.BookCreatePage)
	router.POST("/books/create", requireStaff, editController.BookCreate)
	router.GET("/books/:id/update", requireStaff, editController.BookUpdatePage)
	router.POST("/books/:id/update", requireStaff, editController.BookUpdate)
	router.GET("/books/:id/delete", requireStaff, editController.BookDeletePage)
	router.POST("/books/:id/delete", requireStaff, editController.BookDelete)

	// Backoffice
	adminController.RegisterRoutes(router.Group(adminPrefix, requireAdmin))

	// JSON API
	api := router.Group("/api")
	api.GET("/stats", apiController.Stats)
	api.GET("/books", apiController.ListBooks)
	api.GET("/books/:id", apiController.GetBook)
	api.GET("/authors", apiController.ListAuthors)
	api.GET("/authors/:id", apiController.GetAuthor)
	api.GET("/mybooks", requireAuth, apiController.MyBorrowed)
	api.GET("/staffbooks", requireStaff, apiController.AllBorrowed)
	api.POST("/instances/:instance_id/renew", requireStaff, apiController.Renew)
	api.POST("/auth/token", requireAuth, tokenController.GenerateToken)
	api.DELETE("/auth/token", requireAuth, tokenController.RevokeToken)

	return router, authController.Stop
}

// renewParam exposes the :id segment as instance_id. The renewal URL
// shares its prefix with the book routes, where gin requires one
// parameter name per segment.
func renewParam(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Params = append(c.Params, gin.Param{Key: "instance_id", Value: c.Param("id")})
		h(c)
	}
}
