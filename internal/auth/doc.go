// Package auth provides authentication and authorization for the library.
//
// Every request passes through Middleware.Handler, which resolves the
// principal from a Bearer API token (JSON clients) or the session cookie
// (browsers). Anonymous requests continue with no principal; routes that
// need one are wrapped in RequireAuth or RequireCapability, which reject
// the request before the handler runs.
//
// # Roles
//
//	superuser  catalog.can_mark_returned, catalog.admin
//	librarian  catalog.can_mark_returned
//	borrower   (none) - sees only their own loans
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=336h          # Session duration
//	AUTH_TOKEN_EXPIRY=720h              # API token expiry (30 days default)
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//
// # Usage
//
//	authService := auth.NewService(db.Users, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager)
//	router.Use(authMiddleware.Handler())
//	staff := router.Group("/", authMiddleware.RequireCapability(entities.CapabilityMarkReturned))
//
// Extract the principal in handlers:
//
//	user := auth.CurrentUser(c) // nil when anonymous
package auth
