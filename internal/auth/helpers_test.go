package auth

import (
	"html/template"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/joelsmith11/locallibrary/internal/config"
	"github.com/joelsmith11/locallibrary/internal/database/users"
	"github.com/joelsmith11/locallibrary/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "correct-horse-battery"

type testStack struct {
	db       *gorm.DB
	service  *Service
	sessions *SessionManager
	mw       *Middleware
	cfg      config.Auth
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	cfg := config.Auth{
		SessionLifetime:  24 * time.Hour,
		TokenExpiry:      time.Hour,
		BcryptCost:       4,
		MaxLoginAttempts: 3,
		LockoutDuration:  time.Minute,
	}

	svc := NewService(users.NewRepository(db), cfg)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)

	return &testStack{
		db:       db,
		service:  svc,
		sessions: sm,
		mw:       NewMiddleware(svc, sm),
		cfg:      cfg,
	}
}

func (s *testStack) createUser(t *testing.T, username string, role entities.UserRole) *entities.User {
	t.Helper()
	user, err := s.service.CreateUser(username, username+"@example.com", testPassword, role)
	require.NoError(t, err)
	return user
}

// router wires sessions, principal resolution and the auth pages.
func (s *testStack) router(recorder AuthRecorder) (*gin.Engine, *AuthController) {
	tmpl := template.Must(template.New("login.html").Parse(
		`login{{if .Error}} error={{.Error}}{{end}} next={{.Next}}`))
	template.Must(tmpl.New("setup.html").Parse(
		`setup{{if .Error}} error={{.Error}}{{end}}`))

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(s.sessions.LoadAndSave())
	router.Use(s.mw.Handler())

	controller := NewAuthController(s.service, s.sessions, s.cfg, recorder)
	controller.RegisterRoutes(router)
	return router, controller
}
