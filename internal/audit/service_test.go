package audit

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditRepo "github.com/joelsmith11/locallibrary/internal/database/audit"
	"github.com/joelsmith11/locallibrary/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewService(auditRepo.NewRepository(db)), db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventCatalog,
		Action:    "genre_create",
		Status:    entities.AuditStatusSuccess,
	}

	require.NoError(t, svc.Log(event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, "genre_create", saved.Action)
}

func TestService_LogRenewal(t *testing.T) {
	svc, db := setupTestService(t)

	id := uuid.New()
	previous := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	due := time.Date(2024, time.January, 26, 0, 0, 0, 0, time.UTC)

	svc.LogRenewal(3, id, "Dune", &previous, due)
	svc.Wait()

	var event entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "loan_renew").First(&event).Error)
	assert.Equal(t, uint(3), event.UserID)
	assert.Equal(t, entities.AuditEventLoan, event.EventType)
	assert.Equal(t, id.String(), event.EntityID)
	assert.Equal(t, "book_instance", event.EntityType)
	assert.Contains(t, event.Description, "2024-01-26")
	assert.Contains(t, event.Metadata, `"previous_due_back":"2024-01-05"`)
}

func TestService_LogCatalogChangeAndDelete(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogCatalogChange(1, "create", "author", "7", "Austen, Jane")
	svc.LogDelete(1, "author", "7", "Austen, Jane")
	svc.Wait()

	var created entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "author_create").First(&created).Error)
	assert.Equal(t, entities.AuditEventCatalog, created.EventType)
	assert.Equal(t, "created author: Austen, Jane", created.Description)

	var deleted entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "author_delete").First(&deleted).Error)
	assert.Equal(t, entities.AuditEventDelete, deleted.EventType)
	assert.Equal(t, "7", deleted.EntityID)
}

func TestService_LogAuth(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("successful login", func(t *testing.T) {
		svc.LogAuth(1, "login", "192.168.1.1", "Mozilla/5.0", true)
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ? AND status = ?", "login", entities.AuditStatusSuccess).First(&event).Error)
		assert.Equal(t, "192.168.1.1", event.IPAddress)
	})

	t.Run("failed login truncates user agent", func(t *testing.T) {
		svc.LogAuth(0, "login_failed", "10.0.0.1", strings.Repeat("a", 800), false)
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "login_failed").First(&event).Error)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Len(t, event.UserAgent, maxFieldLen)
	})
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, _ := setupTestService(t)

	require.NoError(t, svc.Log(&entities.AuditEvent{
		EventType: entities.AuditEventAuth,
		Action:    "login",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, svc.Log(&entities.AuditEvent{
		EventType: entities.AuditEventAuth,
		Action:    "logout",
		Status:    entities.AuditStatusSuccess,
	}))

	deleted, err := svc.DeleteOldEvents(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := svc.GetEvents(auditRepo.Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "logout", events[0].Action)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	// "é" is two bytes; the cut must not land inside it.
	title := strings.Repeat("é", 10)
	got := truncate(title, 10)
	assert.True(t, utf8.ValidString(got), got)
	assert.Equal(t, "ééé...", got)
	assert.LessOrEqual(t, len(got), 10)
}
