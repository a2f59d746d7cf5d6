package audit

import (
	"encoding/json"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joelsmith11/locallibrary/internal/database/audit"
	"github.com/joelsmith11/locallibrary/internal/entities"
)

const maxFieldLen = 500

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("[Audit] Failed to log event %s: %v", event.Action, err)
		}
	}()
}

// Wait blocks until every asynchronous write has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// LogRenewal records a librarian extending a loan.
func (s *Service) LogRenewal(userID uint, instanceID uuid.UUID, title string, previous *time.Time, dueBack time.Time) {
	metadata := map[string]any{"due_back": dueBack.Format(time.DateOnly)}
	if previous != nil {
		metadata["previous_due_back"] = previous.Format(time.DateOnly)
	}

	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventLoan,
		Action:      "loan_renew",
		Description: truncate("Renewed "+title+" until "+dueBack.Format(time.DateOnly), maxFieldLen),
		EntityType:  "book_instance",
		EntityID:    instanceID.String(),
		Metadata:    encodeMetadata(metadata),
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogCatalogChange records a create or update of a catalog entity.
// Action is "create" or "update".
func (s *Service) LogCatalogChange(userID uint, action, entityType, entityID, entityName string) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventCatalog,
		Action:      entityType + "_" + action,
		Description: truncate(action+"d "+entityType+": "+entityName, maxFieldLen),
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogDelete records a deletion event.
func (s *Service) LogDelete(userID uint, entityType, entityID, entityName string) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventDelete,
		Action:      entityType + "_delete",
		Description: truncate("Deleted "+entityType+": "+entityName, maxFieldLen),
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, maxFieldLen),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(filter, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func encodeMetadata(metadata map[string]any) string {
	data, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(data)
}

// truncate shortens a string to at most maxLen bytes without splitting
// a UTF-8 sequence.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
