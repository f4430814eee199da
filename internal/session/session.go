package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"teams-message-relay-go/internal/metrics"
	"teams-message-relay-go/internal/model"
	"teams-message-relay-go/internal/notify"
	"teams-message-relay-go/internal/repository"
)

// ErrNotFound is returned when a session id is unknown
var ErrNotFound = repository.ErrNotFound

// SessionStore persists extraction sessions
type SessionStore interface {
	Create(ctx context.Context, session *model.ExtractionSession) error
	Get(ctx context.Context, id string) (*model.ExtractionSession, error)
	List(ctx context.Context, filter model.SessionFilter) ([]model.ExtractionSession, error)
	Save(ctx context.Context, session *model.ExtractionSession) error
	Delete(ctx context.Context, id string) error
}

// PointerCache holds the advisory active-session pointer
type PointerCache interface {
	SetActiveSession(ctx context.Context, sessionID string, ttl time.Duration) error
	ActiveSession(ctx context.Context) (string, error)
	ClearActiveSession(ctx context.Context) error
}

// Notifier fans out lifecycle events
type Notifier interface {
	Publish(name string, payload interface{}) (delivered, dropped int)
}

// Manager drives the extraction-session lifecycle. The active pointer it
// maintains is advisory only: a liveness hint with a TTL, never a source of
// truth for session state.
type Manager struct {
	store      SessionStore
	pointer    PointerCache
	hub        Notifier
	metrics    *metrics.Metrics
	pointerTTL time.Duration
}

// NewManager creates a session manager
func NewManager(store SessionStore, pointer PointerCache, hub Notifier, m *metrics.Metrics, pointerTTL time.Duration) *Manager {
	if pointerTTL <= 0 {
		pointerTTL = time.Hour
	}
	return &Manager{
		store:      store,
		pointer:    pointer,
		hub:        hub,
		metrics:    m,
		pointerTTL: pointerTTL,
	}
}

// Trigger creates a new in-progress session, points the advisory active
// pointer at it, and publishes an extraction:started notification.
func (m *Manager) Trigger(ctx context.Context, metadata map[string]interface{}) (*model.ExtractionSession, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	session := &model.ExtractionSession{
		ID:        uuid.NewString(),
		Status:    model.SessionStatusInProgress,
		StartedAt: time.Now(),
		Metadata:  datatypes.JSONMap(metadata),
	}

	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := m.pointer.SetActiveSession(ctx, session.ID, m.pointerTTL); err != nil {
		logrus.Warnf("Failed to set active session pointer for %s: %v", session.ID, err)
	}

	m.metrics.ActiveSessions.Inc()
	_, dropped := m.hub.Publish(notify.EventExtractionStarted, map[string]interface{}{
		"sessionId": session.ID,
		"startedAt": session.StartedAt.UTC().Format(time.RFC3339),
	})
	m.metrics.NotifyPublished.Inc()
	m.metrics.NotifyDropped.Add(float64(dropped))

	logrus.Infof("Triggered extraction session %s", session.ID)
	return session, nil
}

// Update applies a caller-reported status change. Unknown ids fail with
// ErrNotFound. The prior state is deliberately not guarded: at-least-once
// clients re-send terminal reports and a second completed update must not
// fail their retry.
func (m *Manager) Update(ctx context.Context, id, status string, messagesExtracted *int, metadata map[string]interface{}) (*model.ExtractionSession, error) {
	session, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	wasTerminal := model.Terminal(session.Status)
	session.Status = status
	if messagesExtracted != nil {
		session.MessagesExtracted = *messagesExtracted
	}
	if len(metadata) > 0 {
		merged := map[string]interface{}(session.Metadata)
		if merged == nil {
			merged = map[string]interface{}{}
		}
		for k, v := range metadata {
			merged[k] = v
		}
		session.Metadata = datatypes.JSONMap(merged)
	}

	if model.Terminal(status) {
		if session.CompletedAt == nil {
			now := time.Now()
			session.CompletedAt = &now
		}
	} else {
		// a reopened session is not completed anymore
		session.CompletedAt = nil
	}

	if err := m.store.Save(ctx, session); err != nil {
		return nil, err
	}

	switch {
	case !wasTerminal && model.Terminal(status):
		m.metrics.ActiveSessions.Dec()
	case wasTerminal && !model.Terminal(status):
		m.metrics.ActiveSessions.Inc()
	}

	_, dropped := m.hub.Publish(notify.EventExtractionUpdated, map[string]interface{}{
		"sessionId":         session.ID,
		"status":            session.Status,
		"messagesExtracted": session.MessagesExtracted,
	})
	m.metrics.NotifyPublished.Inc()
	m.metrics.NotifyDropped.Add(float64(dropped))

	logrus.Infof("Updated extraction session %s to %s", session.ID, session.Status)
	return session, nil
}

// Get returns the session with the given id
func (m *Manager) Get(ctx context.Context, id string) (*model.ExtractionSession, error) {
	return m.store.Get(ctx, id)
}

// List returns sessions matching the filter
func (m *Manager) List(ctx context.Context, filter model.SessionFilter) ([]model.ExtractionSession, error) {
	return m.store.List(ctx, filter)
}

// Delete removes a session
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// GetActive resolves the advisory pointer. A missing or stale pointer is
// not an error: stale pointers are read-repaired by clearing them, and the
// caller gets a nil session meaning "no plausibly-active session".
func (m *Manager) GetActive(ctx context.Context) (*model.ExtractionSession, error) {
	id, err := m.pointer.ActiveSession(ctx)
	if err != nil {
		logrus.Warnf("Failed to read active session pointer: %v", err)
		return nil, nil
	}
	if id == "" {
		return nil, nil
	}

	session, err := m.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		if clearErr := m.pointer.ClearActiveSession(ctx); clearErr != nil {
			logrus.Warnf("Failed to clear stale active session pointer: %v", clearErr)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}
