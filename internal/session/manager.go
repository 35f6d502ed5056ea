package session

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"qms/kiosk-service/internal/bridge"
	"qms/kiosk-service/internal/models"
	"qms/kiosk-service/internal/queueapi"
	"qms/kiosk-service/internal/store"

	"github.com/google/uuid"
)

const defaultTTL = 8 * time.Hour

// Manager owns the sessions of every operator logged in on this kiosk.
// Sessions share nothing but the bridge client.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	operators store.OperatorStore
	client    *bridge.Client
	ttl       time.Duration
	opts      Options
}

func NewManager(operators store.OperatorStore, client *bridge.Client, ttl time.Duration, opts Options) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		operators: operators,
		client:    client,
		ttl:       ttl,
		opts:      opts.withDefaults(),
	}
}

// Login authenticates the operator and opens a fresh session with the
// printer listing loaded and a default printer picked when one is available.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, store.ErrEmptyInput
	}
	operator, err := m.operators.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	session := New(uuid.NewString(), operator, m.client, m.opts.Now().Add(m.ttl), m.opts)
	// A listing failure leaves the session usable with no printer selected.
	_, _ = session.RefreshPrinters(ctx)

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	log.Printf("operator login session=%s username=%s printer=%s", session.ID(), operator.Username, session.Snapshot().SelectedPrinter)
	return session, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	if !m.opts.Now().Before(session.ExpiresAt()) {
		delete(m.sessions, id)
		return nil, store.ErrSessionNotFound
	}
	return session, nil
}

// Logout discards the session and everything it holds.
func (m *Manager) Logout(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	log.Printf("operator logout session=%s", id)
	return true
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.opts.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, session := range m.sessions {
		if !now.Before(session.ExpiresAt()) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) Categories() []models.Category {
	return append([]models.Category(nil), m.opts.Categories...)
}

// QueueAPI returns the configured queue API client, or nil.
func (m *Manager) QueueAPI() queueapi.Client {
	return m.opts.QueueAPI
}
