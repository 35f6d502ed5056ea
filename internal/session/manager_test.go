package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"qms/kiosk-service/internal/bridge"
	"qms/kiosk-service/internal/models"
	"qms/kiosk-service/internal/store"
	"qms/kiosk-service/internal/store/stub"
)

type fakeOperators struct {
	authenticateFn func(ctx context.Context, username, password string) (models.Operator, error)
}

func (f *fakeOperators) Authenticate(ctx context.Context, username, password string) (models.Operator, error) {
	return f.authenticateFn(ctx, username, password)
}

func newTestManager(fb *fakeBridge, now *time.Time) *Manager {
	if fb.listFn == nil {
		fb.listFn = func(ctx context.Context) ([]models.Printer, error) {
			return kioskPrinters(), nil
		}
	}
	return NewManager(stub.NewStore(), bridge.NewClient(fb), time.Hour, Options{
		Now: func() time.Time { return *now },
	})
}

func TestLoginValidation(t *testing.T) {
	now := time.Now()
	manager := newTestManager(&fakeBridge{}, &now)
	cases := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{name: "blank username", username: " ", password: "secret", want: store.ErrEmptyInput},
		{name: "blank password", username: "desk1", password: "", want: store.ErrEmptyInput},
		{name: "short password", username: "desk1", password: "ab", want: store.ErrInvalidCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := manager.Login(context.Background(), tc.username, tc.password); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoginUsernameCheckedFirst(t *testing.T) {
	called := false
	operators := &fakeOperators{authenticateFn: func(ctx context.Context, username, password string) (models.Operator, error) {
		called = true
		return models.Operator{}, nil
	}}
	manager := NewManager(operators, bridge.NewClient(&fakeBridge{}), time.Hour, Options{})
	if _, err := manager.Login(context.Background(), "", ""); !errors.Is(err, store.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if called {
		t.Fatalf("operator store must not be consulted for blank input")
	}
}

func TestLoginSelectsDefaultPrinter(t *testing.T) {
	now := time.Now()
	manager := newTestManager(&fakeBridge{}, &now)
	session, err := manager.Login(context.Background(), "desk1", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	state := session.Snapshot()
	if state.SelectedPrinter != "HP-Thermal" || state.Username != "desk1" || len(state.Printers) != 2 {
		t.Fatalf("unexpected session state %+v", state)
	}
	if !session.ExpiresAt().Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", session.ExpiresAt())
	}
	got, err := manager.Get(session.ID())
	if err != nil || got != session {
		t.Fatalf("get: %v", err)
	}
}

func TestLoginWithBridgeDown(t *testing.T) {
	now := time.Now()
	fb := &fakeBridge{listFn: func(ctx context.Context) ([]models.Printer, error) {
		return nil, errors.New("connection refused")
	}}
	manager := newTestManager(fb, &now)
	session, err := manager.Login(context.Background(), "desk1", "secret")
	if err != nil {
		t.Fatalf("login must survive a bridge outage: %v", err)
	}
	state := session.Snapshot()
	if state.SelectedPrinter != "" || len(state.Printers) != 0 || state.Message == "" {
		t.Fatalf("unexpected session state %+v", state)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	now := time.Now()
	manager := newTestManager(&fakeBridge{}, &now)
	first, _ := manager.Login(context.Background(), "desk1", "secret")
	second, _ := manager.Login(context.Background(), "desk2", "secret")
	if _, err := first.TakeTicket(context.Background(), "A"); err != nil {
		t.Fatalf("take: %v", err)
	}
	if len(second.Snapshot().Tickets) != 0 {
		t.Fatalf("tickets leaked across sessions")
	}
}

func TestLogoutDiscardsSession(t *testing.T) {
	now := time.Now()
	manager := newTestManager(&fakeBridge{}, &now)
	session, _ := manager.Login(context.Background(), "desk1", "secret")
	if !manager.Logout(session.ID()) {
		t.Fatalf("expected logout to succeed")
	}
	if manager.Logout(session.ID()) {
		t.Fatalf("expected second logout to report false")
	}
	if _, err := manager.Get(session.ID()); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	now := time.Now()
	manager := newTestManager(&fakeBridge{}, &now)
	first, _ := manager.Login(context.Background(), "desk1", "secret")
	now = now.Add(30 * time.Minute)
	second, _ := manager.Login(context.Background(), "desk2", "secret")

	now = now.Add(45 * time.Minute)
	if _, err := manager.Get(first.ID()); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
	if _, err := manager.Get(second.ID()); err != nil {
		t.Fatalf("second session should still be live: %v", err)
	}

	now = now.Add(time.Hour)
	if removed := manager.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept session, got %d", removed)
	}
}

func TestManagerCategories(t *testing.T) {
	manager := NewManager(stub.NewStore(), bridge.NewClient(&fakeBridge{}), 0, Options{
		Categories: []models.Category{{Code: "X", Name: "Wisuda"}},
	})
	categories := manager.Categories()
	if len(categories) != 1 || categories[0].Code != "X" {
		t.Fatalf("unexpected categories %+v", categories)
	}
	if manager.QueueAPI() != nil {
		t.Fatalf("expected no queue api")
	}
}
