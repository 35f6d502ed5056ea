package queueapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qms/kiosk-service/internal/store"
)

func TestMockClient(t *testing.T) {
	now := time.Date(2026, 1, 12, 8, 30, 0, 0, time.UTC)
	mock := &Mock{now: func() time.Time { return now }, intn: func(n int) int { return 41 }}
	ctx := context.Background()

	next, err := mock.NextQueue(ctx, "Pemeriksaan Umum")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next.QueueNumber != "A042" || next.ServiceType != "Pemeriksaan Umum" || next.CreatedAt != "12/01/2026 08:30" {
		t.Fatalf("unexpected next queue %+v", next)
	}

	all, _ := mock.ListQueues(ctx, Filter{})
	if len(all) != 10 || all[0].QueueNumber != "A001" {
		t.Fatalf("unexpected list %+v", all)
	}
	special, _ := mock.ListQueues(ctx, Filter{ServiceType: "Pemeriksaan Khusus"})
	if len(special) != 5 {
		t.Fatalf("expected 5 filtered queues, got %d", len(special))
	}

	if err := mock.UpdateStatus(ctx, "A001", StatusCancelled); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := mock.UpdateStatus(ctx, "A001", "lost"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	token, _ := mock.Login(ctx, "desk1", "pw")
	if !strings.HasPrefix(token, "mock_token_desk1_") {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestQueueDataFields(t *testing.T) {
	queue := QueueData{QueueNumber: "A015", Department: "RS UNPAM", ServiceType: "Pemeriksaan Umum", CreatedAt: "12/01/2026 08:30"}
	fields := queue.Fields(time.UnixMilli(1700000000000))
	if fields.QRData != "QUEUE-A015-1700000000000" {
		t.Fatalf("unexpected qr data %q", fields.QRData)
	}
	if fields.QueueNumber != "A015" || fields.Location != "RS UNPAM" || fields.Timestamp != "12/01/2026 08:30" {
		t.Fatalf("unexpected fields %+v", fields)
	}
}

func TestNewFallsBackToMock(t *testing.T) {
	if _, ok := New("", "").(*Mock); !ok {
		t.Fatalf("expected mock client without base url")
	}
	if _, ok := New("http://queue.local/api", "").(*httpClient); !ok {
		t.Fatalf("expected http client")
	}
	if client := New(Disabled, ""); client != nil {
		t.Fatalf("expected nil client when disabled, got %T", client)
	}
}

func TestHTTPClient(t *testing.T) {
	var patched string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" && r.URL.Path != "/auth/login" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/queue/next":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			_ = json.NewEncoder(w).Encode(QueueData{QueueNumber: "B007", ServiceType: body["service_type"]})
		case r.Method == http.MethodGet && r.URL.Path == "/queue/B007":
			_ = json.NewEncoder(w).Encode(QueueData{QueueNumber: "B007"})
		case r.Method == http.MethodGet && r.URL.Path == "/queue":
			if r.URL.Query().Get("status") != "waiting" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"queues":[{"queue_number":"B001"},{"queue_number":"B002"}]}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/queue/B007/status":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			patched = body["status"]
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "good" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Login failed"}`))
				return
			}
			_, _ = w.Write([]byte(`{"token":"abc"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Queue not found"}`))
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client := newHTTPClient(server.URL, "tok")

	next, err := client.NextQueue(ctx, "KIA")
	if err != nil || next.QueueNumber != "B007" || next.ServiceType != "KIA" {
		t.Fatalf("next: %+v err=%v", next, err)
	}
	got, err := client.GetQueue(ctx, "B007")
	if err != nil || got.QueueNumber != "B007" {
		t.Fatalf("get: %+v err=%v", got, err)
	}
	list, err := client.ListQueues(ctx, Filter{Status: "waiting"})
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %+v err=%v", list, err)
	}
	if err := client.UpdateStatus(ctx, "B007", StatusCalled); err != nil || patched != StatusCalled {
		t.Fatalf("update: patched=%q err=%v", patched, err)
	}
	if err := client.UpdateStatus(ctx, "B007", "nope"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := client.GetQueue(ctx, "missing"); err == nil || !strings.Contains(err.Error(), "Queue not found") {
		t.Fatalf("expected not found detail, got %v", err)
	}

	token, err := client.Login(ctx, "desk1", "good")
	if err != nil || token != "abc" {
		t.Fatalf("login: %q err=%v", token, err)
	}
	if _, err := client.Login(ctx, "desk1", "bad"); !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	operators := NewOperatorStore(client)
	operator, err := operators.Authenticate(ctx, "desk1", "good")
	if err != nil || operator.Username != "desk1" {
		t.Fatalf("authenticate: %+v err=%v", operator, err)
	}
	if _, err := operators.Authenticate(ctx, "desk1", "bad"); !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
