package events

import (
	"context"
	"os"
	"testing"
	"time"

	"qms/kiosk-service/internal/models"
)

func TestNewTicketEvent(t *testing.T) {
	ticket := models.Ticket{Ref: "ref-1", Category: "B", QRPayload: "B456", Status: models.StatusPrinted}
	at := time.Date(2026, 1, 12, 8, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	event := NewTicketEvent(TypeTicketPrinted, "sess-1", ticket, at)
	if event.EventID == "" {
		t.Fatalf("expected event id")
	}
	if event.Type != TypeTicketPrinted || event.SessionID != "sess-1" || event.TicketRef != "ref-1" || event.Code != "B456" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp")
	}
}

func TestLogPublisher(t *testing.T) {
	pub := NewLogPublisher()
	if err := pub.Publish(context.Background(), Event{Type: TypeTicketTaken}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestAMQPPublisher(t *testing.T) {
	url := os.Getenv("TEST_AMQP_URL")
	if url == "" {
		t.Skip("TEST_AMQP_URL is required for broker tests")
	}
	pub, err := DialAMQP(url, "kiosk_tickets_test")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer pub.Close()
	ticket := models.Ticket{Ref: "ref-1", Category: "A", QRPayload: "A123", Status: models.StatusCreated}
	if err := pub.Publish(context.Background(), NewTicketEvent(TypeTicketTaken, "sess", ticket, time.Now())); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
