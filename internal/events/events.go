package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"qms/kiosk-service/internal/models"

	"github.com/google/uuid"
)

const (
	TypeTicketTaken       = "ticket.taken"
	TypeTicketPrinted     = "ticket.printed"
	TypeTicketPrintFailed = "ticket.print_failed"
	TypeTicketCancelled   = "ticket.cancelled"
)

type Event struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	TicketRef  string    `json:"ticket_ref"`
	Code       string    `json:"code"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	Printer    string    `json:"printer,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers ticket lifecycle events to downstream displays.
// Delivery is best-effort; callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

func NewTicketEvent(eventType, sessionID string, ticket models.Ticket, occurredAt time.Time) Event {
	return Event{
		EventID:    uuid.NewString(),
		Type:       eventType,
		SessionID:  sessionID,
		TicketRef:  ticket.Ref,
		Code:       ticket.QRPayload,
		Category:   ticket.Category,
		Status:     ticket.Status,
		OccurredAt: occurredAt.UTC(),
	}
}

type logPublisher struct{}

func NewLogPublisher() Publisher {
	return logPublisher{}
}

func (logPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	log.Printf("event type=%s payload=%s", event.Type, body)
	return nil
}

func (logPublisher) Close() error {
	return nil
}
