// Package queueapi is the client for the central queue and auth API. Kiosks
// without a configured endpoint use the built-in mock, which returns synthetic
// data in the same shapes.
package queueapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qms/kiosk-service/internal/models"
)

type QueueData struct {
	QueueNumber string `json:"queue_number"`
	Department  string `json:"department"`
	PatientName string `json:"patient_name,omitempty"`
	ServiceType string `json:"service_type"`
	CreatedAt   string `json:"created_at"`
}

// Fields maps an API queue entry onto the bridge request. The QR payload is
// stamped with printedAt so repeated prints of one entry stay distinguishable.
func (q QueueData) Fields(printedAt time.Time) models.TicketFields {
	return models.TicketFields{
		TicketNumber: q.QueueNumber,
		ServiceName:  q.ServiceType,
		QueueNumber:  q.QueueNumber,
		Timestamp:    q.CreatedAt,
		QRData:       fmt.Sprintf("QUEUE-%s-%d", q.QueueNumber, printedAt.UnixMilli()),
		Location:     q.Department,
	}
}

type Filter struct {
	Date        string
	Status      string
	ServiceType string
}

const (
	StatusWaiting   = "waiting"
	StatusCalled    = "called"
	StatusServing   = "serving"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid queue status")

type Client interface {
	NextQueue(ctx context.Context, serviceType string) (QueueData, error)
	GetQueue(ctx context.Context, queueID string) (QueueData, error)
	ListQueues(ctx context.Context, filter Filter) ([]QueueData, error)
	UpdateStatus(ctx context.Context, queueID, status string) error
	Login(ctx context.Context, username, password string) (string, error)
}

// Disabled is the base URL that turns the queue API off entirely.
const Disabled = "off"

// New returns the mock for an empty base URL and nil for Disabled, which
// leaves the kiosk without queue routes.
func New(baseURL, token string) Client {
	switch baseURL {
	case "":
		return NewMock()
	case Disabled:
		return nil
	}
	return newHTTPClient(baseURL, token)
}

func ValidStatus(status string) bool {
	switch status {
	case StatusWaiting, StatusCalled, StatusServing, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}
