package models

import (
	"strconv"
	"time"
)

type Ticket struct {
	Ref          string    `json:"ticket_ref"`
	Category     string    `json:"category"`
	CategoryName string    `json:"category_name"`
	TicketNumber int       `json:"ticket_number"`
	QRPayload    string    `json:"qr_payload"`
	Status       string    `json:"status"`
	Printer      string    `json:"printer,omitempty"`
	TakenAt      time.Time `json:"taken_at"`
}

const (
	StatusCreated     = "created"
	StatusPrinting    = "printing"
	StatusPrinted     = "printed"
	StatusPrintFailed = "print_failed"
	StatusCancelled   = "cancelled"
)

// QRPayload is the category code followed by the ticket number, e.g. "A123".
// It doubles as the display code printed on the receipt.
func QRPayload(category string, number int) string {
	return category + strconv.Itoa(number)
}

// TicketFields is the request shape the print bridge expects for one receipt.
type TicketFields struct {
	TicketNumber string `json:"ticket_number"`
	ServiceName  string `json:"service_name"`
	QueueNumber  string `json:"queue_number"`
	Timestamp    string `json:"timestamp"`
	QRData       string `json:"qr_data"`
	Location     string `json:"location,omitempty"`
}

type PrintRecord struct {
	Data      string    `json:"data"`
	Printer   string    `json:"printer"`
	PrintedAt time.Time `json:"printed_at"`
	OK        bool      `json:"ok"`
	Detail    string    `json:"detail,omitempty"`
}
