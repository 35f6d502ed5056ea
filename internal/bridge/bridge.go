// Package bridge talks to the host print service that enumerates printers and
// dispatches receipts. The kiosk never drives printer hardware directly.
package bridge

import (
	"context"
	"strings"

	"qms/kiosk-service/internal/models"
)

type Bridge interface {
	ListPrinters(ctx context.Context) ([]models.Printer, error)
	Print(ctx context.Context, printerName string, fields models.TicketFields) error
}

// StatusChecker is implemented by bridges that can query one printer without
// listing them all.
type StatusChecker interface {
	PrinterStatus(ctx context.Context, printerName string) (string, error)
}

// New picks a bridge implementation by kind: "log" (default), "noop", "fail",
// "lp" for the local CUPS command line tools, or an http(s) URL of a bridge
// daemon.
func New(kind, token string) Bridge {
	switch kind {
	case "", "stub", "log":
		return logBridge{}
	case "noop":
		return noopBridge{}
	case "fail":
		return failBridge{}
	case "lp", "cups":
		return newLPBridge(nil)
	default:
		if strings.HasPrefix(kind, "http://") || strings.HasPrefix(kind, "https://") {
			return newHTTPBridge(kind, token)
		}
		return logBridge{}
	}
}
