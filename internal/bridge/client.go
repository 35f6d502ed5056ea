package bridge

import (
	"context"
	"fmt"
	"log"
	"strings"

	"qms/kiosk-service/internal/models"
	"qms/kiosk-service/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("qms/kiosk-service/bridge")

// DispatchError reports a print job the bridge refused or could not deliver.
type DispatchError struct {
	Printer string
	Detail  string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("print dispatch to %s failed: %s", e.Printer, e.Detail)
}

func (e *DispatchError) Unwrap() error {
	return store.ErrPrintDispatchFailed
}

// Client maps kiosk requests onto a Bridge and surfaces its errors without
// interpretation. It never retries.
type Client struct {
	bridge Bridge
}

func NewClient(bridge Bridge) *Client {
	return &Client{bridge: bridge}
}

// ListPrinters returns an empty, non-nil slice together with an error wrapping
// store.ErrPrinterListUnavailable when the bridge cannot be reached.
func (c *Client) ListPrinters(ctx context.Context) ([]models.Printer, error) {
	ctx, span := tracer.Start(ctx, "bridge.list_printers")
	defer span.End()

	printers, err := c.bridge.ListPrinters(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "printer list unavailable")
		log.Printf("printer listing failed: %v", err)
		return []models.Printer{}, fmt.Errorf("%w: %v", store.ErrPrinterListUnavailable, err)
	}
	printers = normalizePrinters(printers)
	span.SetAttributes(attribute.Int("printer.count", len(printers)))
	return printers, nil
}

func (c *Client) Print(ctx context.Context, printerName string, fields models.TicketFields) error {
	if strings.TrimSpace(printerName) == "" {
		return store.ErrNoPrinterSelected
	}
	ctx, span := tracer.Start(ctx, "bridge.print")
	defer span.End()
	span.SetAttributes(
		attribute.String("printer.name", printerName),
		attribute.String("ticket.queue_number", fields.QueueNumber),
	)

	if err := c.bridge.Print(ctx, printerName, fields); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "print dispatch failed")
		return &DispatchError{Printer: printerName, Detail: err.Error()}
	}
	return nil
}

// PrinterStatus reports the current status of one printer. Bridges without a
// direct lookup answer from a fresh listing. An unlisted printer yields
// store.ErrPrinterNotFound.
func (c *Client) PrinterStatus(ctx context.Context, printerName string) (string, error) {
	printerName = strings.TrimSpace(printerName)
	if printerName == "" {
		return "", store.ErrNoPrinterSelected
	}
	ctx, span := tracer.Start(ctx, "bridge.printer_status")
	defer span.End()
	span.SetAttributes(attribute.String("printer.name", printerName))

	if checker, ok := c.bridge.(StatusChecker); ok {
		status, err := checker.PrinterStatus(ctx, printerName)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "printer status unavailable")
			return "", fmt.Errorf("%w: %v", store.ErrPrinterListUnavailable, err)
		}
		return status, nil
	}

	printers, err := c.bridge.ListPrinters(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "printer status unavailable")
		return "", fmt.Errorf("%w: %v", store.ErrPrinterListUnavailable, err)
	}
	for _, printer := range normalizePrinters(printers) {
		if printer.Name != printerName {
			continue
		}
		if printer.Status == "" {
			return "Unknown", nil
		}
		return printer.Status, nil
	}
	return "", store.ErrPrinterNotFound
}

// normalizePrinters drops unnamed entries and keeps only the first default flag.
func normalizePrinters(printers []models.Printer) []models.Printer {
	out := make([]models.Printer, 0, len(printers))
	seenDefault := false
	for _, printer := range printers {
		printer.Name = strings.TrimSpace(printer.Name)
		if printer.Name == "" {
			continue
		}
		if printer.IsDefault {
			if seenDefault {
				printer.IsDefault = false
			}
			seenDefault = true
		}
		out = append(out, printer)
	}
	return out
}

// SelectDefault prefers the first thermal printer, then the first printer in
// listing order. It returns "" for an empty listing.
func SelectDefault(printers []models.Printer) string {
	for _, printer := range printers {
		if printer.IsThermal {
			return printer.Name
		}
	}
	if len(printers) > 0 {
		return printers[0].Name
	}
	return ""
}
