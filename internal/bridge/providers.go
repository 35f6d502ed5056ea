package bridge

import (
	"context"
	"errors"
	"log"

	"qms/kiosk-service/internal/models"
	"qms/kiosk-service/internal/receipt"
)

const logPrinterName = "log"

type logBridge struct{}

func (logBridge) ListPrinters(ctx context.Context) ([]models.Printer, error) {
	return []models.Printer{{
		Name:      logPrinterName,
		Driver:    "stdout",
		Port:      "log",
		Status:    "Ready",
		IsDefault: true,
		IsThermal: true,
	}}, nil
}

func (logBridge) Print(ctx context.Context, printerName string, fields models.TicketFields) error {
	log.Printf("print to %s:\n%s", printerName, receipt.Text(fields))
	return nil
}

type noopBridge struct{}

func (noopBridge) ListPrinters(ctx context.Context) ([]models.Printer, error) {
	return nil, nil
}

func (noopBridge) Print(ctx context.Context, printerName string, fields models.TicketFields) error {
	return nil
}

type failBridge struct{}

var errBridgeFailure = errors.New("bridge failure")

func (failBridge) ListPrinters(ctx context.Context) ([]models.Printer, error) {
	return nil, errBridgeFailure
}

func (failBridge) Print(ctx context.Context, printerName string, fields models.TicketFields) error {
	return errBridgeFailure
}
