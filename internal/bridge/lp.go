package bridge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"qms/kiosk-service/internal/models"
	"qms/kiosk-service/internal/receipt"
)

var thermalKeywords = []string{
	"thermal", "receipt", "pos", "epson tm", "star tsp",
	"zebra", "citizen", "bixolon", "rongta", "xprinter",
	"sunmi", "snbc", "sam4s", "80mm", "58mm",
	"rp80", "rp326", "tsp100", "tsp650", "tsp700", "tsp800", "zj",
}

const noDestinations = "No destinations added"

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// lpBridge drives the CUPS command line tools on the kiosk host.
type lpBridge struct {
	run commandRunner
}

func newLPBridge(run commandRunner) lpBridge {
	if run == nil {
		run = runCommand
	}
	return lpBridge{run: run}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (b lpBridge) ListPrinters(ctx context.Context) ([]models.Printer, error) {
	out, err := b.run(ctx, "lpstat", "-p", "-d")
	if err != nil {
		// CUPS exits non-zero when the host has no queues at all.
		if strings.Contains(err.Error(), noDestinations) {
			return []models.Printer{}, nil
		}
		return nil, err
	}
	return parseLpstat(string(out)), nil
}

// PrinterStatus asks CUPS for the state of a single queue.
func (b lpBridge) PrinterStatus(ctx context.Context, printerName string) (string, error) {
	out, err := b.run(ctx, "lpstat", "-p", printerName)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "printer "+printerName+" ") {
			return lpstatStatus(line), nil
		}
	}
	return "Unknown", nil
}

func (b lpBridge) Print(ctx context.Context, printerName string, fields models.TicketFields) error {
	file, err := os.CreateTemp("", "kiosk-receipt-*.bin")
	if err != nil {
		return err
	}
	defer os.Remove(file.Name())
	if _, err := file.Write(receipt.Render(fields)); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	_, err = b.run(ctx, "lp", "-d", printerName, "-o", "raw", file.Name())
	return err
}

func parseLpstat(output string) []models.Printer {
	var printers []models.Printer
	defaultName := ""
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "printer "):
			parts := strings.Fields(line)
			if len(parts) < 2 {
				continue
			}
			status := lpstatStatus(line)
			printers = append(printers, models.Printer{
				Name:      parts[1],
				Driver:    "System Default",
				Port:      "USB/Network",
				Status:    status,
				IsThermal: IsThermal(parts[1], "", ""),
			})
		case strings.HasPrefix(line, "system default destination:"):
			defaultName = strings.TrimSpace(strings.TrimPrefix(line, "system default destination:"))
		}
	}
	for i := range printers {
		if printers[i].Name == defaultName {
			printers[i].IsDefault = true
		}
	}
	return printers
}

func lpstatStatus(line string) string {
	switch {
	case strings.Contains(line, "disabled"):
		return "Disabled"
	case strings.Contains(line, "now printing"):
		return "Printing"
	default:
		return "Ready"
	}
}

// IsThermal guesses from name, driver or port whether a printer is a receipt printer.
func IsThermal(name, driver, port string) bool {
	haystack := strings.ToLower(name + "\x00" + driver + "\x00" + port)
	for _, keyword := range thermalKeywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}
