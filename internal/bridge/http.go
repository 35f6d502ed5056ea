package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"qms/kiosk-service/internal/models"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type httpBridge struct {
	baseURL string
	token   string
	client  *http.Client
}

type printRequest struct {
	PrinterName string              `json:"printerName"`
	TicketData  models.TicketFields `json:"ticketData"`
}

type printResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// The client carries no timeout of its own; callers inherit whatever the
// bridge daemon applies.
func newHTTPBridge(baseURL, token string) httpBridge {
	return httpBridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (b httpBridge) ListPrinters(ctx context.Context) ([]models.Printer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/printers", nil)
	if err != nil {
		return nil, err
	}
	b.authorize(req)
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bridge returned %d: %s", resp.StatusCode, readDetail(resp.Body))
	}
	var printers []models.Printer
	if err := json.NewDecoder(resp.Body).Decode(&printers); err != nil {
		return nil, fmt.Errorf("decode printers: %w", err)
	}
	return printers, nil
}

func (b httpBridge) Print(ctx context.Context, printerName string, fields models.TicketFields) error {
	body, err := json.Marshal(printRequest{PrinterName: printerName, TicketData: fields})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/print", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	b.authorize(req)
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var result printResponse
	_ = json.Unmarshal(raw, &result)
	if resp.StatusCode >= 300 || !result.Success {
		switch {
		case result.Error != "":
			return errors.New(result.Error)
		case result.Message != "":
			return errors.New(result.Message)
		case len(raw) > 0 && resp.StatusCode >= 300:
			return fmt.Errorf("bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		default:
			return fmt.Errorf("bridge rejected print job (status %d)", resp.StatusCode)
		}
	}
	return nil
}

func (b httpBridge) authorize(req *http.Request) {
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
}

func readDetail(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 1<<12))
	return strings.TrimSpace(string(raw))
}
