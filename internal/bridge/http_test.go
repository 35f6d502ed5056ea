package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"qms/kiosk-service/internal/models"
)

func TestHTTPBridgeListPrinters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/printers" || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"name":"HP-Thermal","is_default":false,"is_thermal":true},{"name":"Canon","is_default":true,"is_thermal":false}]`))
	}))
	defer server.Close()

	printers, err := newHTTPBridge(server.URL, "tok").ListPrinters(context.Background())
	if err != nil {
		t.Fatalf("list printers: %v", err)
	}
	if len(printers) != 2 || printers[0].Name != "HP-Thermal" || !printers[0].IsThermal || !printers[1].IsDefault {
		t.Fatalf("unexpected printers %+v", printers)
	}
}

func TestHTTPBridgeListPrintersError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := newHTTPBridge(server.URL, "").ListPrinters(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestHTTPBridgePrint(t *testing.T) {
	var got printRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/print" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	defer server.Close()

	fields := models.TicketFields{TicketNumber: "A123", ServiceName: "Umum", QueueNumber: "A123", Timestamp: "01/01/2026 08:00", QRData: "A123"}
	if err := newHTTPBridge(server.URL, "").Print(context.Background(), "HP-Thermal", fields); err != nil {
		t.Fatalf("print: %v", err)
	}
	if got.PrinterName != "HP-Thermal" || got.TicketData.QRData != "A123" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestHTTPBridgePrintFailure(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", http.StatusOK, `{"success":false,"error":"offline"}`, "offline"},
		{"message field", http.StatusInternalServerError, `{"success":false,"message":"paper out"}`, "paper out"},
		{"plain body", http.StatusBadGateway, `upstream gone`, "bridge returned 502: upstream gone"},
	}
	for _, tt := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(tt.body))
		}))
		err := newHTTPBridge(server.URL, "").Print(context.Background(), "p", models.TicketFields{})
		server.Close()
		if err == nil || err.Error() != tt.want {
			t.Fatalf("%s: expected %q, got %v", tt.name, tt.want, err)
		}
	}
}
