package receipt

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"qms/kiosk-service/internal/models"
)

func sampleTicket() models.Ticket {
	return models.Ticket{
		Ref:          "ref-1",
		Category:     "A",
		CategoryName: "Pemeriksaan Umum",
		TicketNumber: 123,
		QRPayload:    "A123",
		Status:       models.StatusCreated,
	}
}

func TestFields(t *testing.T) {
	printedAt := time.Date(2026, 3, 4, 9, 5, 0, 0, time.UTC)
	fields := Fields(sampleTicket(), "RS Contoh", printedAt)
	if fields.QueueNumber != "A123" || fields.TicketNumber != "A123" || fields.QRData != "A123" {
		t.Fatalf("unexpected fields %+v", fields)
	}
	if fields.Timestamp != "04/03/2026 09:05" {
		t.Fatalf("unexpected timestamp %q", fields.Timestamp)
	}
	if fields.ServiceName != "Pemeriksaan Umum" || fields.Location != "RS Contoh" {
		t.Fatalf("unexpected fields %+v", fields)
	}
}

func TestTextFields(t *testing.T) {
	fields := TextFields("https://example.test/form", "RS Contoh", time.Date(2026, 3, 4, 9, 5, 0, 0, time.UTC))
	if fields.QRData != "https://example.test/form" || fields.QueueNumber != "" || fields.Timestamp != "04/03/2026 09:05" {
		t.Fatalf("unexpected fields %+v", fields)
	}
}

func TestSampleFields(t *testing.T) {
	printedAt := time.Date(2026, 3, 4, 9, 5, 0, 0, time.UTC)
	fields := SampleFields(7, "", printedAt)
	if fields.QueueNumber != "A007" || fields.TicketNumber != "A007" || fields.Location != "RS Contoh" {
		t.Fatalf("unexpected fields %+v", fields)
	}
	if want := "TEST-A007-" + strconv.FormatInt(printedAt.UnixMilli(), 10); fields.QRData != want {
		t.Fatalf("qr data %q, want %q", fields.QRData, want)
	}
	if got := SampleFields(42, "RS Wisuda", printedAt).Location; got != "RS Wisuda" {
		t.Fatalf("expected configured location, got %q", got)
	}
}

func TestRender(t *testing.T) {
	fields := Fields(sampleTicket(), "RS Contoh", time.Now())
	out := Render(fields)
	if !bytes.HasPrefix(out, []byte{0x1B, '@'}) {
		t.Fatalf("receipt must start with printer init")
	}
	if !bytes.HasSuffix(out, []byte{0x1D, 'V', 0x41, 0x00}) {
		t.Fatalf("receipt must end with partial cut")
	}
	for _, want := range []string{"TIKET ANTRIAN", "RS Contoh", "A123", "Pemeriksaan Umum", "* Simpan tiket hingga dipanggil"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("receipt missing %q", want)
		}
	}
}

func TestText(t *testing.T) {
	text := Text(Fields(sampleTicket(), "", time.Now()))
	if strings.ContainsRune(text, 0x1B) || strings.ContainsRune(text, 0x1D) {
		t.Fatalf("preview text contains control bytes")
	}
	if !strings.Contains(text, "QR: A123") {
		t.Fatalf("preview text missing qr data: %s", text)
	}
}

func TestQRPNG(t *testing.T) {
	png, err := QRPNG("A123", 128)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("expected PNG header")
	}
	if _, err := QRPNG("", 128); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestPreviewURL(t *testing.T) {
	raw := PreviewURL("A 123", 200)
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Query().Get("data") != "A 123" || parsed.Query().Get("size") != "200x200" {
		t.Fatalf("unexpected preview url %s", raw)
	}
}
