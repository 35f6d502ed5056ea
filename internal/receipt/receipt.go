// Package receipt renders queue tickets for thermal printers.
package receipt

import (
	"bytes"
	"fmt"
	"net/url"
	"time"

	"qms/kiosk-service/internal/models"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	TimestampLayout = "02/01/2006 15:04"
	DefaultQRSize   = 300
	separator       = "--------------------------------\n"
	qrPlaceholder   = "[QR CODE HERE]\n\n"
	previewEndpoint = "https://api.qrserver.com/v1/create-qr-code/"
)

var footer = []string{
	"* Simpan tiket hingga dipanggil",
	"* Anda akan dipanggil sesuai",
	"  dengan cara scanning QR Code",
	"* Harap menunggu di area",
	"  tunggu",
}

// ESC/POS control sequences.
var (
	escInit        = []byte{0x1B, '@'}
	escAlignLeft   = []byte{0x1B, 'a', 0x00}
	escAlignCenter = []byte{0x1B, 'a', 0x01}
	escBoldOn      = []byte{0x1B, 'E', 0x01}
	escBoldOff     = []byte{0x1B, 'E', 0x00}
	gsSizeNormal   = []byte{0x1D, '!', 0x00}
	gsSizeDouble   = []byte{0x1D, '!', 0x11}
	gsSizeTriple   = []byte{0x1D, '!', 0x22}
	gsPartialCut   = []byte{0x1D, 'V', 0x41, 0x00}
)

// Fields builds the bridge request for a ticket printed at printedAt.
func Fields(ticket models.Ticket, location string, printedAt time.Time) models.TicketFields {
	return models.TicketFields{
		TicketNumber: ticket.QRPayload,
		ServiceName:  ticket.CategoryName,
		QueueNumber:  ticket.QRPayload,
		Timestamp:    printedAt.Format(TimestampLayout),
		QRData:       ticket.QRPayload,
		Location:     location,
	}
}

// TextFields wraps an ad-hoc QR payload in a receipt with no queue number.
func TextFields(data, location string, printedAt time.Time) models.TicketFields {
	return models.TicketFields{
		ServiceName: "QR Code",
		Timestamp:   printedAt.Format(TimestampLayout),
		QRData:      data,
		Location:    location,
	}
}

// SampleFields builds the sample receipt used to check a printer. number is
// rendered as an A-series code and the QR payload is tagged TEST so it can
// never be mistaken for a live ticket.
func SampleFields(number int, location string, printedAt time.Time) models.TicketFields {
	code := fmt.Sprintf("A%03d", number)
	if location == "" {
		location = "RS Contoh"
	}
	return models.TicketFields{
		TicketNumber: code,
		ServiceName:  "Pemeriksaan Umum",
		QueueNumber:  code,
		Timestamp:    printedAt.Format(TimestampLayout),
		QRData:       fmt.Sprintf("TEST-%s-%d", code, printedAt.UnixMilli()),
		Location:     location,
	}
}

// Render produces the ESC/POS byte stream for one receipt.
func Render(fields models.TicketFields) []byte {
	var buf bytes.Buffer
	buf.Write(escInit)

	buf.Write(escAlignCenter)
	buf.Write(escBoldOn)
	buf.Write(gsSizeDouble)
	buf.WriteString("TIKET ANTRIAN\n")
	buf.Write(gsSizeNormal)
	buf.Write(escBoldOff)
	if fields.Location != "" {
		buf.WriteString(fields.Location + "\n")
	}

	buf.Write(escAlignLeft)
	buf.WriteString(separator)

	buf.Write(escAlignCenter)
	buf.Write(gsSizeTriple)
	buf.Write(escBoldOn)
	buf.WriteString(fields.QueueNumber + "\n")
	buf.Write(gsSizeNormal)
	buf.Write(escBoldOff)
	buf.WriteString(fields.ServiceName + "\n")
	buf.WriteString(fields.Timestamp + "\n\n")
	buf.WriteString(qrPlaceholder)

	buf.Write(escAlignLeft)
	buf.WriteString(separator)

	buf.Write(escAlignCenter)
	for _, line := range footer {
		buf.WriteString(line + "\n")
	}
	buf.WriteString("\n")
	buf.Write(gsPartialCut)
	return buf.Bytes()
}

// Text is the receipt without control sequences, for on-screen preview.
func Text(fields models.TicketFields) string {
	var buf bytes.Buffer
	buf.WriteString("TIKET ANTRIAN\n")
	if fields.Location != "" {
		buf.WriteString(fields.Location + "\n")
	}
	buf.WriteString(separator)
	fmt.Fprintf(&buf, "%s\n%s\n%s\n\n", fields.QueueNumber, fields.ServiceName, fields.Timestamp)
	fmt.Fprintf(&buf, "QR: %s\n\n", fields.QRData)
	buf.WriteString(separator)
	for _, line := range footer {
		buf.WriteString(line + "\n")
	}
	return buf.String()
}

// QRPNG encodes payload as a square PNG with the given edge length in pixels.
func QRPNG(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qr payload is empty")
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}

// PreviewURL points at the public QR image endpoint used by the kiosk front end.
func PreviewURL(payload string, size int) string {
	if size <= 0 {
		size = DefaultQRSize
	}
	query := url.Values{}
	query.Set("data", payload)
	query.Set("size", fmt.Sprintf("%dx%d", size, size))
	return previewEndpoint + "?" + query.Encode()
}
