// Package session holds the per-login kiosk state: the tickets taken since
// login, the printer listing and selection, the operator-facing status message
// and the print history.
package session

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"qms/kiosk-service/internal/bridge"
	"qms/kiosk-service/internal/events"
	"qms/kiosk-service/internal/models"
	"qms/kiosk-service/internal/queueapi"
	"qms/kiosk-service/internal/receipt"
	"qms/kiosk-service/internal/store"

	"github.com/google/uuid"
)

var (
	ticketsTaken       = expvar.NewInt("tickets_taken_total")
	ticketsPrinted     = expvar.NewInt("tickets_printed_total")
	ticketsPrintFailed = expvar.NewInt("tickets_print_failed_total")
	ticketsCancelled   = expvar.NewInt("tickets_cancelled_total")
)

const (
	historyLimit     = 100
	defaultNumberMin = 100
	defaultNumberMax = 999
)

type Options struct {
	Categories []models.Category
	Location   string
	NumberMin  int
	NumberMax  int
	Publisher  events.Publisher

	// QueueAPI backs the queue routes; nil disables them. Kiosk-local
	// tickets are never reported to it.
	QueueAPI queueapi.Client
	Now      func() time.Time
	Intn     func(n int) int
}

func (o Options) withDefaults() Options {
	if len(o.Categories) == 0 {
		o.Categories = models.DefaultCategories()
	}
	if o.NumberMin <= 0 {
		o.NumberMin = defaultNumberMin
	}
	if o.NumberMax <= 0 {
		o.NumberMax = defaultNumberMax
	}
	if o.NumberMax < o.NumberMin {
		o.NumberMax = o.NumberMin
	}
	if o.Publisher == nil {
		o.Publisher = events.NewLogPublisher()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Intn == nil {
		o.Intn = rand.Intn
	}
	return o
}

// State is a point-in-time copy of a session for rendering.
type State struct {
	SessionID       string           `json:"session_id"`
	Username        string           `json:"username"`
	Tickets         []models.Ticket  `json:"tickets"`
	Printers        []models.Printer `json:"printers"`
	SelectedPrinter string           `json:"selected_printer"`
	Message         string           `json:"message"`
	Busy            bool             `json:"busy"`
	ExpiresAt       time.Time        `json:"expires_at"`
}

// Session is safe for concurrent use. The mutex guards memory only and is
// released while the bridge is called; the busy flag keeps a second print
// from starting until the first one resolves.
type Session struct {
	mu        sync.Mutex
	id        string
	operator  models.Operator
	client    *bridge.Client
	opts      Options
	tickets   []models.Ticket
	printers  []models.Printer
	selected  string
	message   string
	busy      bool
	history   []models.PrintRecord
	expiresAt time.Time
}

func New(id string, operator models.Operator, client *bridge.Client, expiresAt time.Time, opts Options) *Session {
	return &Session{
		id:        id,
		operator:  operator,
		client:    client,
		opts:      opts.withDefaults(),
		tickets:   []models.Ticket{},
		printers:  []models.Printer{},
		history:   []models.PrintRecord{},
		expiresAt: expiresAt,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Operator() models.Operator {
	return s.operator
}

func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

func (s *Session) Categories() []models.Category {
	return append([]models.Category(nil), s.opts.Categories...)
}

// TakeTicket creates a ticket for category, appends it and prints it on the
// active printer. A failed print leaves the ticket in place with status
// print_failed and returns the ticket together with the dispatch error.
func (s *Session) TakeTicket(ctx context.Context, category string) (models.Ticket, error) {
	code := strings.ToUpper(strings.TrimSpace(category))
	if code == "" {
		return models.Ticket{}, store.ErrEmptyInput
	}

	s.mu.Lock()
	cat, ok := s.category(code)
	if !ok {
		s.mu.Unlock()
		return models.Ticket{}, store.ErrUnknownCategory
	}
	printer, err := s.claimLocked()
	if err != nil {
		s.mu.Unlock()
		return models.Ticket{}, err
	}
	now := s.opts.Now()
	number := s.opts.NumberMin + s.opts.Intn(s.opts.NumberMax-s.opts.NumberMin+1)
	ticket := models.Ticket{
		Ref:          uuid.NewString(),
		Category:     cat.Code,
		CategoryName: cat.Name,
		TicketNumber: number,
		QRPayload:    models.QRPayload(cat.Code, number),
		Status:       models.StatusCreated,
		TakenAt:      now,
	}
	s.tickets = append(s.tickets, ticket)
	ticket, err = s.startPrintLocked(len(s.tickets) - 1)
	if err != nil {
		s.busy = false
		s.mu.Unlock()
		return models.Ticket{}, err
	}
	fields := receipt.Fields(ticket, s.opts.Location, now)
	s.mu.Unlock()

	printErr := s.client.Print(ctx, printer, fields)
	printed := s.finishPrint(ticket, printer, printErr)

	ticketsTaken.Add(1)
	log.Printf("ticket taken session=%s ticket=%s category=%s printer=%s", s.id, ticket.QRPayload, ticket.Category, printer)
	s.publish(ctx, events.TypeTicketTaken, ticket, printer, "")
	s.publishPrint(ctx, printed, printer, printErr)
	return printed, printErr
}

// Reprint sends an existing ticket to the active printer again. Only the
// receipt timestamp changes; the stored ticket keeps its number and payload.
func (s *Session) Reprint(ctx context.Context, ref string) (models.Ticket, error) {
	s.mu.Lock()
	i := s.indexOf(ref)
	if i < 0 {
		s.mu.Unlock()
		return models.Ticket{}, store.ErrTicketNotFound
	}
	if !store.ValidTransition("print", s.tickets[i].Status) {
		s.mu.Unlock()
		return models.Ticket{}, store.ErrInvalidState
	}
	printer, err := s.claimLocked()
	if err != nil {
		s.mu.Unlock()
		return models.Ticket{}, err
	}
	ticket, err := s.startPrintLocked(i)
	if err != nil {
		s.busy = false
		s.mu.Unlock()
		return models.Ticket{}, err
	}
	fields := receipt.Fields(ticket, s.opts.Location, s.opts.Now())
	s.mu.Unlock()

	log.Printf("ticket reprint session=%s ticket=%s printer=%s", s.id, ticket.QRPayload, printer)
	printErr := s.client.Print(ctx, printer, fields)
	ticket = s.finishPrint(ticket, printer, printErr)
	s.publishPrint(ctx, ticket, printer, printErr)
	return ticket, printErr
}

// Cancel removes the ticket from the session. It reports false when ref is no
// longer present, which makes repeated cancels harmless.
func (s *Session) Cancel(ctx context.Context, ref string) bool {
	s.mu.Lock()
	i := s.indexOf(ref)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	ticket := s.tickets[i]
	if status, err := store.Transition("cancel", ticket.Status); err == nil {
		ticket.Status = status
	}
	s.tickets = append(s.tickets[:i], s.tickets[i+1:]...)
	s.message = fmt.Sprintf("Ticket %s cancelled", ticket.QRPayload)
	s.mu.Unlock()

	ticketsCancelled.Add(1)
	log.Printf("ticket cancelled session=%s ticket=%s", s.id, ticket.QRPayload)
	s.publish(ctx, events.TypeTicketCancelled, ticket, "", "")
	return true
}

// PrintText prints an ad-hoc QR payload on the active printer.
func (s *Session) PrintText(ctx context.Context, data string) (models.PrintRecord, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return models.PrintRecord{}, store.ErrEmptyInput
	}
	return s.printFields(ctx, receipt.TextFields(data, s.opts.Location, s.opts.Now()))
}

// PrintQueue prints a receipt for an entry issued by the queue API.
func (s *Session) PrintQueue(ctx context.Context, queue queueapi.QueueData) (models.PrintRecord, error) {
	if strings.TrimSpace(queue.QueueNumber) == "" {
		return models.PrintRecord{}, store.ErrEmptyInput
	}
	fields := queue.Fields(s.opts.Now())
	if fields.Location == "" {
		fields.Location = s.opts.Location
	}
	return s.printFields(ctx, fields)
}

// PrintTest prints the sample receipt on the active printer so the operator
// can check paper and alignment. It is recorded in history like any print.
func (s *Session) PrintTest(ctx context.Context) (models.PrintRecord, error) {
	fields := receipt.SampleFields(s.opts.Intn(999)+1, s.opts.Location, s.opts.Now())
	return s.printFields(ctx, fields)
}

// CheckPrinter refreshes the status of one listed printer, the active one
// when name is blank.
func (s *Session) CheckPrinter(ctx context.Context, name string) (models.Printer, error) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	if name == "" {
		name = s.selected
	}
	listed := hasPrinter(s.printers, name)
	s.mu.Unlock()
	if name == "" {
		return models.Printer{}, store.ErrNoPrinterSelected
	}
	if !listed {
		return models.Printer{}, store.ErrPrinterNotFound
	}

	status, err := s.client.PrinterStatus(ctx, name)
	if err != nil {
		return models.Printer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.printers {
		if s.printers[i].Name == name {
			s.printers[i].Status = status
			s.message = fmt.Sprintf("Printer %s is %s", name, status)
			return s.printers[i], nil
		}
	}
	// Refreshed away while the bridge was queried.
	return models.Printer{}, store.ErrPrinterNotFound
}

func (s *Session) printFields(ctx context.Context, fields models.TicketFields) (models.PrintRecord, error) {
	s.mu.Lock()
	printer, err := s.claimLocked()
	s.mu.Unlock()
	if err != nil {
		return models.PrintRecord{}, err
	}

	printErr := s.client.Print(ctx, printer, fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	record := s.recordLocked(fields.QRData, printer, printErr)
	if printErr != nil {
		s.message = "Print failed: " + printDetail(printErr)
		log.Printf("print failed session=%s printer=%s err=%v", s.id, printer, printErr)
	} else {
		s.message = fmt.Sprintf("Printed on %s", printer)
	}
	return record, printErr
}

// SelectPrinter makes name the active printer. Non-thermal printers are
// accepted with a warning message.
func (s *Session) SelectPrinter(name string) (models.Printer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Printer{}, store.ErrEmptyInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, printer := range s.printers {
		if printer.Name != name {
			continue
		}
		s.selected = name
		if printer.IsThermal {
			s.message = fmt.Sprintf("Printer %s selected", name)
		} else {
			s.message = fmt.Sprintf("Printer %s is not a thermal printer, receipts may not print correctly", name)
		}
		return printer, nil
	}
	return models.Printer{}, store.ErrPrinterNotFound
}

// RefreshPrinters reloads the listing from the bridge. The selection survives
// if the printer is still listed; otherwise the default heuristic picks again.
// On bridge failure the listing is empty and printing is disabled.
func (s *Session) RefreshPrinters(ctx context.Context) ([]models.Printer, error) {
	printers, err := s.client.ListPrinters(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.printers = printers
	if !hasPrinter(printers, s.selected) {
		s.selected = bridge.SelectDefault(printers)
	}
	switch {
	case err != nil:
		s.message = "Printer list unavailable: " + err.Error()
	case s.selected == "":
		s.message = "No printers found"
	default:
		s.message = fmt.Sprintf("Printer %s selected", s.selected)
	}
	return append([]models.Printer(nil), printers...), err
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		SessionID:       s.id,
		Username:        s.operator.Username,
		Tickets:         append([]models.Ticket{}, s.tickets...),
		Printers:        append([]models.Printer{}, s.printers...),
		SelectedPrinter: s.selected,
		Message:         s.message,
		Busy:            s.busy,
		ExpiresAt:       s.expiresAt,
	}
}

// History returns print attempts, newest first.
func (s *Session) History() []models.PrintRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PrintRecord{}, s.history...)
}

func (s *Session) Ticket(ref string) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(ref)
	if i < 0 {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	return s.tickets[i], nil
}

// Receipt returns the fields a print of ref would send right now.
func (s *Session) Receipt(ref string) (models.TicketFields, error) {
	ticket, err := s.Ticket(ref)
	if err != nil {
		return models.TicketFields{}, err
	}
	return receipt.Fields(ticket, s.opts.Location, s.opts.Now()), nil
}

func (s *Session) category(code string) (models.Category, bool) {
	for _, cat := range s.opts.Categories {
		if cat.Code == code {
			return cat, true
		}
	}
	return models.Category{}, false
}

func (s *Session) indexOf(ref string) int {
	for i, ticket := range s.tickets {
		if ticket.Ref == ref {
			return i
		}
	}
	return -1
}

// claimLocked checks the printer selection and takes the busy flag.
func (s *Session) claimLocked() (string, error) {
	if s.selected == "" {
		s.message = "Select a printer first"
		return "", store.ErrNoPrinterSelected
	}
	if s.busy {
		return "", store.ErrBusy
	}
	s.busy = true
	return s.selected, nil
}

func (s *Session) startPrintLocked(i int) (models.Ticket, error) {
	status, err := store.Transition("print", s.tickets[i].Status)
	if err != nil {
		return models.Ticket{}, err
	}
	s.tickets[i].Status = status
	return s.tickets[i], nil
}

func (s *Session) finishPrint(ticket models.Ticket, printer string, printErr error) models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	action := "printed"
	if printErr != nil {
		action = "failed"
	}
	if status, err := store.Transition(action, ticket.Status); err == nil {
		ticket.Status = status
	}
	ticket.Printer = printer
	// The ticket may have been cancelled while the bridge call was running.
	if i := s.indexOf(ticket.Ref); i >= 0 && s.tickets[i].Status == models.StatusPrinting {
		s.tickets[i].Status = ticket.Status
		s.tickets[i].Printer = printer
	}
	s.recordLocked(ticket.QRPayload, printer, printErr)
	s.message = TicketMessage(ticket, printErr)

	if printErr != nil {
		ticketsPrintFailed.Add(1)
		log.Printf("ticket print failed session=%s ticket=%s printer=%s err=%v", s.id, ticket.QRPayload, printer, printErr)
		return ticket
	}
	ticketsPrinted.Add(1)
	return ticket
}

// TicketMessage is the operator message for the outcome of printing ticket.
// It depends only on its arguments, so callers can rebuild it without reading
// the shared session message.
func TicketMessage(ticket models.Ticket, printErr error) string {
	if printErr != nil {
		return fmt.Sprintf("Ticket %s print failed: %s", ticket.QRPayload, printDetail(printErr))
	}
	return fmt.Sprintf("Ticket %s printed on %s", ticket.QRPayload, ticket.Printer)
}

func (s *Session) recordLocked(data, printer string, printErr error) models.PrintRecord {
	record := models.PrintRecord{
		Data:      data,
		Printer:   printer,
		PrintedAt: s.opts.Now(),
		OK:        printErr == nil,
	}
	if printErr != nil {
		record.Detail = printDetail(printErr)
	}
	s.history = append([]models.PrintRecord{record}, s.history...)
	if len(s.history) > historyLimit {
		s.history = s.history[:historyLimit]
	}
	return record
}

func (s *Session) publishPrint(ctx context.Context, ticket models.Ticket, printer string, printErr error) {
	if printErr != nil {
		s.publish(ctx, events.TypeTicketPrintFailed, ticket, printer, printDetail(printErr))
		return
	}
	s.publish(ctx, events.TypeTicketPrinted, ticket, printer, "")
}

func (s *Session) publish(ctx context.Context, eventType string, ticket models.Ticket, printer, detail string) {
	event := events.NewTicketEvent(eventType, s.id, ticket, s.opts.Now())
	event.Printer = printer
	event.Detail = detail
	if err := s.opts.Publisher.Publish(ctx, event); err != nil {
		log.Printf("event publish failed type=%s ticket=%s err=%v", eventType, ticket.QRPayload, err)
	}
}

func printDetail(err error) string {
	var dispatchErr *bridge.DispatchError
	if errors.As(err, &dispatchErr) {
		return dispatchErr.Detail
	}
	return err.Error()
}

func hasPrinter(printers []models.Printer, name string) bool {
	if name == "" {
		return false
	}
	for _, printer := range printers {
		if printer.Name == name {
			return true
		}
	}
	return false
}
