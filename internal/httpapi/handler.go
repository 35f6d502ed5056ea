package httpapi

import (
	"encoding/json"
	"errors"
	"expvar"
	"log"
	"net/http"
	"strings"

	"qms/kiosk-service/internal/models"
	"qms/kiosk-service/internal/queueapi"
	"qms/kiosk-service/internal/receipt"
	"qms/kiosk-service/internal/session"
	"qms/kiosk-service/internal/store"
)

type Handler struct {
	sessions *session.Manager
	qrSize   int
}

type Options struct {
	QRSize int
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	session.State
	OperatorID string `json:"operator_id"`
}

type selectPrinterRequest struct {
	Name string `json:"name"`
}

type takeTicketRequest struct {
	Category string `json:"category"`
}

type printRequest struct {
	Data string `json:"data"`
}

type nextQueueRequest struct {
	ServiceType string `json:"service_type"`
}

type queueStatusRequest struct {
	Status string `json:"status"`
}

type printersResponse struct {
	Printers        []models.Printer `json:"printers"`
	SelectedPrinter string           `json:"selected_printer"`
	Message         string           `json:"message"`
}

type ticketResponse struct {
	Ticket  models.Ticket `json:"ticket"`
	Message string        `json:"message"`
}

type receiptResponse struct {
	Fields  models.TicketFields `json:"fields"`
	Text    string              `json:"text"`
	QRImage string              `json:"qr_image_url"`
}

type queuePrintResponse struct {
	Queue queueapi.QueueData `json:"queue"`
	Print models.PrintRecord `json:"print"`
}

type errorResponse struct {
	RequestID string              `json:"request_id"`
	Error     responseError       `json:"error"`
	Ticket    *models.Ticket      `json:"ticket,omitempty"`
	Print     *models.PrintRecord `json:"print,omitempty"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(sessions *session.Manager, options Options) *Handler {
	qrSize := options.QRSize
	if qrSize <= 0 {
		qrSize = receipt.DefaultQRSize
	}
	return &Handler{
		sessions: sessions,
		qrSize:   qrSize,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/logout", h.handleLogout)
	mux.HandleFunc("/api/categories", h.handleCategories)
	mux.HandleFunc("/api/printers", h.handlePrinters)
	mux.HandleFunc("/api/printers/refresh", h.handleRefreshPrinters)
	mux.HandleFunc("/api/printers/select", h.handleSelectPrinter)
	mux.HandleFunc("/api/printers/status", h.handlePrinterStatus)
	mux.HandleFunc("/api/printers/test", h.handleTestPrint)
	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/", h.handleTicketActions)
	mux.HandleFunc("/api/print", h.handlePrint)
	mux.HandleFunc("/api/history", h.handleHistory)
	mux.HandleFunc("/api/queue", h.handleQueues)
	mux.HandleFunc("/api/queue/next", h.handleNextQueue)
	mux.HandleFunc("/api/queue/", h.handleQueueActions)
	return AuthMiddleware(h.sessions, mux)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	sess, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, message)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		State:      sess.Snapshot(),
		OperatorID: sess.Operator().OperatorID,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	h.sessions.Logout(sess.ID())
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": h.sessions.Categories()})
}

func (h *Handler) handlePrinters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	writePrinters(w, sess.Snapshot())
}

// handleRefreshPrinters always answers 200: an unreachable bridge shows up as
// an empty listing plus the operator message.
func (h *Handler) handleRefreshPrinters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if _, err := sess.RefreshPrinters(r.Context()); err != nil && !errors.Is(err, store.ErrPrinterListUnavailable) {
		status, code, message := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, message)
		return
	}
	writePrinters(w, sess.Snapshot())
}

func (h *Handler) handleSelectPrinter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req selectPrinterRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if _, err := sess.SelectPrinter(req.Name); err != nil {
		status, code, message := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, message)
		return
	}
	writePrinters(w, sess.Snapshot())
}

func (h *Handler) handlePrinterStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	printer, err := sess.CheckPrinter(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, message)
		return
	}
	writeJSON(w, http.StatusOK, printer)
}

func (h *Handler) handleTestPrint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	record, err := sess.PrintTest(r.Context())
	writePrintResult(w, r, record, err)
}

func writePrinters(w http.ResponseWriter, state session.State) {
	writeJSON(w, http.StatusOK, printersResponse{
		Printers:        state.Printers,
		SelectedPrinter: state.SelectedPrinter,
		Message:         state.Message,
	})
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, sess.Snapshot())
	case http.MethodPost:
		var req takeTicketRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		ticket, err := sess.TakeTicket(r.Context(), req.Category)
		h.writeTicketResult(w, r, ticket, err)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleTicketActions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "receipt":
		h.handleReceipt(w, r, sess, parts[0])
	case len(parts) == 3 && parts[1] == "actions":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch parts[2] {
		case "reprint":
			ticket, err := sess.Reprint(r.Context(), parts[0])
			h.writeTicketResult(w, r, ticket, err)
		case "cancel":
			removed := sess.Cancel(r.Context(), parts[0])
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"ticket_ref": parts[0],
				"removed":    removed,
				"tickets":    sess.Snapshot().Tickets,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request, sess *session.Session, ref string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fields, err := sess.Receipt(ref)
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, requestIDFromRequest(r), status, code, message)
		return
	}
	if r.URL.Query().Get("format") == "qr" {
		png, err := receipt.QRPNG(fields.QRData, h.qrSize)
		if err != nil {
			log.Printf("qr encode failed ticket=%s err=%v", fields.QRData, err)
			writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "internal_error", "qr encoding failed")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{
		Fields:  fields,
		Text:    receipt.Text(fields),
		QRImage: receipt.PreviewURL(fields.QRData, h.qrSize),
	})
}

// writeTicketResult reports a take or reprint. A dispatch failure still
// carries the ticket, which stays in the session as print_failed.
func (h *Handler) writeTicketResult(w http.ResponseWriter, r *http.Request, ticket models.Ticket, err error) {
	message := session.TicketMessage(ticket, err)
	if err == nil {
		writeJSON(w, http.StatusOK, ticketResponse{Ticket: ticket, Message: message})
		return
	}
	status, code, errMessage := mapError(err)
	if errors.Is(err, store.ErrPrintDispatchFailed) {
		writeJSON(w, status, errorResponse{
			RequestID: requestIDFromRequest(r),
			Error:     responseError{Code: code, Message: message},
			Ticket:    &ticket,
		})
		return
	}
	writeError(w, requestIDFromRequest(r), status, code, errMessage)
}

func (h *Handler) handlePrint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req printRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	record, err := sess.PrintText(r.Context(), req.Data)
	writePrintResult(w, r, record, err)
}

func writePrintResult(w http.ResponseWriter, r *http.Request, record models.PrintRecord, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, record)
		return
	}
	status, code, message := mapError(err)
	if errors.Is(err, store.ErrPrintDispatchFailed) {
		writeJSON(w, status, errorResponse{
			RequestID: requestIDFromRequest(r),
			Error:     responseError{Code: code, Message: message},
			Print:     &record,
		})
		return
	}
	writeError(w, requestIDFromRequest(r), status, code, message)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": sess.History()})
}

func (h *Handler) handleQueues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	client, ok := h.requireQueueAPI(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	filter := queueapi.Filter{
		Date:        strings.TrimSpace(query.Get("date")),
		Status:      strings.TrimSpace(query.Get("status")),
		ServiceType: strings.TrimSpace(query.Get("service_type")),
	}
	if filter.Status != "" && !queueapi.ValidStatus(filter.Status) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "unknown queue status")
		return
	}
	queues, err := client.ListQueues(r.Context(), filter)
	if err != nil {
		writeQueueError(w, r, err)
		return
	}
	if queues == nil {
		queues = []queueapi.QueueData{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"queues": queues})
}

// handleNextQueue asks the queue API for the next number and prints it on
// the session printer.
func (h *Handler) handleNextQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	client, ok := h.requireQueueAPI(w, r)
	if !ok {
		return
	}
	var req nextQueueRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.ServiceType = strings.TrimSpace(req.ServiceType)
	if req.ServiceType == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "service_type is required")
		return
	}
	if sess.Snapshot().SelectedPrinter == "" {
		status, code, message := mapError(store.ErrNoPrinterSelected)
		writeError(w, requestIDFromRequest(r), status, code, message)
		return
	}
	queue, err := client.NextQueue(r.Context(), req.ServiceType)
	if err != nil {
		writeQueueError(w, r, err)
		return
	}
	record, err := sess.PrintQueue(r.Context(), queue)
	if err != nil {
		writePrintResult(w, r, record, err)
		return
	}
	writeJSON(w, http.StatusOK, queuePrintResponse{Queue: queue, Print: record})
}

func (h *Handler) handleQueueActions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/queue/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	client, ok := h.requireQueueAPI(w, r)
	if !ok {
		return
	}

	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		queue, err := client.GetQueue(r.Context(), parts[0])
		if err != nil {
			writeQueueError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, queue)
	case len(parts) == 2 && parts[1] == "status":
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req queueStatusRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if err := client.UpdateStatus(r.Context(), parts[0], strings.TrimSpace(req.Status)); err != nil {
			writeQueueError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"queue_number": parts[0], "status": req.Status})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) requireQueueAPI(w http.ResponseWriter, r *http.Request) (queueapi.Client, bool) {
	client := h.sessions.QueueAPI()
	if client == nil {
		writeError(w, requestIDFromRequest(r), http.StatusNotImplemented, "queue_api_disabled", "queue api is not configured")
		return nil, false
	}
	return client, true
}

func writeQueueError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, queueapi.ErrInvalidStatus) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "unknown queue status")
		return
	}
	log.Printf("queue api error request_id=%s err=%v", requestIDFromRequest(r), err)
	writeError(w, requestIDFromRequest(r), http.StatusBadGateway, "queue_api_error", err.Error())
}

func decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrEmptyInput):
		return http.StatusBadRequest, "invalid_request", "required field is empty"
	case errors.Is(err, store.ErrUnknownCategory):
		return http.StatusBadRequest, "invalid_request", "unknown category"
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid username or password"
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid session"
	case errors.Is(err, store.ErrNoPrinterSelected):
		return http.StatusConflict, "no_printer_selected", "select a printer first"
	case errors.Is(err, store.ErrBusy):
		return http.StatusConflict, "busy", "another print is in progress"
	case errors.Is(err, store.ErrPrinterNotFound):
		return http.StatusNotFound, "printer_not_found", "printer not found"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	case errors.Is(err, store.ErrPrinterListUnavailable):
		return http.StatusBadGateway, "bridge_unavailable", "print bridge unavailable"
	case errors.Is(err, store.ErrPrintDispatchFailed):
		return http.StatusBadGateway, "print_failed", err.Error()
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
