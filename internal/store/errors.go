package store

import "errors"

var (
	ErrNoPrinterSelected      = errors.New("no printer selected")
	ErrPrinterListUnavailable = errors.New("printer list unavailable")
	ErrPrintDispatchFailed    = errors.New("print dispatch failed")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmptyInput             = errors.New("required field is empty")
	ErrUnknownCategory        = errors.New("unknown category")
	ErrTicketNotFound         = errors.New("ticket not found")
	ErrInvalidState           = errors.New("invalid ticket state")
	ErrBusy                   = errors.New("operation in progress")
	ErrSessionNotFound        = errors.New("session not found")
	ErrPrinterNotFound        = errors.New("printer not found")
)
