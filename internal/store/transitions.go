package store

import "qms/kiosk-service/internal/models"

var transitionMap = map[string][]string{
	"print":   {models.StatusCreated, models.StatusPrinted, models.StatusPrintFailed},
	"printed": {models.StatusPrinting},
	"failed":  {models.StatusPrinting},
	"cancel":  {models.StatusCreated, models.StatusPrinting, models.StatusPrinted, models.StatusPrintFailed},
}

var transitionTarget = map[string]string{
	"print":   models.StatusPrinting,
	"printed": models.StatusPrinted,
	"failed":  models.StatusPrintFailed,
	"cancel":  models.StatusCancelled,
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// Transition returns the status a ticket moves to when action is applied,
// or ErrInvalidState when the action is not allowed from fromStatus.
func Transition(action, fromStatus string) (string, error) {
	if !ValidTransition(action, fromStatus) {
		return fromStatus, ErrInvalidState
	}
	return transitionTarget[action], nil
}
