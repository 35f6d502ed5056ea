package store

import (
	"context"

	"qms/kiosk-service/internal/models"
)

type OperatorStore interface {
	Authenticate(ctx context.Context, username, password string) (models.Operator, error)
}
