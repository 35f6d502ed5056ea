package stub

import (
	"context"
	"strings"

	"qms/kiosk-service/internal/models"
	"qms/kiosk-service/internal/store"
)

const minPasswordLength = 3

// Store accepts any username whose password has at least three characters.
// It stands in for the operator directory on kiosks without a database.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Authenticate(ctx context.Context, username, password string) (models.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < minPasswordLength {
		return models.Operator{}, store.ErrInvalidCredentials
	}
	return models.Operator{
		OperatorID: "stub:" + strings.ToLower(username),
		Username:   username,
		Role:       "operator",
	}, nil
}
