package queueapi

import (
	"context"

	"qms/kiosk-service/internal/models"
)

// OperatorStore authenticates kiosk operators against the queue API login endpoint.
type OperatorStore struct {
	client Client
}

func NewOperatorStore(client Client) *OperatorStore {
	return &OperatorStore{client: client}
}

func (s *OperatorStore) Authenticate(ctx context.Context, username, password string) (models.Operator, error) {
	if _, err := s.client.Login(ctx, username, password); err != nil {
		return models.Operator{}, err
	}
	return models.Operator{
		OperatorID: "api:" + username,
		Username:   username,
		Role:       "operator",
	}, nil
}
