package queueapi

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

const (
	mockDepartment     = "RS Wisuda UNPAM"
	mockTimestampStyle = "02/01/2006 15:04"
)

type Mock struct {
	now  func() time.Time
	intn func(n int) int
}

func NewMock() *Mock {
	return &Mock{now: time.Now, intn: rand.Intn}
}

func (m *Mock) NextQueue(ctx context.Context, serviceType string) (QueueData, error) {
	return QueueData{
		QueueNumber: fmt.Sprintf("A%03d", m.intn(999)+1),
		Department:  mockDepartment,
		ServiceType: serviceType,
		CreatedAt:   m.now().Format(mockTimestampStyle),
	}, nil
}

func (m *Mock) GetQueue(ctx context.Context, queueID string) (QueueData, error) {
	return QueueData{
		QueueNumber: queueID,
		Department:  "RS UNPAM",
		ServiceType: "Pemeriksaan Umum",
		CreatedAt:   m.now().Format(mockTimestampStyle),
	}, nil
}

func (m *Mock) ListQueues(ctx context.Context, filter Filter) ([]QueueData, error) {
	created := m.now().Format(mockTimestampStyle)
	queues := make([]QueueData, 0, 10)
	for i := 0; i < 10; i++ {
		service := "Pemeriksaan Umum"
		if i%2 == 1 {
			service = "Pemeriksaan Khusus"
		}
		if filter.ServiceType != "" && filter.ServiceType != service {
			continue
		}
		queues = append(queues, QueueData{
			QueueNumber: fmt.Sprintf("A%03d", i+1),
			Department:  mockDepartment,
			ServiceType: service,
			CreatedAt:   created,
		})
	}
	return queues, nil
}

func (m *Mock) UpdateStatus(ctx context.Context, queueID, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	return nil
}

func (m *Mock) Login(ctx context.Context, username, password string) (string, error) {
	return fmt.Sprintf("mock_token_%s_%d", username, m.now().UnixMilli()), nil
}
