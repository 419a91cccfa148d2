package app

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/ports"
	"github.com/subfusion/checkout/internal/checkout/journal"
)

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) CreateSession(ctx context.Context, req ports.SessionRequest) (ports.SessionResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(ports.SessionResponse)
	return resp, args.Error(1)
}

func (m *GatewayMock) Validate(ctx context.Context, valID string) (ports.Validation, error) {
	args := m.Called(ctx, valID)
	v, _ := args.Get(0).(ports.Validation)
	return v, args.Error(1)
}

type CodecMock struct {
	mock.Mock
}

func (m *CodecMock) Encode(s entity.OrderSnapshot) (string, error) {
	args := m.Called(s)
	return args.String(0), args.Error(1)
}

func (m *CodecMock) Decode(tok string) (entity.OrderSnapshot, error) {
	args := m.Called(tok)
	s, _ := args.Get(0).(entity.OrderSnapshot)
	return s, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Send(ctx context.Context, order entity.OrderSnapshot) (entity.Delivery, error) {
	args := m.Called(ctx, order)
	d, _ := args.Get(0).(entity.Delivery)
	return d, args.Error(1)
}

type IdempotencyMock struct {
	mock.Mock
}

func (m *IdempotencyMock) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *IdempotencyMock) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// journalRecorder keeps entries in memory.
type journalRecorder struct {
	mu      sync.Mutex
	entries []*journal.Entry
}

func (j *journalRecorder) Save(ctx context.Context, e *journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *journalRecorder) events() []journal.Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]journal.Event, len(j.entries))
	for i, e := range j.entries {
		out[i] = e.Event
	}
	return out
}
