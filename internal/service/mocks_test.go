package service

import (
	"context"
	"errors"
	"sync"

	"medreminder/internal/model"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================
//
// The components depend on repository interfaces, so each test swaps in a
// mock with canned data and optional function overrides.

type mockScheduleRepository struct {
	schedules []model.Schedule
	findFn    func(ctx context.Context, bucket string) ([]model.Schedule, error)

	findCalls []string
}

// FindByTimeOfDay behaves like the real stores: exact equality on TimeOfDay.
func (m *mockScheduleRepository) FindByTimeOfDay(ctx context.Context, bucket string) ([]model.Schedule, error) {
	m.findCalls = append(m.findCalls, bucket)
	if m.findFn != nil {
		return m.findFn(ctx, bucket)
	}

	var out []model.Schedule
	for _, s := range m.schedules {
		if s.TimeOfDay == bucket {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockIntakeRepository struct {
	mu sync.Mutex
	// taken maps scheduleID -> set of day keys with an intake record
	taken    map[string]map[string]bool
	existsFn func(ctx context.Context, scheduleID string, day model.Day) (bool, error)

	existsCalls int
}

func newMockIntakeRepository() *mockIntakeRepository {
	return &mockIntakeRepository{taken: make(map[string]map[string]bool)}
}

func (m *mockIntakeRepository) Record(scheduleID, dayKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken[scheduleID] == nil {
		m.taken[scheduleID] = make(map[string]bool)
	}
	m.taken[scheduleID][dayKey] = true
}

func (m *mockIntakeRepository) ExistsForDay(ctx context.Context, scheduleID string, day model.Day) (bool, error) {
	m.mu.Lock()
	m.existsCalls++
	m.mu.Unlock()

	if m.existsFn != nil {
		return m.existsFn(ctx, scheduleID, day)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.taken[scheduleID][day.Key], nil
}

// mockEndpointSource is one endpoint storage shape.
type mockEndpointSource struct {
	name   string
	tokens map[string][]string
	err    error
}

func (m *mockEndpointSource) Name() string { return m.name }

func (m *mockEndpointSource) EndpointsForUser(ctx context.Context, userID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tokens[userID], nil
}

type mockPruner struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (m *mockPruner) RemoveEndpoint(ctx context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, userID+"/"+token)
	return m.err
}

// =============================================================================
// MOCK TRANSPORT
// =============================================================================

type sendCall struct {
	Token        string
	Notification model.Notification
}

// mockTransport records every delivery attempt. Deliveries run concurrently,
// so it is guarded by a mutex.
type mockTransport struct {
	mu    sync.Mutex
	calls []sendCall
	// fail maps token -> error returned for that token
	fail map[string]error
	// block, when set, is waited on before each Send returns
	block chan struct{}
}

var errDeliveryFailed = errors.New("messaging/registration-token-not-registered")

func (m *mockTransport) Send(ctx context.Context, token string, n model.Notification) error {
	if m.block != nil {
		<-m.block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sendCall{Token: token, Notification: n})
	if err, ok := m.fail[token]; ok {
		return err
	}
	return nil
}

func (m *mockTransport) Calls() []sendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sendCall(nil), m.calls...)
}

func (m *mockTransport) TokensSent() map[string]int {
	out := make(map[string]int)
	for _, c := range m.Calls() {
		out[c.Token]++
	}
	return out
}
