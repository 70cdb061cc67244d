package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/SscSPs/library_circulation_app/internal/platform/events"
	"github.com/SscSPs/library_circulation_app/internal/platform/notify"
	"github.com/SscSPs/library_circulation_app/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	name string
	mu   sync.Mutex
	got  []domain.EventType
	err  error
	boom bool
}

func (s *recordingSubscriber) Name() string { return s.name }

func (s *recordingSubscriber) Handle(ctx context.Context, event domain.CirculationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, event.Type)
	if s.boom {
		panic("subscriber exploded")
	}
	return s.err
}

func (s *recordingSubscriber) Got() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.EventType(nil), s.got...)
}

func TestDispatcher_DeliversInOrderDespiteFailingSubscribers(t *testing.T) {
	failing := &recordingSubscriber{name: "failing", err: errors.New("sink down")}
	panicking := &recordingSubscriber{name: "panicking", boom: true}
	healthy := &recordingSubscriber{name: "healthy"}

	d := events.NewDispatcher(8, nil, failing, panicking, healthy)
	d.Start()

	d.Publish(context.Background(), domain.CirculationEvent{Type: domain.EventLoanIssued})
	d.Publish(context.Background(), domain.CirculationEvent{Type: domain.EventLoanReturned})
	require.NoError(t, d.Close(context.Background()))

	want := []domain.EventType{domain.EventLoanIssued, domain.EventLoanReturned}
	assert.Equal(t, want, failing.Got())
	assert.Equal(t, want, panicking.Got())
	assert.Equal(t, want, healthy.Got())
}

func TestDispatcher_DropsWhenFullOrClosed(t *testing.T) {
	sub := &recordingSubscriber{name: "sub"}
	d := events.NewDispatcher(1, nil, sub)

	// worker not running yet: the second publish finds the queue full
	d.Publish(context.Background(), domain.CirculationEvent{Type: domain.EventLoanIssued})
	d.Publish(context.Background(), domain.CirculationEvent{Type: domain.EventLoanRenewed})

	d.Start()
	require.NoError(t, d.Close(context.Background()))
	d.Publish(context.Background(), domain.CirculationEvent{Type: domain.EventFineWaived})

	assert.Equal(t, []domain.EventType{domain.EventLoanIssued}, sub.Got())
}

func TestAuditSubscriber_WritesEntry(t *testing.T) {
	store := memory.NewStore()
	sub := events.AuditSubscriber{Repo: store.Repositories().AuditRepo}
	at := time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, sub.Handle(context.Background(), domain.CirculationEvent{
		Type:        domain.EventFinesCollected,
		Module:      domain.ModuleFines,
		ActorID:     "staff-1",
		Description: "Collected 6.00",
		Payload:     map[string]any{"receipt_id": "RCP-1"},
		OccurredAt:  at,
	}))

	entries := store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "fine.collected", entries[0].ActionType)
	assert.Equal(t, domain.ModuleFines, entries[0].Module)
	assert.Equal(t, "staff-1", entries[0].ActorID)
	assert.Equal(t, "RCP-1", entries[0].Metadata["receipt_id"])
	assert.True(t, at.Equal(entries[0].CreatedAt))
	assert.NotEmpty(t, entries[0].AuditID)
}

type MockReceiptSender struct {
	mock.Mock
}

func (m *MockReceiptSender) SendReceipt(ctx context.Context, kind notify.Kind, borrower *domain.Borrower, details map[string]any) error {
	args := m.Called(ctx, kind, borrower, details)
	return args.Error(0)
}

func TestReceiptSubscriber_OnlyForRecipientEvents(t *testing.T) {
	ctx := context.Background()
	b := &domain.Borrower{BorrowerID: "stu-1", Email: "a@example.edu"}
	payload := map[string]any{"loan_id": "l-1"}

	sender := new(MockReceiptSender)
	sender.On("SendReceipt", ctx, notify.KindReturn, b, payload).Return(nil).Once()
	sender.On("SendReceipt", ctx, notify.KindPayment, b, payload).Return(nil).Once()
	sub := events.ReceiptSubscriber{Notifier: sender}

	require.NoError(t, sub.Handle(ctx, domain.CirculationEvent{Type: domain.EventLoanReturned, Recipient: b, Payload: payload}))
	require.NoError(t, sub.Handle(ctx, domain.CirculationEvent{Type: domain.EventLoanReturned, Payload: payload}))
	require.NoError(t, sub.Handle(ctx, domain.CirculationEvent{Type: domain.EventFinesCollected, Recipient: b, Payload: payload}))
	require.NoError(t, sub.Handle(ctx, domain.CirculationEvent{Type: domain.EventFinesCollected, Payload: payload}))
	require.NoError(t, sub.Handle(ctx, domain.CirculationEvent{Type: domain.EventFineWaived, Recipient: b}))

	sender.AssertExpectations(t)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, eventType string, payload any) error {
	args := m.Called(ctx, eventType, payload)
	return args.Error(0)
}

func TestRealtimeSubscriber_ForwardsEventType(t *testing.T) {
	ctx := context.Background()
	event := domain.CirculationEvent{Type: domain.EventLoanRenewed, StudentID: "stu-1"}

	hub := new(MockBroadcaster)
	hub.On("Broadcast", ctx, "loan.renewed", event).Return(nil).Once()

	require.NoError(t, events.RealtimeSubscriber{Hub: hub}.Handle(ctx, event))
	hub.AssertExpectations(t)
}
