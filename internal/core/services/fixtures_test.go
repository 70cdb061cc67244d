package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	portssvc "github.com/SscSPs/library_circulation_app/internal/core/ports/services"
	"github.com/SscSPs/library_circulation_app/internal/core/services"
	"github.com/SscSPs/library_circulation_app/internal/platform/config"
	"github.com/SscSPs/library_circulation_app/internal/repositories/memory"
	"github.com/stretchr/testify/require"
)

const (
	testStaffID    = "staff-1"
	testStudentID  = "stu-1"
	testCatalogRef = "cat-go"
)

// fakeClock is a settable time source shared by every service of a fixture.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.CirculationEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.CirculationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) OfType(t domain.EventType) []domain.CirculationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.CirculationEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) Last() domain.CirculationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type fixture struct {
	store     *memory.Store
	clock     *fakeClock
	events    *recordingPublisher
	container *portssvc.ServiceContainer
}

var fixtureStart = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

// newFixture seeds one active student, one title and five Available copies
// (ACC-001..ACC-005) and wires the services over the in-memory store.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.PutBorrower(domain.Borrower{
		BorrowerID: testStudentID,
		Name:       "Asha Rao",
		RegNo:      "REG-001",
		DeptName:   "Physics",
		Email:      "asha@example.edu",
		Status:     domain.BorrowerActive,
	})
	store.PutCatalogEntry(domain.CatalogMeta{
		CatalogRef: testCatalogRef,
		Title:      "The Go Programming Language",
		ISBN:       "9780134190440",
		Author:     "Donovan, Kernighan",
		Publisher:  "Addison-Wesley",
	})
	for _, acc := range []string{"ACC-001", "ACC-002", "ACC-003", "ACC-004", "ACC-005"} {
		require.NoError(t, store.PutCopy(domain.Copy{
			CopyID:          "copy-" + acc,
			CatalogRef:      testCatalogRef,
			AccessionNumber: acc,
			Status:          domain.CopyAvailable,
		}))
	}

	clock := &fakeClock{now: fixtureStart}
	events := &recordingPublisher{}
	container := services.NewServiceContainer(&config.Config{}, store.Repositories(), events, services.WithClock(clock.Now))

	return &fixture{store: store, clock: clock, events: events, container: container}
}

func (f *fixture) setPolicy(t *testing.T, class, raw string) {
	t.Helper()
	f.store.PutSetting(services.PolicyKeyPrefix+class, raw)
}

func (f *fixture) setFinePolicy(t *testing.T, raw string) {
	t.Helper()
	f.store.PutSetting(services.FinePolicyKey, raw)
}

// copyStatus reads a copy's committed status.
func (f *fixture) copyStatus(t *testing.T, copyID string) domain.CopyStatus {
	t.Helper()
	c, err := f.store.Repositories().CopyRepo.FindCopyByID(context.Background(), copyID)
	require.NoError(t, err)
	return c.Status
}

// assertLoanCopyInvariant checks that every Issued copy has exactly one open loan and
// every open loan points at an Issued copy.
func (f *fixture) assertLoanCopyInvariant(t *testing.T, copyIDs ...string) {
	t.Helper()
	ctx := context.Background()
	loans, err := f.store.Repositories().LoanRepo.ListActiveLoans(ctx, domain.LoanFilter{AsOf: f.clock.Now()})
	require.NoError(t, err)

	open := make(map[string]int)
	for _, l := range loans {
		open[l.CopyID]++
	}
	for _, id := range copyIDs {
		status := f.copyStatus(t, id)
		if status == domain.CopyIssued {
			require.Equalf(t, 1, open[id], "issued copy %s must have exactly one open loan", id)
		} else {
			require.Zerof(t, open[id], "copy %s is %s but has an open loan", id, status)
		}
	}
}

func allCopyIDs() []string {
	return []string{"copy-ACC-001", "copy-ACC-002", "copy-ACC-003", "copy-ACC-004", "copy-ACC-005"}
}
