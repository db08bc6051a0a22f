package assignment

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"renolead_backend/internal/events"
	"renolead_backend/internal/leads/domain"
	"renolead_backend/internal/leads/ports"
	"renolead_backend/internal/leads/repository"
	"renolead_backend/platform/apperr"
	"renolead_backend/platform/logger"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type fakeStore struct {
	mu          sync.Mutex
	leads       map[uuid.UUID]domain.Lead
	assignments map[uuid.UUID]domain.Assignment
	failInsert  map[uuid.UUID]bool
	markCalls   int
}

func newFakeStore(leads ...domain.Lead) *fakeStore {
	s := &fakeStore{
		leads:       map[uuid.UUID]domain.Lead{},
		assignments: map[uuid.UUID]domain.Assignment{},
		failInsert:  map[uuid.UUID]bool{},
	}
	for _, l := range leads {
		s.leads[l.ID] = l
	}
	return s
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) MarkAssigned(_ context.Context, id uuid.UUID, contractorID uuid.UUID, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	lead := f.leads[id]
	lead.Status = domain.StatusAssigned
	lead.AssignedContractorID = &contractorID
	lead.SentAt = &sentAt
	f.leads[id] = lead
	return nil
}

func (f *fakeStore) CreateAssignment(_ context.Context, p repository.CreateAssignmentParams) (domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert[p.ContractorID] {
		return domain.Assignment{}, apperr.Store("assignments.Create", errors.New("unique violation"))
	}
	a := domain.Assignment{
		ID:           uuid.New(),
		LeadID:       p.LeadID,
		ContractorID: p.ContractorID,
		Method:       p.Method,
		AssignedAt:   p.AssignedAt,
	}
	f.assignments[a.ID] = a
	return a, nil
}

func (f *fakeStore) MarkAssignmentEmailSent(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.assignments[id]
	a.EmailSent = true
	f.assignments[id] = a
	return nil
}

func (f *fakeStore) assignmentFor(contractorID uuid.UUID) (domain.Assignment, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assignments {
		if a.ContractorID == contractorID {
			return a, true
		}
	}
	return domain.Assignment{}, false
}

type fakeDirectory struct {
	contractors map[uuid.UUID]ports.Contractor
	eligible    []ports.Contractor
	lastLimit   int
}

func (f *fakeDirectory) GetContractorsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]ports.Contractor, error) {
	out := map[uuid.UUID]ports.Contractor{}
	for _, id := range ids {
		if c, ok := f.contractors[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeDirectory) GetContractorByEmail(_ context.Context, email string) (ports.Contractor, error) {
	for _, c := range f.contractors {
		if c.Email == email {
			return c, nil
		}
	}
	return ports.Contractor{}, apperr.NotFound("contractor not found")
}

func (f *fakeDirectory) FindEligibleContractors(_ context.Context, _ string, limit int) ([]ports.Contractor, error) {
	f.lastLimit = limit
	if len(f.eligible) > limit {
		return f.eligible[:limit], nil
	}
	return f.eligible, nil
}

type fakeStats struct {
	mu       sync.Mutex
	received []uuid.UUID
}

func (f *fakeStats) RecordLeadsReceived(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, ids...)
	return nil
}

func (f *fakeStats) RecordConversion(context.Context, uuid.UUID) error { return nil }

type fakeNotifier struct {
	mu     sync.Mutex
	failOn map[uuid.UUID]bool
	sent   []uuid.UUID
}

func (f *fakeNotifier) NotifyLeadAssigned(_ context.Context, c ports.Contractor, _ domain.Lead, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[c.ID] {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	f.sent = append(f.sent, c.ID)
	return nil
}

type fakeScorer struct {
	calls int
}

func (f *fakeScorer) Recalculate(context.Context, uuid.UUID) (domain.Scores, error) {
	f.calls++
	return domain.Scores{Overall: 55}, nil
}

type harness struct {
	svc      *Service
	store    *fakeStore
	dir      *fakeDirectory
	stats    *fakeStats
	notifier *fakeNotifier
	scorer   *fakeScorer
	bus      *events.InMemoryBus
}

func newHarness(lead domain.Lead, contractors ...ports.Contractor) *harness {
	log := logger.NewWithWriter("test", io.Discard)
	h := &harness{
		store:    newFakeStore(lead),
		dir:      &fakeDirectory{contractors: map[uuid.UUID]ports.Contractor{}},
		stats:    &fakeStats{},
		notifier: &fakeNotifier{failOn: map[uuid.UUID]bool{}},
		scorer:   &fakeScorer{},
		bus:      events.NewInMemoryBus(log),
	}
	for _, c := range contractors {
		h.dir.contractors[c.ID] = c
	}
	h.svc = New(h.store, h.dir, h.stats, h.notifier, h.scorer, h.bus, log, Options{
		Now: func() time.Time { return testNow },
	})
	return h
}

func newLead() domain.Lead {
	return domain.Lead{ID: uuid.New(), Status: domain.StatusNew, ZipCode: "01776", CreatedAt: testNow.Add(-time.Hour)}
}

func newContractor(name string) ports.Contractor {
	return ports.Contractor{ID: uuid.New(), Name: name, Email: name + "@contractors.test", IsActive: true}
}

var admin = domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}

func TestAssignManuallyPartialNotificationFailure(t *testing.T) {
	lead := newLead()
	c1, c2, c3 := newContractor("first"), newContractor("second"), newContractor("third")
	h := newHarness(lead, c1, c2, c3)
	h.notifier.failOn[c2.ID] = true

	var published events.LeadAssigned
	h.bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		published = e.(events.LeadAssigned)
		return nil
	}))

	result, err := h.svc.AssignManually(context.Background(), lead.ID, []uuid.UUID{c1.ID, c2.ID, c3.ID}, admin)
	if err != nil {
		t.Fatalf("AssignManually: %v", err)
	}
	h.bus.Wait()

	if result.Attempted != 3 || result.Succeeded != 2 {
		t.Fatalf("expected 2 of 3 successes, got %d of %d", result.Succeeded, result.Attempted)
	}
	if result.Outcomes[0].ContractorID != c1.ID || result.Outcomes[1].ContractorID != c2.ID || result.Outcomes[2].ContractorID != c3.ID {
		t.Fatalf("outcomes must keep input order")
	}
	if result.Outcomes[1].Success || result.Outcomes[1].Error != msgNotificationFailed {
		t.Fatalf("expected contractor 2 to fail notification, got %+v", result.Outcomes[1])
	}
	if !apperr.Is(result.Outcomes[1].Err(), apperr.KindNotification) {
		t.Fatalf("expected a notification error kind, got %v", result.Outcomes[1].Err())
	}

	// The failed contractor still has its assignment row, left unsent.
	a2, ok := h.store.assignmentFor(c2.ID)
	if !ok || a2.EmailSent {
		t.Fatalf("expected persisted unsent assignment for contractor 2, got %+v ok=%v", a2, ok)
	}
	if a1, _ := h.store.assignmentFor(c1.ID); !a1.EmailSent || a1.Method != domain.AssignmentManual {
		t.Fatalf("expected contractor 1 assignment sent and manual, got %+v", a1)
	}

	updated := h.store.leads[lead.ID]
	if updated.Status != domain.StatusAssigned {
		t.Fatalf("expected lead assigned, got %s", updated.Status)
	}
	// The first contractor in the input list is recorded, regardless of per-contractor outcomes.
	if updated.AssignedContractorID == nil || *updated.AssignedContractorID != c1.ID {
		t.Fatalf("expected assigned_contractor_id to be the first input contractor")
	}
	if updated.SentAt == nil || !updated.SentAt.Equal(testNow) {
		t.Fatalf("expected sent_at to be now, got %v", updated.SentAt)
	}
	if h.store.markCalls != 1 {
		t.Fatalf("expected exactly one lead write, got %d", h.store.markCalls)
	}

	if len(h.stats.received) != 2 {
		t.Fatalf("expected lead counts for the two successful contractors, got %v", h.stats.received)
	}
	if h.scorer.calls != 1 || result.Scores == nil {
		t.Fatalf("expected the lead to be rescored once")
	}
	if len(published.SucceededContractors) != 2 || len(published.FailedContractors) != 1 || published.FailedContractors[0] != c2.ID {
		t.Fatalf("unexpected event %+v", published)
	}
}

func TestAssignManuallyFirstContractorFailsStillRecordedAsAssigned(t *testing.T) {
	lead := newLead()
	c1, c2 := newContractor("first"), newContractor("second")
	h := newHarness(lead, c1, c2)
	h.notifier.failOn[c1.ID] = true

	result, err := h.svc.AssignManually(context.Background(), lead.ID, []uuid.UUID{c1.ID, c2.ID}, admin)
	if err != nil {
		t.Fatalf("AssignManually: %v", err)
	}
	if result.Succeeded != 1 {
		t.Fatalf("expected one success, got %d", result.Succeeded)
	}
	if got := h.store.leads[lead.ID].AssignedContractorID; got == nil || *got != c1.ID {
		t.Fatalf("expected first input contractor even though it failed")
	}
}

func TestAssignManuallyInsertFailureIsPerContractor(t *testing.T) {
	lead := newLead()
	c1, c2 := newContractor("first"), newContractor("second")
	h := newHarness(lead, c1, c2)
	h.store.failInsert[c1.ID] = true

	result, err := h.svc.AssignManually(context.Background(), lead.ID, []uuid.UUID{c1.ID, c2.ID}, admin)
	if err != nil {
		t.Fatalf("store failure on one contractor must not fail the batch: %v", err)
	}
	if result.Outcomes[0].Success || result.Outcomes[0].AssignmentID != nil || result.Outcomes[0].Error != msgAssignmentNotSaved {
		t.Fatalf("unexpected outcome for failed insert: %+v", result.Outcomes[0])
	}
	if !result.Outcomes[1].Success {
		t.Fatalf("expected second contractor to succeed")
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0] != c2.ID {
		t.Fatalf("expected only contractor 2 to be notified, got %v", h.notifier.sent)
	}
}

func TestAssignManuallyAllFailLeavesLeadUntouched(t *testing.T) {
	lead := newLead()
	c1 := newContractor("only")
	h := newHarness(lead, c1)
	h.notifier.failOn[c1.ID] = true

	result, err := h.svc.AssignManually(context.Background(), lead.ID, []uuid.UUID{c1.ID}, admin)
	if err != nil {
		t.Fatalf("AssignManually: %v", err)
	}
	if result.Succeeded != 0 || result.AssignedContractorID != nil {
		t.Fatalf("expected no successes, got %+v", result)
	}
	if h.store.markCalls != 0 || h.store.leads[lead.ID].Status != domain.StatusNew {
		t.Fatalf("lead must not change when every attempt fails")
	}
	if h.scorer.calls != 0 || len(h.stats.received) != 0 {
		t.Fatalf("no follow-up work expected")
	}
}

func TestAssignManuallyReportsUnresolvedContractors(t *testing.T) {
	lead := newLead()
	c1 := newContractor("known")
	missing := uuid.New()
	h := newHarness(lead, c1)

	result, err := h.svc.AssignManually(context.Background(), lead.ID, []uuid.UUID{missing, c1.ID, c1.ID}, admin)
	if err != nil {
		t.Fatalf("AssignManually: %v", err)
	}
	if result.Attempted != 1 || len(result.Unresolved) != 1 || result.Unresolved[0] != missing {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := h.store.leads[lead.ID].AssignedContractorID; got == nil || *got != c1.ID {
		t.Fatalf("expected first resolved contractor to be recorded")
	}
}

func TestAssignManuallyPreconditions(t *testing.T) {
	lead := newLead()
	c1 := newContractor("known")
	h := newHarness(lead, c1)
	ctx := context.Background()

	contractor := domain.Actor{UserID: uuid.New(), Role: domain.RoleContractor, Email: c1.Email}
	if _, err := h.svc.AssignManually(ctx, lead.ID, []uuid.UUID{c1.ID}, contractor); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}
	if _, err := h.svc.AssignManually(ctx, lead.ID, nil, admin); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty list, got %v", err)
	}
	if _, err := h.svc.AssignManually(ctx, uuid.New(), []uuid.UUID{c1.ID}, admin); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for missing lead, got %v", err)
	}
	if _, err := h.svc.AssignManually(ctx, lead.ID, []uuid.UUID{uuid.New()}, admin); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found when no contractor resolves, got %v", err)
	}
	if len(h.store.assignments) != 0 {
		t.Fatalf("rejected requests must not create assignments")
	}
}

func TestAssignManuallyManyContractorsConcurrently(t *testing.T) {
	lead := newLead()
	contractors := make([]ports.Contractor, 25)
	ids := make([]uuid.UUID, 25)
	for i := range contractors {
		contractors[i] = newContractor("c")
		ids[i] = contractors[i].ID
	}
	h := newHarness(lead, contractors...)

	result, err := h.svc.AssignManually(context.Background(), lead.ID, ids, admin)
	if err != nil {
		t.Fatalf("AssignManually: %v", err)
	}
	if result.Succeeded != 25 || len(h.store.assignments) != 25 {
		t.Fatalf("expected 25 assignments, got %d (%d rows)", result.Succeeded, len(h.store.assignments))
	}
	for i, o := range result.Outcomes {
		if o.ContractorID != ids[i] {
			t.Fatalf("outcome %d out of order", i)
		}
	}
}

func TestAssignAutomatically(t *testing.T) {
	lead := newLead()
	best, second := newContractor("best"), newContractor("second")
	h := newHarness(lead, best, second)
	h.dir.eligible = []ports.Contractor{best, second, newContractor("third"), newContractor("fourth")}

	result, err := h.svc.AssignAutomatically(context.Background(), lead.ID, domain.SystemActor())
	if err != nil {
		t.Fatalf("AssignAutomatically: %v", err)
	}
	if h.dir.lastLimit != defaultMaxAutoContractors || result.Attempted != defaultMaxAutoContractors {
		t.Fatalf("expected the default cap of %d, got limit %d attempted %d", defaultMaxAutoContractors, h.dir.lastLimit, result.Attempted)
	}
	if result.Method != domain.AssignmentAutomatic {
		t.Fatalf("expected automatic method")
	}
	if a, _ := h.store.assignmentFor(best.ID); a.Method != domain.AssignmentAutomatic {
		t.Fatalf("expected automatic assignment row, got %+v", a)
	}
	if got := h.store.leads[lead.ID].AssignedContractorID; got == nil || *got != best.ID {
		t.Fatalf("expected best contractor recorded")
	}
}

func TestAssignAutomaticallyNoEligibleContractors(t *testing.T) {
	lead := newLead()
	h := newHarness(lead)
	if _, err := h.svc.AssignAutomatically(context.Background(), lead.ID, admin); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAssignAutomaticallyRequiresNewLead(t *testing.T) {
	lead := newLead()
	lead.Status = domain.StatusContacted
	h := newHarness(lead, newContractor("x"))
	if _, err := h.svc.AssignAutomatically(context.Background(), lead.ID, admin); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
