package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/outing-coordinator/internal/model"
	"github.com/iliyamo/outing-coordinator/internal/queue"
	"github.com/iliyamo/outing-coordinator/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ActivityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	store *memory.Store
	svc   *Lifecycle
	pub   *recordingPublisher
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		pub:   &recordingPublisher{},
		clock: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
	var seq atomic.Int64
	f.svc = NewLifecycle(f.store.Outings(), f.store.InterestRequests(),
		WithPublisher(f.pub),
		// every call advances the clock so created_at ordering is strict
		WithClock(func() time.Time { return f.clock.Add(time.Duration(seq.Load()) * time.Second) }),
		WithIDGenerator(func() string { return fmt.Sprintf("id-%03d", seq.Add(1)) }),
	)
	return f
}

func (f *fixture) outing(t *testing.T, host, title string) *model.Outing {
	t.Helper()
	o, err := f.svc.CreateOuting(context.Background(), host, CreateOutingInput{
		Title: title, ActivityType: "coffee", DateTime: "2026-10-20T09:00",
	})
	require.NoError(t, err)
	return o
}

func TestCreateOutingValidatesRequiredFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateOuting(context.Background(), "host", CreateOutingInput{Title: "  ", ActivityType: "x", DateTime: "y"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateOuting(context.Background(), "", CreateOutingInput{Title: "a", ActivityType: "b", DateTime: "c"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCreateOutingDefaults(t *testing.T) {
	f := newFixture(t)
	blank := "   "
	o, err := f.svc.CreateOuting(context.Background(), "host", CreateOutingInput{
		Title: " Coffee ", ActivityType: "coffee", DateTime: "fri", Location: &blank,
	})
	require.NoError(t, err)
	assert.Equal(t, "Coffee", o.Title)
	assert.Nil(t, o.Location)
	assert.False(t, o.IsClosed)
	assert.Equal(t, model.OutingModeInPerson, o.OutingMode)
	assert.Equal(t, "host", o.HostUserID)
	assert.Equal(t, []string{queue.EventOutingCreated}, f.pub.types())
}

func TestCreateInterestRequestOnClosedOutingAlwaysFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.outing(t, "host", "Coffee")
	require.NoError(t, f.svc.CloseOuting(ctx, "host", o.ID))

	for _, who := range []string{"guest", "host", "stranger"} {
		_, err := f.svc.CreateInterestRequest(ctx, who, o.ID)
		assert.ErrorIs(t, err, ErrOutingClosed, who)
	}
}

func TestCreateInterestRequestErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateInterestRequest(ctx, "guest", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateInterestRequest(ctx, "guest", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "outing not found", err.Error())
}

func TestDuplicateInterestRequestsAreKept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.outing(t, "host", "Coffee")

	a, err := f.svc.CreateInterestRequest(ctx, "guest", o.ID)
	require.NoError(t, err)
	b, err := f.svc.CreateInterestRequest(ctx, "guest", o.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	list, err := f.svc.ListInterestRequestsForOuting(ctx, "host", o.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDecideTwiceYieldsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.outing(t, "host", "Coffee")
	ir, err := f.svc.CreateInterestRequest(ctx, "guest", o.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DecideInterestRequest(ctx, "host", ir.ID, model.StatusAccepted))
	assert.ErrorIs(t, f.svc.DecideInterestRequest(ctx, "host", ir.ID, model.StatusAccepted), ErrConflict)
	assert.ErrorIs(t, f.svc.DecideInterestRequest(ctx, "host", ir.ID, model.StatusRejected), ErrConflict)

	got, err := f.store.InterestRequests().GetByID(ctx, ir.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, got.Status)
}

func TestDecideRejectsInvalidStatus(t *testing.T) {
	f := newFixture(t)
	for _, s := range []model.RequestStatus{"", model.StatusPending, "maybe"} {
		err := f.svc.DecideInterestRequest(context.Background(), "host", "whatever", s)
		assert.ErrorIs(t, err, ErrInvalidStatus)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestDecideByNonHostOrUnknownIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.outing(t, "host", "Coffee")
	ir, err := f.svc.CreateInterestRequest(ctx, "guest", o.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DecideInterestRequest(ctx, "guest", ir.ID, model.StatusAccepted), ErrConflict)
	assert.ErrorIs(t, f.svc.DecideInterestRequest(ctx, "host", "does-not-exist", model.StatusAccepted), ErrConflict)

	got, err := f.store.InterestRequests().GetByID(ctx, ir.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestConcurrentDecisionsHaveExactlyOneWinner(t *testing.T) {
	for round := 0; round < 50; round++ {
		f := newFixture(t)
		ctx := context.Background()
		o := f.outing(t, "host", "Coffee")
		ir, err := f.svc.CreateInterestRequest(ctx, "guest", o.ID)
		require.NoError(t, err)

		statuses := []model.RequestStatus{model.StatusAccepted, model.StatusRejected}
		errs := make([]error, len(statuses))
		var start, done sync.WaitGroup
		start.Add(1)
		for i, s := range statuses {
			done.Add(1)
			go func(i int, s model.RequestStatus) {
				defer done.Done()
				start.Wait()
				errs[i] = f.svc.DecideInterestRequest(ctx, "host", ir.ID, s)
			}(i, s)
		}
		start.Done()
		done.Wait()

		winners := 0
		var winner model.RequestStatus
		for i, err := range errs {
			if err == nil {
				winners++
				winner = statuses[i]
				continue
			}
			require.ErrorIs(t, err, ErrConflict)
		}
		require.Equal(t, 1, winners)

		got, err := f.store.InterestRequests().GetByID(ctx, ir.ID)
		require.NoError(t, err)
		require.Equal(t, winner, got.Status)
	}
}

func TestCloseOutingByNonHostIsForbiddenAndDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.outing(t, "host", "Coffee")

	assert.ErrorIs(t, f.svc.CloseOuting(ctx, "guest", o.ID), ErrForbidden)
	got, err := f.store.Outings().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, got.IsClosed)

	assert.ErrorIs(t, f.svc.CloseOuting(ctx, "host", "missing"), ErrNotFound)
}

func TestCloseOutingIsIdempotentAndPreservesRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.outing(t, "host", "Coffee")
	ir, err := f.svc.CreateInterestRequest(ctx, "guest", o.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.CloseOuting(ctx, "host", o.ID))
	require.NoError(t, f.svc.CloseOuting(ctx, "host", o.ID))

	list, err := f.svc.ListInterestRequestsForOuting(ctx, "host", o.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.StatusPending, list[0].Status)

	// the host can still decide after closing
	require.NoError(t, f.svc.DecideInterestRequest(ctx, "host", ir.ID, model.StatusAccepted))

	// one close event even though close was called twice
	assert.Equal(t, []string{
		queue.EventOutingCreated, queue.EventInterestRequested, queue.EventOutingClosed, queue.EventInterestDecided,
	}, f.pub.types())
}

func TestListInterestRequestsForOutingAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.outing(t, "host", "Coffee")

	_, err := f.svc.ListInterestRequestsForOuting(ctx, "guest", o.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.ListInterestRequestsForOuting(ctx, "host", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListInterestRequestsForOutingOldestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.outing(t, "host", "Coffee")
	first, err := f.svc.CreateInterestRequest(ctx, "g1", o.ID)
	require.NoError(t, err)
	second, err := f.svc.CreateInterestRequest(ctx, "g2", o.ID)
	require.NoError(t, err)

	list, err := f.svc.ListInterestRequestsForOuting(ctx, "host", o.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestListVisibleOutings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open1 := f.outing(t, "h1", "Open one")
	closedTouched := f.outing(t, "h1", "Closed, requested")
	closedHosted := f.outing(t, "g", "Closed, hosted by g")
	closedOther := f.outing(t, "h2", "Closed, unrelated")
	open2 := f.outing(t, "h2", "Open two")

	_, err := f.svc.CreateInterestRequest(ctx, "g", closedTouched.ID)
	require.NoError(t, err)
	for _, o := range []*model.Outing{closedTouched, closedHosted, closedOther} {
		require.NoError(t, f.svc.CloseOuting(ctx, o.HostUserID, o.ID))
	}

	got, err := f.svc.ListVisibleOutings(ctx, "g")
	require.NoError(t, err)
	var ids []string
	for _, o := range got {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{open2.ID, closedHosted.ID, closedTouched.ID, open1.ID}, ids)

	stranger, err := f.svc.ListVisibleOutings(ctx, "nobody")
	require.NoError(t, err)
	require.Len(t, stranger, 2)
	assert.Equal(t, open2.ID, stranger[0].ID)
	assert.Equal(t, open1.ID, stranger[1].ID)
}

func TestListMyInterestRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.outing(t, "h", "A")
	b := f.outing(t, "h", "B")
	_, err := f.svc.CreateInterestRequest(ctx, "g", a.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateInterestRequest(ctx, "g", b.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.CloseOuting(ctx, "h", b.ID))

	mine, err := f.svc.ListMyInterestRequests(ctx, "g")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "B", mine[0].Title)
	assert.True(t, mine[0].IsClosed)
	assert.Equal(t, "A", mine[1].Title)
	assert.False(t, mine[1].IsClosed)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	o, err := f.svc.CreateOuting(context.Background(), "host", CreateOutingInput{Title: "a", ActivityType: "b", DateTime: "c"})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
}

type failingOutings struct{ OutingStore }

func (failingOutings) GetByID(context.Context, string) (*model.Outing, error) {
	return nil, errors.New("db gone")
}

func TestStorageFailureIsNotATaxonomyError(t *testing.T) {
	store := memory.New()
	svc := NewLifecycle(failingOutings{store.Outings()}, store.InterestRequests())
	err := svc.CloseOuting(context.Background(), "host", "o")
	require.Error(t, err)
	for _, kind := range []error{ErrNotFound, ErrForbidden, ErrConflict, ErrValidation, ErrOutingClosed} {
		assert.NotErrorIs(t, err, kind)
	}
}

type lookupFailingRequests struct{ InterestStore }

func (lookupFailingRequests) GetByID(context.Context, string) (*model.InterestRequest, error) {
	return nil, errors.New("replica lag")
}

func TestDecisionEventSkippedWhenRequestLookupFails(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	svc := NewLifecycle(store.Outings(), lookupFailingRequests{store.InterestRequests()}, WithPublisher(pub))
	ctx := context.Background()

	o, err := svc.CreateOuting(ctx, "host", CreateOutingInput{Title: "t", ActivityType: "a", DateTime: "d"})
	require.NoError(t, err)
	ir, err := svc.CreateInterestRequest(ctx, "guest", o.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DecideInterestRequest(ctx, "host", ir.ID, model.StatusRejected))
	assert.Equal(t, []string{queue.EventOutingCreated, queue.EventInterestRequested}, pub.types())
	for _, ev := range pub.events {
		assert.NotEmpty(t, ev.OutingID)
	}
}

func TestDecisionEventCarriesOutingID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.outing(t, "host", "Coffee")
	ir, err := f.svc.CreateInterestRequest(ctx, "guest", o.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.DecideInterestRequest(ctx, "host", ir.ID, model.StatusAccepted))

	last := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, queue.EventInterestDecided, last.Type)
	assert.Equal(t, o.ID, last.OutingID)
	assert.Equal(t, ir.ID, last.RequestID)
}
