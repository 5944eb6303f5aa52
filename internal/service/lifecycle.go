// Package service holds the request lifecycle engine: creation and
// decision of interest requests, outing creation and closing, and the
// authorization rules that gate each of them.  Every method takes the
// caller identity as an explicit argument.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/outing-coordinator/internal/logging"
	"github.com/iliyamo/outing-coordinator/internal/metrics"
	"github.com/iliyamo/outing-coordinator/internal/model"
	"github.com/iliyamo/outing-coordinator/internal/queue"
	"github.com/iliyamo/outing-coordinator/internal/repository"
	"github.com/iliyamo/outing-coordinator/internal/visibility"
)

// OutingStore is the persistence contract for outings.  GetByID must
// return repository.ErrOutingNotFound for unknown ids.
type OutingStore interface {
	Create(ctx context.Context, o *model.Outing) error
	GetByID(ctx context.Context, id string) (*model.Outing, error)
	ListAll(ctx context.Context) ([]model.Outing, error)
	MarkClosed(ctx context.Context, id string) error
}

// InterestStore is the persistence contract for interest requests.
// DecideIfPending must be a single atomic conditional write returning
// repository.ErrConflict when nothing matched.
type InterestStore interface {
	Create(ctx context.Context, ir *model.InterestRequest) error
	GetByID(ctx context.Context, id string) (*model.InterestRequest, error)
	ListByOuting(ctx context.Context, outingID string) ([]model.InterestRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]model.InterestRequest, error)
	ListDetailedByRequester(ctx context.Context, requesterID string) ([]model.InterestRequestDetail, error)
	DecideIfPending(ctx context.Context, id, hostID string, status model.RequestStatus) error
}

// EventPublisher receives activity events after a mutation succeeded.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

const publishTimeout = 3 * time.Second

// Lifecycle implements the outing and interest request operations.
type Lifecycle struct {
	outings  OutingStore
	requests InterestStore
	events   EventPublisher
	now      func() time.Time
	newID    func() string
}

// Option customises a Lifecycle.
type Option func(*Lifecycle)

// WithPublisher publishes an ActivityEvent after every successful mutation.
func WithPublisher(p EventPublisher) Option {
	return func(l *Lifecycle) { l.events = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) { l.now = now }
}

// WithIDGenerator replaces uuid generation.
func WithIDGenerator(gen func() string) Option {
	return func(l *Lifecycle) { l.newID = gen }
}

// NewLifecycle wires the engine to its stores.  Both stores are required.
func NewLifecycle(outings OutingStore, requests InterestStore, opts ...Option) *Lifecycle {
	if outings == nil || requests == nil {
		panic("nil store passed to NewLifecycle")
	}
	l := &Lifecycle{
		outings:  outings,
		requests: requests,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateOutingInput carries the host-supplied fields of a new outing.
type CreateOutingInput struct {
	Title        string
	ActivityType string
	DateTime     string
	Location     *string
}

// CreateOuting stores a new open outing hosted by host.
func (l *Lifecycle) CreateOuting(ctx context.Context, host string, in CreateOutingInput) (*model.Outing, error) {
	if host == "" {
		return nil, ErrUnauthenticated
	}
	title := strings.TrimSpace(in.Title)
	activity := strings.TrimSpace(in.ActivityType)
	when := strings.TrimSpace(in.DateTime)
	if title == "" || activity == "" || when == "" {
		return nil, validationError("title, activity_type, and date_time are required")
	}
	var location *string
	if in.Location != nil {
		if loc := strings.TrimSpace(*in.Location); loc != "" {
			location = &loc
		}
	}

	o := &model.Outing{
		ID:           l.newID(),
		Title:        title,
		ActivityType: activity,
		DateTime:     when,
		Location:     location,
		OutingMode:   model.OutingModeInPerson,
		HostUserID:   host,
		IsClosed:     false,
		CreatedAt:    l.now().UTC(),
	}
	if err := l.outings.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create outing: %w", err)
	}
	metrics.OutingCreated()
	logging.Ctx(ctx).Info().Str(logging.FieldOutingID, o.ID).Str(logging.FieldUserID, host).Msg("outing created")
	l.publish(ctx, queue.ActivityEvent{
		Type: queue.EventOutingCreated, OutingID: o.ID, OutingTitle: o.Title, ActorUserID: host,
	})
	return o, nil
}

// ListVisibleOutings returns the outings user may see, newest first.
func (l *Lifecycle) ListVisibleOutings(ctx context.Context, user string) ([]model.Outing, error) {
	if user == "" {
		return nil, ErrUnauthenticated
	}
	all, err := l.outings.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list outings: %w", err)
	}
	mine, err := l.requests.ListByRequester(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list requests by requester: %w", err)
	}
	return visibility.Filter(user, all, visibility.NewIndex(mine)), nil
}

// CloseOuting stops an outing from accepting new requests.  Only the host
// may close it; closing twice succeeds.  Existing requests are untouched.
func (l *Lifecycle) CloseOuting(ctx context.Context, actor, outingID string) error {
	o, err := l.hostedOuting(ctx, actor, outingID)
	if err != nil {
		return err
	}
	if err := l.outings.MarkClosed(ctx, o.ID); err != nil {
		return fmt.Errorf("close outing: %w", err)
	}
	metrics.OutingClosed()
	logging.Ctx(ctx).Info().Str(logging.FieldOutingID, o.ID).Bool("already_closed", o.IsClosed).Msg("outing closed")
	if !o.IsClosed {
		l.publish(ctx, queue.ActivityEvent{
			Type: queue.EventOutingClosed, OutingID: o.ID, OutingTitle: o.Title, ActorUserID: actor,
		})
	}
	return nil
}

// ListInterestRequestsForOuting returns every request on the outing,
// oldest first.  Only the host may list them.
func (l *Lifecycle) ListInterestRequestsForOuting(ctx context.Context, actor, outingID string) ([]model.InterestRequest, error) {
	o, err := l.hostedOuting(ctx, actor, outingID)
	if err != nil {
		return nil, err
	}
	out, err := l.requests.ListByOuting(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list requests by outing: %w", err)
	}
	return out, nil
}

// CreateInterestRequest records requester's interest in an open outing.
// Repeated requests by the same user are accepted as separate records.
func (l *Lifecycle) CreateInterestRequest(ctx context.Context, requester, outingID string) (*model.InterestRequest, error) {
	if requester == "" {
		return nil, ErrUnauthenticated
	}
	outingID = strings.TrimSpace(outingID)
	if outingID == "" {
		metrics.InterestRequestCreated("invalid")
		return nil, validationError("outing_id is required")
	}
	o, err := l.outings.GetByID(ctx, outingID)
	if err != nil {
		if errors.Is(err, repository.ErrOutingNotFound) {
			metrics.InterestRequestCreated("not_found")
			return nil, errOutingNotFound
		}
		return nil, fmt.Errorf("load outing: %w", err)
	}
	if o.IsClosed {
		metrics.InterestRequestCreated("closed")
		return nil, ErrOutingClosed
	}

	ir := &model.InterestRequest{
		ID:              l.newID(),
		OutingID:        o.ID,
		RequesterUserID: requester,
		Status:          model.StatusPending,
		CreatedAt:       l.now().UTC(),
	}
	if err := l.requests.Create(ctx, ir); err != nil {
		return nil, fmt.Errorf("create interest request: %w", err)
	}
	metrics.InterestRequestCreated("created")
	logging.Ctx(ctx).Info().
		Str(logging.FieldRequest, ir.ID).
		Str(logging.FieldOutingID, o.ID).
		Str(logging.FieldUserID, requester).
		Msg("interest request created")
	l.publish(ctx, queue.ActivityEvent{
		Type: queue.EventInterestRequested, OutingID: o.ID, OutingTitle: o.Title,
		RequestID: ir.ID, ActorUserID: requester, Status: string(ir.Status),
	})
	return ir, nil
}

// ListMyInterestRequests returns requester's requests joined with their
// outings, newest first.
func (l *Lifecycle) ListMyInterestRequests(ctx context.Context, requester string) ([]model.InterestRequestDetail, error) {
	if requester == "" {
		return nil, ErrUnauthenticated
	}
	out, err := l.requests.ListDetailedByRequester(ctx, requester)
	if err != nil {
		return nil, fmt.Errorf("list my requests: %w", err)
	}
	return out, nil
}

// DecideInterestRequest moves a pending request to accepted or rejected.
// The store applies the change with one conditional write that also checks
// the actor hosts the outing, so of two racing decisions exactly one wins
// and the other gets ErrConflict.
func (l *Lifecycle) DecideInterestRequest(ctx context.Context, actor, requestID string, status model.RequestStatus) error {
	if actor == "" {
		return ErrUnauthenticated
	}
	if !status.IsDecision() {
		metrics.Decision("invalid", "invalid_status")
		return ErrInvalidStatus
	}
	err := l.requests.DecideIfPending(ctx, requestID, actor, status)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.Decision(string(status), "conflict")
			logging.Ctx(ctx).Info().Str(logging.FieldRequest, requestID).Str(logging.FieldUserID, actor).Msg("interest request decision rejected")
			return ErrConflict
		}
		return fmt.Errorf("decide interest request: %w", err)
	}
	metrics.Decision(string(status), "applied")
	logging.Ctx(ctx).Info().
		Str(logging.FieldRequest, requestID).
		Str(logging.FieldUserID, actor).
		Str("status", string(status)).
		Msg("interest request decided")

	if l.events != nil {
		// the consumer drops events without an outing, so skip instead
		ir, err := l.requests.GetByID(ctx, requestID)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str(logging.FieldRequest, requestID).Msg("decision event not published")
			return nil
		}
		l.publish(ctx, queue.ActivityEvent{
			Type: queue.EventInterestDecided, OutingID: ir.OutingID, RequestID: requestID,
			ActorUserID: actor, Status: string(status),
		})
	}
	return nil
}

// hostedOuting loads the outing and checks actor hosts it.  Existence is
// checked first, so a missing outing is ErrNotFound for everyone.
func (l *Lifecycle) hostedOuting(ctx context.Context, actor, outingID string) (*model.Outing, error) {
	if actor == "" {
		return nil, ErrUnauthenticated
	}
	o, err := l.outings.GetByID(ctx, outingID)
	if err != nil {
		if errors.Is(err, repository.ErrOutingNotFound) {
			return nil, errOutingNotFound
		}
		return nil, fmt.Errorf("load outing: %w", err)
	}
	if !o.HostedBy(actor) {
		return nil, ErrForbidden
	}
	return o, nil
}

// publish sends ev with a bounded timeout.  Failures are logged only; the
// mutation has already been committed.
func (l *Lifecycle) publish(ctx context.Context, ev queue.ActivityEvent) {
	if l.events == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = l.now().UTC()
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := l.events.Publish(pctx, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event", ev.Type).Msg("activity event not published")
	}
}
