// Package memory is an in-memory implementation of the outing and
// interest request stores.  It is safe for concurrent use and is intended
// for tests and local development (STORE_DRIVER=memory).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/outing-coordinator/internal/model"
	"github.com/iliyamo/outing-coordinator/internal/repository"
)

// Store holds both tables behind one lock so cross-table checks (the
// host predicate of a decision, the join of the "my requests" view) see a
// consistent snapshot.
type Store struct {
	mu       sync.RWMutex
	outings  map[string]model.Outing
	requests map[string]model.InterestRequest
}

// New creates an empty store.
func New() *Store {
	return &Store{
		outings:  make(map[string]model.Outing),
		requests: make(map[string]model.InterestRequest),
	}
}

// Outings returns the outing table view.
func (s *Store) Outings() *OutingStore { return &OutingStore{s: s} }

// InterestRequests returns the interest request table view.
func (s *Store) InterestRequests() *InterestStore { return &InterestStore{s: s} }

// OutingStore mirrors repository.OutingRepo.
type OutingStore struct{ s *Store }

// Create inserts o.  Ids must be unique.
func (o *OutingStore) Create(_ context.Context, out *model.Outing) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if _, exists := o.s.outings[out.ID]; exists {
		return fmt.Errorf("outing %s already exists", out.ID)
	}
	o.s.outings[out.ID] = *out
	return nil
}

// GetByID returns repository.ErrOutingNotFound for unknown ids.
func (o *OutingStore) GetByID(_ context.Context, id string) (*model.Outing, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	out, ok := o.s.outings[id]
	if !ok {
		return nil, repository.ErrOutingNotFound
	}
	return &out, nil
}

// ListAll returns every outing, newest first.
func (o *OutingStore) ListAll(_ context.Context) ([]model.Outing, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	out := make([]model.Outing, 0, len(o.s.outings))
	for _, v := range o.s.outings {
		out = append(out, v)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID > out[b].ID
	})
	return out, nil
}

// MarkClosed sets IsClosed.  Unknown ids are ignored, like an UPDATE
// that matches nothing.
func (o *OutingStore) MarkClosed(_ context.Context, id string) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if out, ok := o.s.outings[id]; ok {
		out.IsClosed = true
		o.s.outings[id] = out
	}
	return nil
}

// InterestStore mirrors repository.InterestRequestRepo.
type InterestStore struct{ s *Store }

// Create inserts ir.  The referenced outing must exist.
func (i *InterestStore) Create(_ context.Context, ir *model.InterestRequest) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	if _, ok := i.s.outings[ir.OutingID]; !ok {
		return fmt.Errorf("foreign key outing_id=%s: %w", ir.OutingID, repository.ErrOutingNotFound)
	}
	if _, exists := i.s.requests[ir.ID]; exists {
		return fmt.Errorf("interest request %s already exists", ir.ID)
	}
	i.s.requests[ir.ID] = *ir
	return nil
}

// GetByID returns repository.ErrInterestRequestNotFound for unknown ids.
func (i *InterestStore) GetByID(_ context.Context, id string) (*model.InterestRequest, error) {
	i.s.mu.RLock()
	defer i.s.mu.RUnlock()
	ir, ok := i.s.requests[id]
	if !ok {
		return nil, repository.ErrInterestRequestNotFound
	}
	return &ir, nil
}

// ListByOuting returns the outing's requests, oldest first.
func (i *InterestStore) ListByOuting(_ context.Context, outingID string) ([]model.InterestRequest, error) {
	out := i.filter(func(ir model.InterestRequest) bool { return ir.OutingID == outingID })
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

// ListByRequester returns the user's requests, newest first.
func (i *InterestStore) ListByRequester(_ context.Context, requesterID string) ([]model.InterestRequest, error) {
	out := i.filter(func(ir model.InterestRequest) bool { return ir.RequesterUserID == requesterID })
	sortNewestFirst(out)
	return out, nil
}

// ListDetailedByRequester joins the user's requests with their outings.
func (i *InterestStore) ListDetailedByRequester(_ context.Context, requesterID string) ([]model.InterestRequestDetail, error) {
	i.s.mu.RLock()
	defer i.s.mu.RUnlock()
	reqs := make([]model.InterestRequest, 0)
	for _, ir := range i.s.requests {
		if ir.RequesterUserID == requesterID {
			reqs = append(reqs, ir)
		}
	}
	sortNewestFirst(reqs)
	out := make([]model.InterestRequestDetail, 0, len(reqs))
	for _, ir := range reqs {
		o, ok := i.s.outings[ir.OutingID]
		if !ok {
			continue // inner join
		}
		out = append(out, model.InterestRequestDetail{
			ID:           ir.ID,
			OutingID:     ir.OutingID,
			Status:       ir.Status,
			CreatedAt:    ir.CreatedAt,
			Title:        o.Title,
			ActivityType: o.ActivityType,
			DateTime:     o.DateTime,
			Location:     o.Location,
			IsClosed:     o.IsClosed,
		})
	}
	return out, nil
}

// DecideIfPending is the compare-and-swap counterpart of the SQL
// conditional update: under the write lock it changes the status only if
// the request is pending and its outing is hosted by hostID.
func (i *InterestStore) DecideIfPending(_ context.Context, id, hostID string, status model.RequestStatus) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	ir, ok := i.s.requests[id]
	if !ok || ir.Status != model.StatusPending {
		return repository.ErrConflict
	}
	o, ok := i.s.outings[ir.OutingID]
	if !ok || o.HostUserID != hostID {
		return repository.ErrConflict
	}
	ir.Status = status
	i.s.requests[id] = ir
	return nil
}

func (i *InterestStore) filter(keep func(model.InterestRequest) bool) []model.InterestRequest {
	i.s.mu.RLock()
	defer i.s.mu.RUnlock()
	out := make([]model.InterestRequest, 0)
	for _, ir := range i.s.requests {
		if keep(ir) {
			out = append(out, ir)
		}
	}
	return out
}

func sortNewestFirst(rs []model.InterestRequest) {
	sort.Slice(rs, func(a, b int) bool {
		if !rs[a].CreatedAt.Equal(rs[b].CreatedAt) {
			return rs[a].CreatedAt.After(rs[b].CreatedAt)
		}
		return rs[a].ID > rs[b].ID
	})
}
