// Package visibility decides which outings a user may see.
//
// An outing is visible when it is still open, when the user has an
// interest request on it, or when the user hosts it.  The three
// conditions are a disjunction; a closed outing the user never touched is
// hidden even though it exists.
package visibility

import (
	"sort"

	"github.com/iliyamo/outing-coordinator/internal/model"
)

// Index is the set of outing ids a user has requested to join.
type Index map[string]struct{}

// NewIndex builds an Index from a user's interest requests.  Duplicate
// requests for the same outing collapse into one entry.
func NewIndex(requests []model.InterestRequest) Index {
	idx := make(Index, len(requests))
	for _, r := range requests {
		idx[r.OutingID] = struct{}{}
	}
	return idx
}

// Has reports whether the user has at least one request on outingID.
func (i Index) Has(outingID string) bool {
	_, ok := i[outingID]
	return ok
}

// Visible reports whether o is visible to user.
func Visible(user string, o model.Outing, idx Index) bool {
	return !o.IsClosed || idx.Has(o.ID) || o.HostedBy(user)
}

// Filter returns the outings visible to user, newest first.  Ties on
// created_at are broken by id so the order is stable across calls.  The
// input slice is not modified.
func Filter(user string, outings []model.Outing, idx Index) []model.Outing {
	out := make([]model.Outing, 0, len(outings))
	for _, o := range outings {
		if Visible(user, o, idx) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID > out[b].ID
	})
	return out
}
