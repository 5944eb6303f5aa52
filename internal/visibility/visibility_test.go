package visibility

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/outing-coordinator/internal/model"
)

var t0 = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func outing(id, host string, closed bool, age time.Duration) model.Outing {
	return model.Outing{ID: id, HostUserID: host, IsClosed: closed, CreatedAt: t0.Add(-age)}
}

func ids(list []model.Outing) []string {
	out := make([]string, len(list))
	for i, o := range list {
		out[i] = o.ID
	}
	return out
}

func TestFilterUnrelatedGuestSeesOnlyOpenNewestFirst(t *testing.T) {
	all := []model.Outing{
		outing("old-open", "h1", false, 3*time.Hour),
		outing("closed", "h1", true, 2*time.Hour),
		outing("new-open", "h2", false, time.Hour),
	}
	got := Filter("guest", all, NewIndex(nil))
	assert.Equal(t, []string{"new-open", "old-open"}, ids(got))
}

func TestFilterClosedVisibleToHostAndRequester(t *testing.T) {
	all := []model.Outing{outing("closed", "host", true, time.Hour)}
	idx := NewIndex([]model.InterestRequest{{OutingID: "closed", RequesterUserID: "guest"}})

	assert.Len(t, Filter("host", all, NewIndex(nil)), 1)
	assert.Len(t, Filter("guest", all, idx), 1)
	assert.Empty(t, Filter("stranger", all, NewIndex(nil)))
}

func TestFilterBreaksTiesByID(t *testing.T) {
	all := []model.Outing{
		outing("a", "h", false, 0),
		outing("c", "h", false, 0),
		outing("b", "h", false, 0),
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids(Filter("x", all, nil)))
}

func TestFilterDoesNotDuplicateOnRepeatedRequests(t *testing.T) {
	all := []model.Outing{outing("o", "h", true, 0)}
	idx := NewIndex([]model.InterestRequest{{OutingID: "o"}, {OutingID: "o"}})
	assert.Len(t, Filter("g", all, idx), 1)
}

// Exhaustive check of the disjunction over every combination of the three
// inputs.
func TestVisibleMatchesDisjunction(t *testing.T) {
	for _, closed := range []bool{false, true} {
		for _, requested := range []bool{false, true} {
			for _, isHost := range []bool{false, true} {
				name := fmt.Sprintf("closed=%v requested=%v host=%v", closed, requested, isHost)
				t.Run(name, func(t *testing.T) {
					host := "someone-else"
					if isHost {
						host = "u"
					}
					o := outing("o", host, closed, 0)
					idx := Index{}
					if requested {
						idx["o"] = struct{}{}
					}
					want := !closed || requested || isHost
					require.Equal(t, want, Visible("u", o, idx))
					require.Equal(t, want, len(Filter("u", []model.Outing{o}, idx)) == 1)
				})
			}
		}
	}
}
