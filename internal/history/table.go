package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wesm/listenview/internal/parser"
	"github.com/wesm/listenview/internal/timeutil"
)

// ErrInvalidBound reports a range bound that is neither a
// timestamp nor a calendar date.
var ErrInvalidBound = errors.New("invalid date bound")

// Table is an immutable, timestamp-ordered sequence of events.
// A Table is safe for concurrent readers; slices share the
// parent's storage.
type Table struct {
	events []Event
}

// NewTable wraps events that are already sorted by timestamp
// and carry session IDs. The table takes ownership of the
// slice.
func NewTable(events []Event) *Table {
	return &Table{events: events[:len(events):len(events)]}
}

// Build normalizes records and assigns sessions, producing the
// stored form of an upload.
func Build(records []parser.Record) *Table {
	events, stats := Normalize(records)
	logNormalizeStats(stats)
	AssignSessions(events)
	return NewTable(events)
}

// BuildFromPayloads parses raw export files and builds a
// table from their combined records.
func BuildFromPayloads(
	ctx context.Context, payloads [][]byte,
) (*Table, error) {
	records, err := parser.ParseFiles(ctx, payloads)
	if err != nil {
		return nil, err
	}
	return Build(records), nil
}

// Len returns the number of events.
func (t *Table) Len() int { return len(t.events) }

// Empty reports whether the table has no events.
func (t *Table) Empty() bool { return len(t.events) == 0 }

// Events returns the events in timestamp order. The returned
// slice is shared and must not be modified.
func (t *Table) Events() []Event { return t.events }

// First returns the earliest timestamp, or the zero time.
func (t *Table) First() time.Time {
	if t.Empty() {
		return time.Time{}
	}
	return t.events[0].Timestamp
}

// Last returns the latest timestamp, or the zero time.
func (t *Table) Last() time.Time {
	if t.Empty() {
		return time.Time{}
	}
	return t.events[len(t.events)-1].Timestamp
}

// Head returns a view of at most n leading events.
func (t *Table) Head(n int) []Event {
	n = min(n, len(t.events))
	return t.events[:n:n]
}

// Range is an inclusive timestamp window. A zero bound is
// open and defaults to the table's first or last event.
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseRange parses optional start and end query bounds.
// Zone-less values are UTC. A date-only end is pushed forward
// one day so the whole calendar day is included.
func ParseRange(start, end string) (Range, error) {
	var r Range
	if start != "" {
		t, _, err := timeutil.ParseBound(start)
		if err != nil {
			return Range{}, fmt.Errorf(
				"%w: start %q", ErrInvalidBound, start,
			)
		}
		r.Start = t
	}
	if end != "" {
		t, dateOnly, err := timeutil.ParseBound(end)
		if err != nil {
			return Range{}, fmt.Errorf(
				"%w: end %q", ErrInvalidBound, end,
			)
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		r.End = t
	}
	return r, nil
}

// Slice returns the view of events whose timestamp falls in
// [r.Start, r.End]. The result may be empty.
func (t *Table) Slice(r Range) *Table {
	lo := 0
	if !r.Start.IsZero() {
		lo = sort.Search(len(t.events), func(i int) bool {
			return !t.events[i].Timestamp.Before(r.Start)
		})
	}
	hi := len(t.events)
	if !r.End.IsZero() {
		hi = sort.Search(len(t.events), func(i int) bool {
			return t.events[i].Timestamp.After(r.End)
		})
	}
	if hi < lo {
		hi = lo
	}
	return &Table{events: t.events[lo:hi:hi]}
}

// SessionCount returns the number of distinct sessions.
func (t *Table) SessionCount() int {
	if t.Empty() {
		return 0
	}
	return t.events[len(t.events)-1].SessionID -
		t.events[0].SessionID + 1
}
