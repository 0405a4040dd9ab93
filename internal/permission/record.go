// Package permission holds the permission-request domain: the record model,
// timestamp normalization, the aggregation engine, the presentation feeds and
// the service that ties them to a record store.
package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidFilter marks filter input that cannot be turned into a query.
var ErrInvalidFilter = errors.New("invalid filter")

// Record is one stored permission request.
type Record struct {
	ID          string
	RollNumber  string
	Branch      string
	Reason      string
	Email       string
	SubmittedAt RawTimestamp
}

// NewRecord is a permission request that has not been stored yet.
type NewRecord struct {
	RollNumber  string
	Branch      string
	Reason      string
	Email       string
	SubmittedAt RawTimestamp
}

// Filter narrows FetchAll. Zero fields do not filter.
type Filter struct {
	// RollNumber matches as a case-insensitive substring.
	RollNumber string
	// ExactRollNumber matches the whole roll number, case-sensitively.
	ExactRollNumber string
	// From is inclusive and Until exclusive. They only match records whose
	// timestamp is stored natively.
	From  *time.Time
	Until *time.Time
	// NewestFirst asks the store to sort by submission time descending.
	NewestFirst bool
}

// Store is the record persistence capability the service depends on.
type Store interface {
	Insert(ctx context.Context, rec NewRecord) (string, error)
	FetchAll(ctx context.Context, f Filter) ([]Record, error)
	DeleteAll(ctx context.Context) (int64, error)
	// DeleteBefore removes natively-timestamped records submitted before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

const dateLayout = "2006-01-02"

// DateRange builds the From/Until bounds covering the inclusive civil dates
// from..to (YYYY-MM-DD) in loc. Either side may be empty. A single day is
// from == to.
func DateRange(from, to string, loc *time.Location) (*time.Time, *time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)

	var start, end *time.Time
	if from != "" {
		t, err := time.ParseInLocation(dateLayout, from, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidFilter, from)
		}
		start = &t
	}
	if to != "" {
		t, err := time.ParseInLocation(dateLayout, to, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidFilter, to)
		}
		t = t.AddDate(0, 0, 1)
		end = &t
	}
	if start != nil && end != nil && !start.Before(*end) {
		return nil, nil, fmt.Errorf("%w: %s is after %s", ErrInvalidFilter, from, to)
	}
	return start, end, nil
}
