package permission

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrUnparsable is returned by Normalize for any raw timestamp that cannot be
// turned into a calendar instant. It is never fatal for an aggregation pass.
var ErrUnparsable = errors.New("unparsable timestamp")

// DisplayLayout is the fixed DD/MM/YYYY HH:MM:SS rendering used for every
// timestamp shown or exported.
const DisplayLayout = "02/01/2006 15:04:05"

// RawKind tags the representation a timestamp had in the store.
type RawKind int

const (
	RawAbsent RawKind = iota
	RawTime
	RawText
	RawOther
)

func (k RawKind) String() string {
	switch k {
	case RawTime:
		return "time"
	case RawText:
		return "text"
	case RawOther:
		return "other"
	default:
		return "absent"
	}
}

// RawTimestamp is the submitted_at value exactly as a store handed it over.
// Stores decode their native representation into one of the kinds once, at
// the boundary; nothing downstream sniffs types again.
type RawTimestamp struct {
	kind  RawKind
	t     time.Time
	text  string
	other any
}

func AbsentTimestamp() RawTimestamp { return RawTimestamp{} }

func TimeTimestamp(t time.Time) RawTimestamp { return RawTimestamp{kind: RawTime, t: t} }

func TextTimestamp(s string) RawTimestamp { return RawTimestamp{kind: RawText, text: s} }

// OtherTimestamp wraps a stored value of any unsupported type (numbers,
// documents, booleans). It always normalizes to ErrUnparsable.
func OtherTimestamp(v any) RawTimestamp { return RawTimestamp{kind: RawOther, other: v} }

// RawFrom classifies a loosely typed value. Stores whose drivers already
// return Go types (time.Time, string, nil) can use it directly.
func RawFrom(v any) RawTimestamp {
	switch x := v.(type) {
	case nil:
		return AbsentTimestamp()
	case time.Time:
		return TimeTimestamp(x)
	case *time.Time:
		if x == nil {
			return AbsentTimestamp()
		}
		return TimeTimestamp(*x)
	case string:
		return TextTimestamp(x)
	case *string:
		if x == nil {
			return AbsentTimestamp()
		}
		return TextTimestamp(*x)
	default:
		return OtherTimestamp(v)
	}
}

func (r RawTimestamp) Kind() RawKind { return r.kind }

// Time returns the native instant for RawTime values.
func (r RawTimestamp) Time() (time.Time, bool) { return r.t, r.kind == RawTime }

// Text returns the stored string for RawText values.
func (r RawTimestamp) Text() (string, bool) { return r.text, r.kind == RawText }

// Value returns the underlying stored value, or nil when absent.
func (r RawTimestamp) Value() any {
	switch r.kind {
	case RawTime:
		return r.t
	case RawText:
		return r.text
	case RawOther:
		return r.other
	default:
		return nil
	}
}

// Timestamp is a normalized, calendar-aware instant. Calendar projections use
// the wall clock of the location it was parsed or stored in.
type Timestamp struct {
	t time.Time
}

func (ts Timestamp) Time() time.Time       { return ts.t }
func (ts Timestamp) Year() int             { return ts.t.Year() }
func (ts Timestamp) Month() time.Month     { return ts.t.Month() }
func (ts Timestamp) Day() int              { return ts.t.Day() }
func (ts Timestamp) Hour() int             { return ts.t.Hour() }
func (ts Timestamp) Weekday() time.Weekday { return ts.t.Weekday() }
func (ts Timestamp) Date() Date            { return DateOf(ts.t) }

// Date is a civil calendar date without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// DaysSince returns the number of calendar days from other to d. It is
// negative when other is after d.
func (d Date) DaysSince(other Date) int {
	a := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	b := time.Date(other.Year, other.Month, other.Day, 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b).Hours() / 24)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// time.Parse tolerates a one-digit hour and a fractional suffix the layout does
// not declare, so text must match one of these shapes before it is parsed.
var (
	displayShape = regexp.MustCompile(`^\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2}$`)
	isoShape     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2}(?:\.\d{1,9})?)?)?(?:[+-]\d{2}:\d{2})?$`)
)

// isoLayouts are tried in order for strings without a '/'. Layouts without a
// zone are interpreted in the caller's location.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Normalize converts a raw stored timestamp into a Timestamp. Native instants
// are adopted as-is; strings containing '/' must match DisplayLayout exactly;
// any other string is read as ISO-8601 with a trailing "Z" meaning +00:00.
// Strings without an explicit offset are read as wall time in loc.
//
// Every failure wraps ErrUnparsable.
func Normalize(raw RawTimestamp, loc *time.Location) (Timestamp, error) {
	if loc == nil {
		loc = time.Local
	}
	switch raw.kind {
	case RawTime:
		if raw.t.IsZero() {
			return Timestamp{}, fmt.Errorf("%w: zero time", ErrUnparsable)
		}
		return Timestamp{t: raw.t}, nil
	case RawText:
		s := raw.text
		if strings.Contains(s, "/") {
			if !displayShape.MatchString(s) {
				return Timestamp{}, fmt.Errorf("%w: %q is not DD/MM/YYYY HH:MM:SS", ErrUnparsable, s)
			}
			t, err := time.ParseInLocation(DisplayLayout, s, loc)
			if err != nil {
				return Timestamp{}, fmt.Errorf("%w: %q: %v", ErrUnparsable, s, err)
			}
			return Timestamp{t: t}, nil
		}
		return parseISO(s, loc)
	case RawOther:
		return Timestamp{}, fmt.Errorf("%w: unsupported type %T", ErrUnparsable, raw.other)
	default:
		return Timestamp{}, fmt.Errorf("%w: missing", ErrUnparsable)
	}
}

func parseISO(s string, loc *time.Location) (Timestamp, error) {
	v := s
	if strings.HasSuffix(v, "Z") {
		v = strings.TrimSuffix(v, "Z") + "+00:00"
	}
	if !isoShape.MatchString(v) {
		return Timestamp{}, fmt.Errorf("%w: %q is not ISO-8601", ErrUnparsable, s)
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return Timestamp{t: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("%w: %q is not ISO-8601", ErrUnparsable, s)
}
