package permission

import (
	"time"
)

// UnknownBranch is the bucket for records with no branch.
const UnknownBranch = "Unknown"

// WeekdayNames lists the weekday trend keys in display order.
var WeekdayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// MonthNames lists the monthly total keys in calendar order.
var MonthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// HourBands lists the time-of-day bands in display order. Each band covers
// three hours starting at Start; hours outside [9,21) fall in no band.
var HourBands = []HourBand{
	{Label: "9AM", Start: 9},
	{Label: "12PM", Start: 12},
	{Label: "3PM", Start: 15},
	{Label: "6PM", Start: 18},
}

type HourBand struct {
	Label string
	Start int
}

const hourBandWidth = 3

// Result is the outcome of one aggregation pass. Every relative window is
// evaluated against ReferenceNow.
type Result struct {
	ReferenceNow time.Time

	Total      int
	Today      int
	ThisWeek   int
	ThisMonth  int
	Unparsable int

	Branches      map[string]int
	WeekdayTrend  map[string]int
	MonthlyTotals map[string]int
	HourBands     map[string]int

	Recent      []Record
	recentLimit int
}

// NewResult returns an empty result anchored at now, with every fixed bucket
// present and zeroed.
func NewResult(now time.Time, recentLimit int) Result {
	if recentLimit < 0 {
		recentLimit = 0
	}
	r := Result{
		ReferenceNow:  now,
		Branches:      map[string]int{},
		WeekdayTrend:  make(map[string]int, len(WeekdayNames)),
		MonthlyTotals: make(map[string]int, len(MonthNames)),
		HourBands:     make(map[string]int, len(HourBands)),
		Recent:        []Record{},
		recentLimit:   recentLimit,
	}
	for _, d := range WeekdayNames {
		r.WeekdayTrend[d] = 0
	}
	for _, m := range MonthNames {
		r.MonthlyTotals[m] = 0
	}
	for _, b := range HourBands {
		r.HourBands[b.Label] = 0
	}
	return r
}

// Aggregate folds records into a Result anchored at now. Records are expected
// in the order the store returned them; the first recentLimit become Recent.
// It performs no I/O and has no side effects outside the returned value.
func Aggregate(records []Record, now time.Time, recentLimit int) Result {
	acc := NewResult(now, recentLimit)
	for _, rec := range records {
		acc = Fold(acc, rec)
	}
	return acc
}

// Fold adds one record to acc and returns the accumulator. acc must have been
// created by NewResult (or returned by a previous Fold) and must not be shared.
func Fold(acc Result, rec Record) Result {
	acc.Total++
	acc.Branches[branchKey(rec.Branch)]++
	if len(acc.Recent) < acc.recentLimit {
		acc.Recent = append(acc.Recent, rec)
	}

	ts, err := Normalize(rec.SubmittedAt, acc.ReferenceNow.Location())
	if err != nil {
		acc.Unparsable++
		return acc
	}

	now := acc.ReferenceNow
	today := DateOf(now)
	date := ts.Date()

	if date == today {
		acc.Today++
	}
	if ts.Month() == now.Month() && ts.Year() == now.Year() {
		acc.ThisMonth++
	}
	if !ts.Time().Before(now.Add(-7 * 24 * time.Hour)) {
		acc.ThisWeek++
	}
	// No lower bound: future-dated records still land in a weekday bucket.
	if today.DaysSince(date) < 7 {
		acc.WeekdayTrend[weekdayName(ts.Weekday())]++
	}
	if m := int(ts.Month()); m >= 1 && m <= 12 {
		acc.MonthlyTotals[MonthNames[m-1]]++
	}
	if label, ok := hourBand(ts.Hour()); ok {
		acc.HourBands[label]++
	}
	return acc
}

// Merge combines two partial results computed against the same reference
// instant, e.g. over shards of one record set. Recent keeps a's records
// first.
func Merge(a, b Result) Result {
	limit := a.recentLimit
	if b.recentLimit > limit {
		limit = b.recentLimit
	}
	out := NewResult(a.ReferenceNow, limit)
	out.Total = a.Total + b.Total
	out.Today = a.Today + b.Today
	out.ThisWeek = a.ThisWeek + b.ThisWeek
	out.ThisMonth = a.ThisMonth + b.ThisMonth
	out.Unparsable = a.Unparsable + b.Unparsable
	for _, src := range []Result{a, b} {
		for k, v := range src.Branches {
			out.Branches[k] += v
		}
		for k, v := range src.WeekdayTrend {
			out.WeekdayTrend[k] += v
		}
		for k, v := range src.MonthlyTotals {
			out.MonthlyTotals[k] += v
		}
		for k, v := range src.HourBands {
			out.HourBands[k] += v
		}
		for _, rec := range src.Recent {
			if len(out.Recent) < limit {
				out.Recent = append(out.Recent, rec)
			}
		}
	}
	return out
}

func branchKey(branch string) string {
	if branch == "" {
		return UnknownBranch
	}
	return branch
}

func weekdayName(d time.Weekday) string {
	// time.Weekday starts on Sunday.
	return WeekdayNames[(int(d)+6)%7]
}

func hourBand(hour int) (string, bool) {
	for _, b := range HourBands {
		if hour >= b.Start && hour < b.Start+hourBandWidth {
			return b.Label, true
		}
	}
	return "", false
}
