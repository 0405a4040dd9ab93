package permission

import "time"

// DashboardFeed is the dashboard view: the filtered list plus headline counts.
type DashboardFeed struct {
	Records        []Row  `json:"records"`
	TodayCount     int    `json:"today_count"`
	ThisMonthCount int    `json:"this_month_count"`
	TotalCount     int    `json:"total_count"`
	RollNumber     string `json:"rollno_filter"`
	Date           string `json:"date_filter"`
	TodayDate      string `json:"today_date"`
}

// AnalyticsFeed is the full aggregation result rendered for the analytics
// page and API.
type AnalyticsFeed struct {
	Total        int            `json:"total_permissions"`
	Today        int            `json:"todays_requests"`
	ThisMonth    int            `json:"this_month_requests"`
	ThisWeek     int            `json:"this_week_requests"`
	Branches     map[string]int `json:"branch_stats"`
	HourBands    map[string]int `json:"time_distribution"`
	WeekdayTrend map[string]int `json:"daily_trend"`
	Monthly      map[string]int `json:"monthly_analysis"`
	Recent       []Row          `json:"recent_permissions"`
	Unparsable   int            `json:"unparsable_timestamps"`
}

// NewDashboardFeed renders the dashboard from a pass over the filtered records.
// Every record appears in the list; Result.Recent is not used here.
func NewDashboardFeed(records []Record, res Result) DashboardFeed {
	loc := res.ReferenceNow.Location()
	return DashboardFeed{
		Records:        Rows(records, loc),
		TodayCount:     res.Today,
		ThisMonthCount: res.ThisMonth,
		TotalCount:     res.Total,
		TodayDate:      DateOf(res.ReferenceNow).String(),
	}
}

func NewAnalyticsFeed(res Result) AnalyticsFeed {
	return AnalyticsFeed{
		Total:        res.Total,
		Today:        res.Today,
		ThisMonth:    res.ThisMonth,
		ThisWeek:     res.ThisWeek,
		Branches:     copyCounts(res.Branches),
		HourBands:    copyCounts(res.HourBands),
		WeekdayTrend: copyCounts(res.WeekdayTrend),
		Monthly:      copyCounts(res.MonthlyTotals),
		Recent:       Rows(res.Recent, res.ReferenceNow.Location()),
		Unparsable:   res.Unparsable,
	}
}

// NewExportFeed flattens records in the order given.
func NewExportFeed(records []Record, loc *time.Location) []ExportRow {
	out := make([]ExportRow, 0, len(records))
	for _, rec := range records {
		out = append(out, ExportRowFor(rec, loc))
	}
	return out
}

// Counted is one bucket of an ordered breakdown, for templates.
type Counted struct {
	Label string
	Count int
}

// Ordered returns counts in the order of labels.
func Ordered(counts map[string]int, labels []string) []Counted {
	out := make([]Counted, 0, len(labels))
	for _, l := range labels {
		out = append(out, Counted{Label: l, Count: counts[l]})
	}
	return out
}

// HourBandLabels returns the hour band labels in display order.
func HourBandLabels() []string {
	out := make([]string, 0, len(HourBands))
	for _, b := range HourBands {
		out = append(out, b.Label)
	}
	return out
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
