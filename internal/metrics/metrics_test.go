package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permissiondesk/internal/permission"
)

func TestObserveSubmission(t *testing.T) {
	c := New()
	c.ObserveSubmission(nil)
	c.ObserveSubmission(nil)
	c.ObserveSubmission(errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.submissions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.submissions.WithLabelValues("error")))
}

func TestObservePassSetsGauges(t *testing.T) {
	c := New()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	res := permission.Aggregate([]permission.Record{
		{Branch: "CSE", SubmittedAt: permission.TimeTimestamp(now)},
		{Branch: "CSE", SubmittedAt: permission.TextTimestamp("not-a-date")},
		{Branch: "ECE", SubmittedAt: permission.TextTimestamp("2024-03-14T13:00:00Z")},
	}, now, 10)

	c.ObservePass("analytics", res, time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.counts.WithLabelValues("total")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.counts.WithLabelValues("today")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.counts.WithLabelValues("unparsable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.branches.WithLabelValues("CSE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.hourBands.WithLabelValues("9AM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.hourBands.WithLabelValues("12PM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.weekdays.WithLabelValues("Fri")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.passDuration))
}

func TestObservePassDashboardLeavesGauges(t *testing.T) {
	c := New()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	c.ObservePass("snapshot", permission.Aggregate([]permission.Record{{}, {}}, now, 0), 0)
	c.ObservePass("dashboard", permission.Aggregate(nil, now, 0), 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.counts.WithLabelValues("total")))
}

func TestObserveRequest(t *testing.T) {
	c := New()
	c.ObserveRequest("/api/student-history/{rollno}", "GET", 200, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("/api/student-history/{rollno}", "GET", "200")))

	families, err := c.Gatherer().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "permissiondesk_http_requests_total")
	assert.Contains(t, names, "go_goroutines")
}
