// Package metrics owns the Prometheus registry for the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"permissiondesk/internal/permission"
)

const namespace = "permissiondesk"

// Collectors records submissions, aggregation passes and HTTP traffic.
// It implements permission.Observer.
type Collectors struct {
	reg *prometheus.Registry

	submissions     *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	counts    *prometheus.GaugeVec
	branches  *prometheus.GaugeVec
	hourBands *prometheus.GaugeVec
	weekdays  *prometheus.GaugeVec
}

var _ permission.Observer = (*Collectors)(nil)

// New registers all collectors, plus the Go runtime and process collectors,
// on a fresh registry.
func New() *Collectors {
	c := &Collectors{
		reg: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Permission requests submitted, by result.",
			},
			[]string{"result"},
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "aggregation_duration_seconds",
				Help:      "Time spent folding records into a result, by view.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"view"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served.",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of HTTP request durations in seconds.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"route", "method"},
		),
		counts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "permissions",
				Help:      "Permission requests in the last full pass, by window.",
			},
			[]string{"window"},
		),
		branches: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "permissions_by_branch",
				Help:      "Permission requests in the last full pass, by branch.",
			},
			[]string{"branch"},
		),
		hourBands: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "permissions_by_hour_band",
				Help:      "Permission requests in the last full pass, by three-hour band.",
			},
			[]string{"band"},
		),
		weekdays: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "permissions_by_weekday",
				Help:      "Permission requests in the last seven days, by weekday.",
			},
			[]string{"weekday"},
		),
	}
	c.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.submissions, c.passDuration, c.requests, c.requestDuration,
		c.counts, c.branches, c.hourBands, c.weekdays,
	)
	return c
}

// Gatherer exposes the registry for the /metrics handler.
func (c *Collectors) Gatherer() prometheus.Gatherer { return c.reg }

func (c *Collectors) ObserveSubmission(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.submissions.WithLabelValues(result).Inc()
}

// ObservePass records the fold duration. Gauges only follow unfiltered
// passes; a filtered dashboard pass would otherwise overwrite them.
func (c *Collectors) ObservePass(view string, res permission.Result, elapsed time.Duration) {
	c.passDuration.WithLabelValues(view).Observe(elapsed.Seconds())
	if view == "dashboard" {
		return
	}

	c.counts.WithLabelValues("total").Set(float64(res.Total))
	c.counts.WithLabelValues("today").Set(float64(res.Today))
	c.counts.WithLabelValues("week").Set(float64(res.ThisWeek))
	c.counts.WithLabelValues("month").Set(float64(res.ThisMonth))
	c.counts.WithLabelValues("unparsable").Set(float64(res.Unparsable))

	c.branches.Reset()
	for branch, n := range res.Branches {
		c.branches.WithLabelValues(branch).Set(float64(n))
	}
	for band, n := range res.HourBands {
		c.hourBands.WithLabelValues(band).Set(float64(n))
	}
	for day, n := range res.WeekdayTrend {
		c.weekdays.WithLabelValues(day).Set(float64(n))
	}
}

// ObserveRequest records one served HTTP request. route should be the
// matched route pattern, not the raw path.
func (c *Collectors) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	c.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
