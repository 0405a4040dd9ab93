package permission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultRecentLimit = 10

// Submitted is published after a permission request is stored.
type Submitted struct {
	ID          string
	RollNumber  string
	Branch      string
	Reason      string
	Email       string
	SubmittedAt time.Time
}

// Publisher announces stored submissions to other systems.
type Publisher interface {
	PublishSubmitted(ctx context.Context, ev Submitted) error
}

// Observer receives the outcome of service operations, typically to export
// them as metrics.
type Observer interface {
	ObserveSubmission(err error)
	ObservePass(view string, res Result, elapsed time.Duration)
}

type Options struct {
	// Location anchors reference instants and offset-less timestamps.
	Location    *time.Location
	RecentLimit int
	Publisher   Publisher
	Observer    Observer
	Logger      zerolog.Logger
	// Clock overrides time.Now, mainly for tests.
	Clock func() time.Time
}

// Service runs request-scoped operations over a Store. It holds no mutable
// state between calls.
type Service struct {
	store       Store
	pub         Publisher
	obs         Observer
	log         zerolog.Logger
	tracer      trace.Tracer
	loc         *time.Location
	recentLimit int
	clock       func() time.Time
}

func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:       store,
		pub:         opts.Publisher,
		obs:         opts.Observer,
		log:         opts.Logger.With().Str("component", "permission").Logger(),
		tracer:      otel.Tracer("permissiondesk/permission"),
		loc:         opts.Location,
		recentLimit: opts.RecentLimit,
		clock:       opts.Clock,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.recentLimit <= 0 {
		s.recentLimit = DefaultRecentLimit
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Location returns the location reference instants are taken in.
func (s *Service) Location() *time.Location { return s.loc }

// now is sampled exactly once per operation.
func (s *Service) now() time.Time { return s.clock().In(s.loc) }

type SubmitInput struct {
	RollNumber string
	Branch     string
	Reason     string
	Email      string
}

// Submit stores a new request stamped with the current time and publishes it.
// Publish failures are logged and do not fail the submission.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Row, error) {
	ctx, span := s.tracer.Start(ctx, "permission.Submit")
	defer span.End()

	now := s.now()
	rec := NewRecord{
		RollNumber:  in.RollNumber,
		Branch:      in.Branch,
		Reason:      in.Reason,
		Email:       in.Email,
		SubmittedAt: TimeTimestamp(now),
	}
	id, err := s.store.Insert(ctx, rec)
	if s.obs != nil {
		s.obs.ObserveSubmission(err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return Row{}, fmt.Errorf("insert permission: %w", err)
	}
	span.SetAttributes(attribute.String("permission.id", id))

	if s.pub != nil {
		ev := Submitted{
			ID:          id,
			RollNumber:  in.RollNumber,
			Branch:      in.Branch,
			Reason:      in.Reason,
			Email:       in.Email,
			SubmittedAt: now,
		}
		if err := s.pub.PublishSubmitted(ctx, ev); err != nil {
			s.log.Warn().Err(err).Str("id", id).Msg("publish submitted event")
		}
	}

	return RowFor(Record{
		ID:          id,
		RollNumber:  rec.RollNumber,
		Branch:      rec.Branch,
		Reason:      rec.Reason,
		Email:       rec.Email,
		SubmittedAt: rec.SubmittedAt,
	}, s.loc), nil
}

// DashboardQuery carries the dashboard filters as received. Date selects one
// day; From/To select an inclusive range and are ignored when Date is set.
type DashboardQuery struct {
	RollNumber string
	Date       string
	From       string
	To         string
}

func (s *Service) Dashboard(ctx context.Context, q DashboardQuery) (DashboardFeed, error) {
	ctx, span := s.tracer.Start(ctx, "permission.Dashboard")
	defer span.End()

	from, to := q.From, q.To
	if strings.TrimSpace(q.Date) != "" {
		from, to = q.Date, q.Date
	}
	start, end, err := DateRange(from, to, s.loc)
	if err != nil {
		return DashboardFeed{}, err
	}
	f := Filter{
		RollNumber:  strings.TrimSpace(q.RollNumber),
		From:        start,
		Until:       end,
		NewestFirst: true,
	}

	res, records, err := s.pass(ctx, span, "dashboard", f, 0)
	if err != nil {
		return DashboardFeed{}, err
	}
	feed := NewDashboardFeed(records, res)
	feed.RollNumber = q.RollNumber
	feed.Date = q.Date
	return feed, nil
}

func (s *Service) Analytics(ctx context.Context) (AnalyticsFeed, error) {
	ctx, span := s.tracer.Start(ctx, "permission.Analytics")
	defer span.End()

	res, _, err := s.pass(ctx, span, "analytics", Filter{NewestFirst: true}, s.recentLimit)
	if err != nil {
		return AnalyticsFeed{}, err
	}
	return NewAnalyticsFeed(res), nil
}

// Snapshot runs an analytics pass without rendering it.
func (s *Service) Snapshot(ctx context.Context) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "permission.Snapshot")
	defer span.End()

	res, _, err := s.pass(ctx, span, "snapshot", Filter{NewestFirst: true}, s.recentLimit)
	return res, err
}

func (s *Service) Export(ctx context.Context) ([]ExportRow, error) {
	ctx, span := s.tracer.Start(ctx, "permission.Export")
	defer span.End()

	records, err := s.store.FetchAll(ctx, Filter{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, fmt.Errorf("fetch permissions: %w", err)
	}
	span.SetAttributes(attribute.Int("permission.records", len(records)))
	return NewExportFeed(records, s.loc), nil
}

// History returns every request for one roll number, newest first.
func (s *Service) History(ctx context.Context, rollNumber string) ([]Row, error) {
	ctx, span := s.tracer.Start(ctx, "permission.History")
	defer span.End()

	rollNumber = strings.TrimSpace(rollNumber)
	if rollNumber == "" {
		return nil, fmt.Errorf("%w: roll number is required", ErrInvalidFilter)
	}
	records, err := s.store.FetchAll(ctx, Filter{ExactRollNumber: rollNumber, NewestFirst: true})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, fmt.Errorf("fetch history for %s: %w", rollNumber, err)
	}
	return Rows(records, s.loc), nil
}

// Clear deletes every stored request.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "permission.Clear")
	defer span.End()

	n, err := s.store.DeleteAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return 0, fmt.Errorf("clear permissions: %w", err)
	}
	s.log.Info().Int64("deleted", n).Msg("cleared all permissions")
	return n, nil
}

// Purge deletes natively-timestamped requests older than days.
func (s *Service) Purge(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -days)
	n, err := s.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge permissions before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return n, nil
}

// Import stores records exactly as given, keeping their raw timestamps.
// It stops at the first failure and reports how many were stored.
func (s *Service) Import(ctx context.Context, recs []NewRecord) (int, error) {
	ctx, span := s.tracer.Start(ctx, "permission.Import")
	defer span.End()

	for i, rec := range recs {
		if _, err := s.store.Insert(ctx, rec); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert failed")
			return i, fmt.Errorf("import record %d (%s): %w", i, rec.RollNumber, err)
		}
	}
	span.SetAttributes(attribute.Int("permission.records", len(recs)))
	s.log.Info().Int("imported", len(recs)).Msg("imported permissions")
	return len(recs), nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) pass(ctx context.Context, span trace.Span, view string, f Filter, recentLimit int) (Result, []Record, error) {
	records, err := s.store.FetchAll(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return Result{}, nil, fmt.Errorf("fetch permissions: %w", err)
	}

	start := time.Now()
	res := Aggregate(records, s.now(), recentLimit)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Int("permission.records", res.Total),
		attribute.Int("permission.unparsable", res.Unparsable),
	)
	if s.obs != nil {
		s.obs.ObservePass(view, res, elapsed)
	}
	if res.Unparsable > 0 {
		s.log.Debug().Str("view", view).Int("total", res.Total).Int("unparsable", res.Unparsable).
			Msg("records with unparsable timestamps skipped for time buckets")
	}
	return res, records, nil
}
