package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	insertFn       func(ctx context.Context, rec NewRecord) (string, error)
	fetchFn        func(ctx context.Context, f Filter) ([]Record, error)
	deleteAllFn    func(ctx context.Context) (int64, error)
	deleteBeforeFn func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (f *fakeStore) Insert(ctx context.Context, rec NewRecord) (string, error) {
	if f.insertFn == nil {
		return "1", nil
	}
	return f.insertFn(ctx, rec)
}

func (f *fakeStore) FetchAll(ctx context.Context, filter Filter) ([]Record, error) {
	if f.fetchFn == nil {
		return nil, nil
	}
	return f.fetchFn(ctx, filter)
}

func (f *fakeStore) DeleteAll(ctx context.Context) (int64, error) {
	if f.deleteAllFn == nil {
		return 0, nil
	}
	return f.deleteAllFn(ctx)
}

func (f *fakeStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.deleteBeforeFn == nil {
		return 0, nil
	}
	return f.deleteBeforeFn(ctx, cutoff)
}

func (f *fakeStore) Ping(context.Context) error  { return nil }
func (f *fakeStore) Close(context.Context) error { return nil }

type fakePublisher struct {
	events []Submitted
	err    error
}

func (p *fakePublisher) PublishSubmitted(_ context.Context, ev Submitted) error {
	p.events = append(p.events, ev)
	return p.err
}

type fakeObserver struct {
	submissions []error
	views       []string
}

func (o *fakeObserver) ObserveSubmission(err error) { o.submissions = append(o.submissions, err) }

func (o *fakeObserver) ObservePass(view string, _ Result, _ time.Duration) {
	o.views = append(o.views, view)
}

func newTestService(store Store, opts Options) *Service {
	opts.Location = time.UTC
	opts.Logger = zerolog.Nop()
	opts.Clock = func() time.Time { return refNow }
	return NewService(store, opts)
}

func TestServiceSubmit(t *testing.T) {
	var stored NewRecord
	store := &fakeStore{insertFn: func(_ context.Context, rec NewRecord) (string, error) {
		stored = rec
		return "42", nil
	}}
	pub := &fakePublisher{}
	obs := &fakeObserver{}
	svc := newTestService(store, Options{Publisher: pub, Observer: obs})

	row, err := svc.Submit(context.Background(), SubmitInput{RollNumber: "21CS001", Branch: "CSE", Reason: "fever", Email: "a@x.edu"})
	require.NoError(t, err)

	at, ok := stored.SubmittedAt.Time()
	require.True(t, ok)
	assert.True(t, at.Equal(refNow))
	assert.Equal(t, "21CS001", stored.RollNumber)

	assert.Equal(t, "42", row.ID)
	assert.Equal(t, "15/03/2024 10:00:00", row.SubmittedAt)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "42", pub.events[0].ID)
	assert.Equal(t, "CSE", pub.events[0].Branch)
	assert.Equal(t, []error{nil}, obs.submissions)
}

func TestServiceSubmitIgnoresPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(&fakeStore{}, Options{Publisher: pub})

	_, err := svc.Submit(context.Background(), SubmitInput{RollNumber: "21CS001"})
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestServiceSubmitStoreFailure(t *testing.T) {
	storeErr := errors.New("connection refused")
	pub := &fakePublisher{}
	obs := &fakeObserver{}
	svc := newTestService(&fakeStore{insertFn: func(context.Context, NewRecord) (string, error) {
		return "", storeErr
	}}, Options{Publisher: pub, Observer: obs})

	_, err := svc.Submit(context.Background(), SubmitInput{RollNumber: "21CS001"})
	require.ErrorIs(t, err, storeErr)
	assert.Empty(t, pub.events)
	assert.Equal(t, []error{storeErr}, obs.submissions)
}

func TestServiceDashboard(t *testing.T) {
	var got Filter
	store := &fakeStore{fetchFn: func(_ context.Context, f Filter) ([]Record, error) {
		got = f
		return []Record{
			{ID: "1", Branch: "CSE", SubmittedAt: TextTimestamp("15/03/2024 09:30:00")},
			{ID: "2", Branch: "CSE", SubmittedAt: TextTimestamp("garbled")},
		}, nil
	}}
	obs := &fakeObserver{}
	svc := newTestService(store, Options{Observer: obs})

	feed, err := svc.Dashboard(context.Background(), DashboardQuery{RollNumber: " cs0 ", Date: "2024-03-15"})
	require.NoError(t, err)

	assert.Equal(t, "cs0", got.RollNumber)
	assert.True(t, got.NewestFirst)
	require.NotNil(t, got.From)
	require.NotNil(t, got.Until)
	assert.True(t, got.From.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, got.Until.Equal(time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, 2, feed.TotalCount)
	assert.Equal(t, 1, feed.TodayCount)
	assert.Equal(t, 1, feed.ThisMonthCount)
	assert.Len(t, feed.Records, 2)
	assert.Equal(t, "garbled", feed.Records[1].SubmittedAt)
	assert.Equal(t, "2024-03-15", feed.Date)
	assert.Equal(t, []string{"dashboard"}, obs.views)
}

func TestServiceDashboardRejectsMalformedDate(t *testing.T) {
	called := false
	svc := newTestService(&fakeStore{fetchFn: func(context.Context, Filter) ([]Record, error) {
		called = true
		return nil, nil
	}}, Options{})

	_, err := svc.Dashboard(context.Background(), DashboardQuery{Date: "15-03-2024"})
	require.ErrorIs(t, err, ErrInvalidFilter)
	assert.False(t, called)
}

func TestServiceAnalytics(t *testing.T) {
	var records []Record
	for i := 0; i < 12; i++ {
		records = append(records, Record{Branch: "CSE", SubmittedAt: TimeTimestamp(refNow.Add(-time.Duration(i) * time.Minute))})
	}
	var got Filter
	svc := newTestService(&fakeStore{fetchFn: func(_ context.Context, f Filter) ([]Record, error) {
		got = f
		return records, nil
	}}, Options{RecentLimit: 5})

	feed, err := svc.Analytics(context.Background())
	require.NoError(t, err)

	assert.True(t, got.NewestFirst)
	assert.Equal(t, 12, feed.Total)
	assert.Equal(t, 12, feed.Today)
	assert.Equal(t, map[string]int{"CSE": 12}, feed.Branches)
	assert.Len(t, feed.Recent, 5)
}

func TestServiceFetchFailurePropagates(t *testing.T) {
	storeErr := errors.New("store unavailable")
	svc := newTestService(&fakeStore{fetchFn: func(context.Context, Filter) ([]Record, error) {
		return nil, storeErr
	}}, Options{})
	ctx := context.Background()

	_, err := svc.Analytics(ctx)
	assert.ErrorIs(t, err, storeErr)
	_, err = svc.Dashboard(ctx, DashboardQuery{})
	assert.ErrorIs(t, err, storeErr)
	_, err = svc.Export(ctx)
	assert.ErrorIs(t, err, storeErr)
	_, err = svc.History(ctx, "21CS001")
	assert.ErrorIs(t, err, storeErr)
}

func TestServiceHistory(t *testing.T) {
	var got Filter
	svc := newTestService(&fakeStore{fetchFn: func(_ context.Context, f Filter) ([]Record, error) {
		got = f
		return []Record{{ID: "9", RollNumber: "21CS001", SubmittedAt: TextTimestamp("2024-03-10T20:30:00Z")}}, nil
	}}, Options{})

	rows, err := svc.History(context.Background(), "21CS001")
	require.NoError(t, err)
	assert.Equal(t, Filter{ExactRollNumber: "21CS001", NewestFirst: true}, got)
	require.Len(t, rows, 1)
	assert.Equal(t, "10/03/2024 20:30:00", rows[0].SubmittedAt)

	_, err = svc.History(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestServiceExport(t *testing.T) {
	svc := newTestService(&fakeStore{fetchFn: func(_ context.Context, f Filter) ([]Record, error) {
		assert.Equal(t, Filter{}, f)
		return []Record{{RollNumber: "21CS001", SubmittedAt: TextTimestamp("bad")}}, nil
	}}, Options{})

	rows, err := svc.Export(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].SubmittedAt)
}

func TestServicePurge(t *testing.T) {
	var cutoff time.Time
	svc := newTestService(&fakeStore{deleteBeforeFn: func(_ context.Context, c time.Time) (int64, error) {
		cutoff = c
		return 3, nil
	}}, Options{})

	n, err := svc.Purge(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.True(t, cutoff.Equal(refNow.AddDate(0, 0, -30)))

	n, err = svc.Purge(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestServiceClear(t *testing.T) {
	svc := newTestService(&fakeStore{deleteAllFn: func(context.Context) (int64, error) { return 7, nil }}, Options{})

	n, err := svc.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestServiceImportKeepsRawTimestamps(t *testing.T) {
	var stored []NewRecord
	boom := errors.New("duplicate")
	svc := newTestService(&fakeStore{insertFn: func(_ context.Context, rec NewRecord) (string, error) {
		if rec.RollNumber == "bad" {
			return "", boom
		}
		stored = append(stored, rec)
		return "x", nil
	}}, Options{})

	n, err := svc.Import(context.Background(), []NewRecord{
		{RollNumber: "a", SubmittedAt: TextTimestamp("10/03/2024 20:30:00")},
		{RollNumber: "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, stored, 2)
	assert.Equal(t, RawText, stored[0].SubmittedAt.Kind())
	assert.Equal(t, RawAbsent, stored[1].SubmittedAt.Kind())

	n, err = svc.Import(context.Background(), []NewRecord{{RollNumber: "c"}, {RollNumber: "bad"}, {RollNumber: "d"}})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}
