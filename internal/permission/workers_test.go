package permission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotWorkerRunsAtStartup(t *testing.T) {
	fetched := make(chan Filter, 1)
	svc := newTestService(&fakeStore{fetchFn: func(_ context.Context, f Filter) ([]Record, error) {
		select {
		case fetched <- f:
		default:
		}
		return nil, nil
	}}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartSnapshotWorker(ctx, time.Hour)

	select {
	case f := <-fetched:
		assert.True(t, f.NewestFirst)
		assert.Empty(t, f.RollNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot pass did not run")
	}
}

func TestRetentionWorkerPurgesAtStartup(t *testing.T) {
	cutoffs := make(chan time.Time, 1)
	svc := newTestService(&fakeStore{deleteBeforeFn: func(_ context.Context, c time.Time) (int64, error) {
		select {
		case cutoffs <- c:
		default:
		}
		return 1, nil
	}}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartRetentionWorker(ctx, 7)

	select {
	case c := <-cutoffs:
		require.True(t, c.Equal(refNow.AddDate(0, 0, -7)))
	case <-time.After(2 * time.Second):
		t.Fatal("retention pass did not run")
	}
}

func TestWorkersDisabled(t *testing.T) {
	svc := newTestService(&fakeStore{
		fetchFn: func(context.Context, Filter) ([]Record, error) {
			t.Error("snapshot worker should not run")
			return nil, nil
		},
		deleteBeforeFn: func(context.Context, time.Time) (int64, error) {
			t.Error("retention worker should not run")
			return 0, nil
		},
	}, Options{})

	svc.StartSnapshotWorker(context.Background(), 0)
	svc.StartRetentionWorker(context.Background(), 0)
	time.Sleep(20 * time.Millisecond)
}
