package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReports struct {
	from, to *time.Time
	err      error
}

func (s *stubReports) ExportOrders(_ context.Context, from, to *time.Time) (*storage.StoredObject, error) {
	s.from, s.to = from, to
	if s.err != nil {
		return nil, s.err
	}
	return &storage.StoredObject{Key: "reports/test.xlsx"}, nil
}

func TestPreviousDay(t *testing.T) {
	now := time.Date(2026, 3, 1, 2, 30, 0, 0, time.UTC)
	from, to := previousDay(now)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestReportScheduler_RunOnce(t *testing.T) {
	stub := &stubReports{}
	s := NewReportScheduler(stub, "0 2 * * *")
	s.now = func() time.Time { return time.Date(2026, 5, 10, 2, 0, 0, 0, time.UTC) }

	require.NoError(t, s.RunOnce(context.Background()))
	require.NotNil(t, stub.from)
	assert.Equal(t, 9, stub.from.Day())
	assert.Equal(t, 10, stub.to.Day())

	stub.err = errors.New("bucket missing")
	assert.Error(t, s.RunOnce(context.Background()))
}

func TestReportScheduler_InvalidSchedule(t *testing.T) {
	s := NewReportScheduler(&stubReports{}, "not a cron spec")
	assert.Error(t, s.Start())
}
