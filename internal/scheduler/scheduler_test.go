package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	s := New(context.Background(), time.UTC)

	_, err := s.Add(AutoCancelSpec, "orders:auto-cancel-unpaid", func(context.Context) error { return nil })
	require.NoError(t, err)
	_, err = s.Add(MonthlyReportSpec, "reports:send-monthly", func(context.Context) error { return nil })
	require.NoError(t, err)

	_, err = s.Add("every tuesday-ish", "bad", func(context.Context) error { return nil })
	assert.Error(t, err)

	assert.Len(t, s.Entries(), 2)
}

func TestMonthlyReportSpec_FirstDayAt8(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	s := New(context.Background(), loc)
	_, err = s.Add(MonthlyReportSpec, "reports:send-monthly", func(context.Context) error { return nil })
	require.NoError(t, err)

	next := s.Entries()[0].Schedule.Next(time.Date(2025, 2, 14, 12, 0, 0, 0, loc))
	assert.True(t, time.Date(2025, 3, 1, 8, 0, 0, 0, loc).Equal(next), "next run %s", next)
}

func TestSkipIfStillRunning(t *testing.T) {
	s := New(context.Background(), time.UTC)

	var runs int32
	started := make(chan struct{})
	release := make(chan struct{})

	_, err := s.Add(AutoCancelSpec, "orders:auto-cancel-unpaid", func(context.Context) error {
		if atomic.AddInt32(&runs, 1) == 1 {
			close(started)
			<-release
		}
		return nil
	})
	require.NoError(t, err)

	job := s.Entries()[0].WrappedJob

	done := make(chan struct{})
	go func() {
		job.Run()
		close(done)
	}()
	<-started

	// Overlapping tick is dropped.
	job.Run()
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	close(release)
	<-done

	job.Run()
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
}

func TestTaskErrorAndPanicDoNotEscape(t *testing.T) {
	s := New(context.Background(), time.UTC)

	_, err := s.Add(AutoCancelSpec, "failing", func(context.Context) error { return errors.New("boom") })
	require.NoError(t, err)
	_, err = s.Add(AutoCancelSpec, "panicking", func(context.Context) error { panic("boom") })
	require.NoError(t, err)

	for _, e := range s.Entries() {
		assert.NotPanics(t, e.WrappedJob.Run)
	}
}
