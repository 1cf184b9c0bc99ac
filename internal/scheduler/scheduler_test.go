package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/attendance/backend/internal/services/adminaudit"
	"github.com/ncecere/attendance/backend/internal/services/attendance"
)

type stubCloser struct {
	before  time.Time
	records []attendance.Record
	err     error
}

func (s *stubCloser) AutoCloseOpen(_ context.Context, before time.Time) ([]attendance.Record, error) {
	s.before = before
	return s.records, s.err
}

type stubActivity struct {
	actions []string
	actors  []uuid.UUID
}

func (s *stubActivity) Record(_ context.Context, actorID uuid.UUID, action, _, _ string, _ any) error {
	s.actions = append(s.actions, action)
	s.actors = append(s.actors, actorID)
	return nil
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("whenever", time.UTC, &stubCloser{}, nil, nil)
	require.Error(t, err)

	_, err = New("5 0 * * *", time.UTC, nil, nil, nil)
	require.Error(t, err)
}

func TestRunOnceUsesLocalMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	out := time.Date(2023, 10, 2, 17, 0, 0, 0, loc)
	closer := &stubCloser{records: []attendance.Record{{ID: uuid.New(), UserID: uuid.New(), CheckOutAt: &out}}}
	activity := &stubActivity{}

	s, err := New("5 0 * * *", loc, closer, activity, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2023, 10, 2, 21, 5, 0, 0, time.UTC) }

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.True(t, closer.before.Equal(time.Date(2023, 10, 3, 0, 0, 0, 0, loc)))
	require.Equal(t, []string{adminaudit.ActionAutoCheckout}, activity.actions)
	require.Equal(t, uuid.Nil, activity.actors[0])
}

func TestRunOnceReportsPartialFailure(t *testing.T) {
	closer := &stubCloser{records: []attendance.Record{{ID: uuid.New()}}, err: errors.New("db down")}
	activity := &stubActivity{}
	s, err := New("@every 1h", time.UTC, closer, activity, nil)
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, n)
	require.Len(t, activity.actions, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := New("5 0 * * *", time.UTC, &stubCloser{}, nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
