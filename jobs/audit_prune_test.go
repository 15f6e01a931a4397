package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type pruneStub struct {
	cutoff  time.Time
	removed int64
	err     error
	calls   int
}

func (s *pruneStub) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	return s.removed, s.err
}

func TestAuditPruneHandlerUsesPayloadRetention(t *testing.T) {
	stub := &pruneStub{removed: 3}
	handler := NewAuditPruneHandler(stub, nil, nil)

	task, err := NewAuditPruneTask(AuditPrunePayload{OlderThan: 24 * time.Hour})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, 1, stub.calls)

	want := time.Now().Add(-24 * time.Hour)
	require.WithinDuration(t, want, stub.cutoff, time.Minute)
}

func TestAuditPruneHandlerDefaultsRetention(t *testing.T) {
	stub := &pruneStub{}
	handler := NewAuditPruneHandler(stub, nil, nil)

	task, err := NewAuditPruneTask(AuditPrunePayload{})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))

	want := time.Now().Add(-defaultAuditRetention)
	require.WithinDuration(t, want, stub.cutoff, time.Minute)
}

func TestAuditPruneHandlerPropagatesErrors(t *testing.T) {
	stub := &pruneStub{err: context.DeadlineExceeded}
	handler := NewAuditPruneHandler(stub, nil, nil)

	task, err := NewAuditPruneTask(AuditPrunePayload{OlderThan: time.Hour})
	require.NoError(t, err)

	require.ErrorIs(t, handler(context.Background(), task), context.DeadlineExceeded)
}
