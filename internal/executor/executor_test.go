package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toggl-billing/internal/errs"
	"toggl-billing/internal/reconcile"
)

type call struct {
	kind string
	id   int64
}

type fakeWriter struct {
	calls    []call
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	failAt   int
}

func (f *fakeWriter) enter() func() {
	n := f.inFlight.Add(1)
	if n > f.maxSeen.Load() {
		f.maxSeen.Store(n)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeWriter) UpdateTimeEntry(_ context.Context, _ int64, id int64, _ reconcile.Patch) error {
	defer f.enter()()
	f.calls = append(f.calls, call{"update", id})
	if f.failAt == len(f.calls) {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeWriter) CreateTimeEntry(_ context.Context, e reconcile.NewEntry) error {
	defer f.enter()()
	f.calls = append(f.calls, call{"create", e.Duration})
	if f.failAt == len(f.calls) {
		return errors.New("boom")
	}
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func ops() []reconcile.Operation {
	t := true
	d := int64(1000)
	return []reconcile.Operation{
		{Type: reconcile.OpModify, ID: 1, Patch: &reconcile.Patch{Billable: &t}},
		{Type: reconcile.OpModify, ID: 2, Patch: &reconcile.Patch{Duration: &d, Billable: &t}},
		{Type: reconcile.OpInsert, TimeEntry: &reconcile.NewEntry{Start: time.Now(), Duration: 1000}},
		{Type: reconcile.OpModify, ID: 3, Patch: &reconcile.Patch{Billable: &t}},
	}
}

func TestExecutor_AppliesInOrder(t *testing.T) {
	w := &fakeWriter{}
	var results []int
	x := &Executor{Log: discard(), Remote: w, OnResult: func(i int, _ reconcile.Operation, err error) {
		assert.NoError(t, err)
		results = append(results, i)
	}}

	n, err := x.Run(context.Background(), ops())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []call{{"update", 1}, {"update", 2}, {"create", 1000}, {"update", 3}}, w.calls)
	assert.Equal(t, []int{0, 1, 2, 3}, results)
	assert.Equal(t, int32(1), w.maxSeen.Load())
}

func TestExecutor_FirstFailureAborts(t *testing.T) {
	w := &fakeWriter{failAt: 2}
	var failed []int
	x := &Executor{Log: discard(), Remote: w, OnResult: func(i int, _ reconcile.Operation, err error) {
		if err != nil {
			failed = append(failed, i)
		}
	}}

	n, err := x.Run(context.Background(), ops())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, w.calls, 2, "remaining operations must not be attempted")
	assert.Equal(t, []int{1}, failed)

	assert.True(t, errors.Is(err, errs.ErrRemoteExecution))
	var rerr *errs.RemoteExecutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 1, rerr.Index)
	assert.Equal(t, "modify", rerr.Op)
	assert.EqualError(t, rerr.Err, "boom")
}

func TestExecutor_StopsOnCancelledContext(t *testing.T) {
	w := &fakeWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := (&Executor{Log: discard(), Remote: w}).Run(ctx, ops())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Empty(t, w.calls)
}

func TestExecutor_RejectsMalformedOperations(t *testing.T) {
	x := &Executor{Log: discard(), Remote: &fakeWriter{}}

	_, err := x.Run(context.Background(), []reconcile.Operation{{Type: reconcile.OpModify, ID: 1}})
	assert.ErrorIs(t, err, errs.ErrRemoteExecution)

	_, err = x.Run(context.Background(), []reconcile.Operation{{Type: "delete"}})
	assert.ErrorContains(t, err, "unknown operation type")
}

func TestExecutor_Empty(t *testing.T) {
	n, err := (&Executor{Log: discard(), Remote: &fakeWriter{}}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExecutor_MissingRemote(t *testing.T) {
	_, err := (&Executor{Log: discard()}).Run(context.Background(), ops())
	assert.Error(t, err)
}
