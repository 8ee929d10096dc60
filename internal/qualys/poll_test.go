package qualys

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/qualys-iac-scan/internal/model"
)

// fakeFetcher serves a scripted status sequence, sticking on the last one.
type fakeFetcher struct {
	statuses []string
	err      error
	calls    int
}

func (f *fakeFetcher) FetchStatus(ctx context.Context, scanUUID string) (*model.ScanResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return &model.ScanResult{Status: f.statuses[i]}, nil
}

func TestWaitForResultReturnsTerminalPayload(t *testing.T) {
	f := &fakeFetcher{statuses: []string{"SUBMITTED", "PROCESSING", "FINISHED"}}

	sr, err := WaitForResult(context.Background(), f, "abc", time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, sr.Status)
	assert.Equal(t, 3, f.calls)
}

func TestWaitForResultUnknownStatusIsNonTerminal(t *testing.T) {
	f := &fakeFetcher{statuses: []string{"SOMETHING_NEW", "FINISHED"}}

	sr, err := WaitForResult(context.Background(), f, "abc", time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, sr.Status)
	assert.Equal(t, 2, f.calls)
}

func TestWaitForResultTimesOut(t *testing.T) {
	f := &fakeFetcher{statuses: []string{"PROCESSING"}}

	_, err := WaitForResult(context.Background(), f, "abc", 5*time.Millisecond, 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Contains(t, err.Error(), "5ms")
	// no status check happens past the timeout boundary
	assert.Equal(t, 1, f.calls)
}

func TestWaitForResultFetchErrorIsFatal(t *testing.T) {
	boom := errors.New("connection reset")
	f := &fakeFetcher{err: boom}

	_, err := WaitForResult(context.Background(), f, "abc", time.Millisecond, time.Second)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.calls)
}

func TestWaitForResultRejectsNonPositiveInterval(t *testing.T) {
	f := &fakeFetcher{statuses: []string{"FINISHED"}}

	_, err := WaitForResult(context.Background(), f, "abc", 0, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
	assert.Equal(t, 0, f.calls)
}

func TestWaitForResultObservesCancellation(t *testing.T) {
	f := &fakeFetcher{statuses: []string{"PROCESSING"}}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := WaitForResult(ctx, f, "abc", time.Hour, 2*time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.calls)
}
