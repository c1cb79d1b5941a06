package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu    sync.Mutex
	tasks []string
	err   error
}

func (r *recordingRunner) Run(ctx context.Context, task string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return "done: " + task, r.err
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"five fields", "*/5 * * * *", false},
		{"hourly descriptor", "@hourly", false},
		{"every descriptor", "@every 90s", false},
		{"empty", "", true},
		{"six fields", "0 */5 * * * *", true},
		{"garbage", "not a cron", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNext(t *testing.T) {
	from := time.Date(2026, 10, 19, 10, 7, 0, 0, time.UTC)

	next, err := Next("*/15 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 10, 15, 0, 0, time.UTC), next)

	next, err = Next("0 9 * * 1", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 26, 9, 0, 0, 0, time.UTC), next)

	_, err = Next("bad", from)
	assert.Error(t, err)
}

func TestScheduler_AddAndRemoveJob(t *testing.T) {
	s := New(&recordingRunner{})

	job, err := s.AddJob("@daily", "summarize news", "")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Len(t, s.Jobs(), 1)

	_, err = s.AddJob("@daily", "", "")
	assert.Error(t, err)
	_, err = s.AddJob("nope", "task", "")
	assert.Error(t, err)
	_, err = s.AddJob("@daily", "task", "Nowhere/Special")
	assert.Error(t, err)

	require.NoError(t, s.RemoveJob(job.ID))
	assert.Empty(t, s.Jobs())
	assert.Error(t, s.RemoveJob(job.ID))
}

func TestScheduler_RunNowDeliversResult(t *testing.T) {
	runner := &recordingRunner{}
	results := make(chan JobResult, 1)
	s := New(runner, WithResultHandler(func(r JobResult) { results <- r }))

	job, err := s.AddJob("0 0 1 1 *", "yearly report", "UTC")
	require.NoError(t, err)

	require.NoError(t, s.RunNow(job.ID))

	r := <-results
	assert.Equal(t, job.ID, r.JobID)
	assert.Equal(t, "done: yearly report", r.Result)
	assert.NoError(t, r.Err)
	assert.Equal(t, []string{"yearly report"}, runner.tasks)

	assert.Error(t, s.RunNow("missing"))
}

func TestScheduler_RunnerErrorIsReported(t *testing.T) {
	runner := &recordingRunner{err: errors.New("disk full")}
	results := make(chan JobResult, 1)
	s := New(runner, WithResultHandler(func(r JobResult) { results <- r }))

	job, err := s.AddJob("@hourly", "task", "")
	require.NoError(t, err)
	require.NoError(t, s.RunNow(job.ID))

	r := <-results
	assert.EqualError(t, r.Err, "disk full")
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	runner := &recordingRunner{}
	s := New(runner)

	job, err := s.AddJob("@every 1s", "tick", "")
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())

	next, ok := s.NextRun(job.ID)
	require.True(t, ok)
	assert.False(t, next.IsZero())

	assert.Eventually(t, func() bool { return runner.count() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop(ctx))
}
