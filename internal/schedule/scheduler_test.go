package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type countJob struct {
	name  string
	calls atomic.Int32
	err   error
}

func (j *countJob) Name() string { return j.name }

func (j *countJob) Run(ctx context.Context) error {
	j.calls.Add(1)
	return j.err
}

func TestCronScheduler_AddAndRunNow(t *testing.T) {
	s := NewCronScheduler()
	j := &countJob{name: "refresh"}
	require.NoError(t, s.AddJob(j, "*/5 * * * *"))
	require.Error(t, s.AddJob(j, "*/5 * * * *"))

	require.NoError(t, s.RunNow("refresh"))
	require.NoError(t, s.RunNow("refresh"))
	require.Equal(t, int32(2), j.calls.Load())
	require.Error(t, s.RunNow("missing"))
}

func TestCronScheduler_InvalidSpec(t *testing.T) {
	s := NewCronScheduler()
	require.Error(t, s.AddJob(&countJob{name: "bad"}, "not a spec"))
	require.Error(t, s.RunNow("bad"))
}

func TestCronScheduler_JobErrorIsLogged(t *testing.T) {
	s := NewCronScheduler()
	j := &countJob{name: "failing", err: errors.New("boom")}
	require.NoError(t, s.AddJob(j, "0 * * * *"))
	s.Start(context.Background())
	defer s.Stop()
	require.NoError(t, s.RunNow("failing"))
	require.Equal(t, int32(1), j.calls.Load())
}
