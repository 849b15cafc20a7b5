package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestRegisterJob_Validation(t *testing.T) {
	s := NewService(arbor.NewLogger())

	assert.Error(t, s.RegisterJob("bad", "not a cron", func() error { return nil }))
	assert.Error(t, s.RegisterJob("empty", "", func() error { return nil }))

	require.NoError(t, s.RegisterJob("nightly", "0 2 * * *", func() error { return nil }))
	assert.Error(t, s.RegisterJob("nightly", "0 3 * * *", func() error { return nil }))

	_, err := s.GetJobStatus("missing")
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s := NewService(arbor.NewLogger())
	require.NoError(t, s.RegisterJob("nightly", "@every 1h", func() error { return nil }))

	assert.False(t, s.IsRunning())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())

	status, err := s.GetJobStatus("nightly")
	require.NoError(t, err)
	require.NotNil(t, status.NextRun)
	assert.True(t, status.NextRun.After(time.Now()))

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop())
}

func TestExecuteJob_RecordsOutcome(t *testing.T) {
	s := NewService(arbor.NewLogger())
	fail := true
	require.NoError(t, s.RegisterJob("preprocess", "@every 1h", func() error {
		if fail {
			return errors.New("index missing")
		}
		return nil
	}))

	s.executeJob("preprocess")
	status, err := s.GetJobStatus("preprocess")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Runs)
	assert.Equal(t, "index missing", status.LastError)
	assert.NotNil(t, status.LastRun)

	fail = false
	s.executeJob("preprocess")
	status, err = s.GetJobStatus("preprocess")
	require.NoError(t, err)
	assert.Equal(t, 2, status.Runs)
	assert.Empty(t, status.LastError)
}

func TestExecuteJob_RecoversPanic(t *testing.T) {
	s := NewService(arbor.NewLogger())
	require.NoError(t, s.RegisterJob("boom", "@every 1h", func() error { panic("kaboom") }))

	s.executeJob("boom")

	status, err := s.GetJobStatus("boom")
	require.NoError(t, err)
	assert.False(t, status.IsRunning)
	assert.Contains(t, status.LastError, "kaboom")
}

func TestExecuteJob_SkipsOverlappingTrigger(t *testing.T) {
	s := NewService(arbor.NewLogger())
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.RegisterJob("slow", "@every 1h", func() error {
		close(started)
		<-release
		return nil
	}))

	done := make(chan struct{})
	go func() {
		s.executeJob("slow")
		close(done)
	}()
	<-started

	// Runs synchronously and returns at once because the first run holds the job.
	s.executeJob("slow")

	status, err := s.GetJobStatus("slow")
	require.NoError(t, err)
	assert.True(t, status.IsRunning)
	assert.Equal(t, 1, status.Skipped)

	close(release)
	<-done

	status, err = s.GetJobStatus("slow")
	require.NoError(t, err)
	assert.False(t, status.IsRunning)
	assert.Equal(t, 1, status.Runs)
}

func TestTriggerJob(t *testing.T) {
	s := NewService(arbor.NewLogger())
	ran := make(chan struct{}, 1)
	require.NoError(t, s.RegisterJob("manual", "@every 1h", func() error {
		ran <- struct{}{}
		return nil
	}))

	assert.Error(t, s.TriggerJob("missing"))
	require.NoError(t, s.TriggerJob("manual"))

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("triggered job did not run")
	}
}
