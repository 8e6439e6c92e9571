package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}

type recorder struct {
	events []string
}

func (r *recorder) dep(name string, requires ...string) Func {
	return Func{
		Name:     name,
		Requires: requires,
		OnStart: func(context.Context) error {
			r.events = append(r.events, "start "+name)
			return nil
		},
		OnStop: func(context.Context) error {
			r.events = append(r.events, "stop "+name)
			return nil
		},
	}
}

func TestStartup_Order(t *testing.T) {
	ctx := context.Background()
	r := &recorder{}
	s := NewStartup(testLogger(), 1)
	s.AddDependency(r.dep("jobs", "database", "redis"))
	s.AddDependency(r.dep("database"))
	s.AddDependency(r.dep("redis"))

	require.NoError(t, s.Start(ctx))
	assert.Equal(t, []string{"start database", "start redis", "start jobs"}, r.events)
	assert.Equal(t, StatusStarted, s.Status("jobs"))

	r.events = nil
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, []string{"stop jobs", "stop database", "stop redis"}, r.events)
	assert.Equal(t, StatusStopped, s.Status("database"))
}

func TestStartup_RetriesWithBackoff(t *testing.T) {
	calls := 0
	s := NewStartup(testLogger(), 3).WithBackoffUnit(time.Millisecond)
	s.AddDependency(Func{Name: "database", OnStart: func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestStartup_GivesUp(t *testing.T) {
	s := NewStartup(testLogger(), 2).WithBackoffUnit(time.Millisecond)
	s.AddDependency(Func{Name: "kafka", OnStart: func(context.Context) error {
		return errors.New("no brokers")
	}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "no brokers")
	assert.Equal(t, StatusFailed, s.Status("kafka"))
}

func TestStartup_UnknownDependency(t *testing.T) {
	s := NewStartup(testLogger(), 1)
	s.AddDependency(Func{Name: "jobs", Requires: []string{"database"}})
	assert.Error(t, s.Start(context.Background()))
}

func TestStartup_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStartup(testLogger(), 5).WithBackoffUnit(time.Hour)
	s.AddDependency(Func{Name: "database", OnStart: func(context.Context) error {
		cancel()
		return errors.New("connection refused")
	}})

	assert.ErrorIs(t, s.Start(ctx), context.Canceled)
}
