package scheduler

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/fadedpez/agentledger/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockScholarships struct {
	mock.Mock
}

func (m *mockScholarships) ExpireOldPoints(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *mockScholarships) FixMissingScholarships(ctx context.Context, agentID string, now time.Time) (*entities.RepairSummary, error) {
	args := m.Called(ctx, agentID, now)
	summary, _ := args.Get(0).(*entities.RepairSummary)
	return summary, args.Error(1)
}

func (m *mockScholarships) ResetForNewCycle(ctx context.Context, now time.Time) (*entities.CycleReset, error) {
	args := m.Called(ctx, now)
	reset, _ := args.Get(0).(*entities.CycleReset)
	return reset, args.Error(1)
}

type mockInventories struct {
	mock.Mock
}

func (m *mockInventories) RecalculateAllInventories(ctx context.Context, year int, now time.Time) (*entities.RepairSummary, error) {
	args := m.Called(ctx, year, now)
	summary, _ := args.Get(0).(*entities.RepairSummary)
	return summary, args.Error(1)
}

func testLogger() *logging.Logger {
	return logging.New(&bytes.Buffer{}, logging.DEBUG)
}

func TestAddTaskRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(time.UTC, testLogger())

	err := s.AddTask("broken", "every tuesday", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.Tasks())

	require.NoError(t, s.AddTask("hourly", "0 * * * *", func(context.Context) error { return nil }))
	assert.Equal(t, []string{"hourly"}, s.Tasks())
}

func TestRunNow(t *testing.T) {
	s := NewScheduler(time.UTC, testLogger())
	calls := 0
	require.NoError(t, s.AddTask("count", "@daily", func(context.Context) error {
		calls++
		return nil
	}))
	require.NoError(t, s.AddTask("fail", "@daily", func(context.Context) error {
		return errors.New("boom")
	}))

	assert.NoError(t, s.RunNow(context.Background(), "count"))
	assert.Equal(t, 1, calls)
	assert.EqualError(t, s.RunNow(context.Background(), "fail"), "boom")
	assert.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(time.UTC, testLogger())
	require.NoError(t, s.AddTask("noop", "0 0 1 7 *", func(context.Context) error { return nil }))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
	s.Stop()
}

func TestRestartDoesNotDuplicateEntries(t *testing.T) {
	s := NewScheduler(time.UTC, testLogger())
	require.NoError(t, s.AddTask("noop", "0 0 1 7 *", func(context.Context) error { return nil }))

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 1)
}

func TestRegisterSkipsDisabledJobs(t *testing.T) {
	jobs := NewJobs(&mockScholarships{}, &mockInventories{}, nil, testLogger())
	s := NewScheduler(time.UTC, testLogger())

	err := jobs.Register(s, Schedules{
		ExpirePoints:           "5 0 * * *",
		RecalculateInventories: "0 * * * *",
		CycleReset:             "0 0 1 7 *",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{TaskExpirePoints, TaskRecalculateInventories, TaskCycleReset}, s.Tasks())

	err = jobs.Register(NewScheduler(time.UTC, testLogger()), Schedules{ExpirePoints: "never"})
	assert.Error(t, err)
}

func TestJobsUseClockAndCycleYear(t *testing.T) {
	now := time.Date(2027, time.March, 2, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctx := context.Background()

	scholarships := &mockScholarships{}
	inventories := &mockInventories{}
	jobs := NewJobs(scholarships, inventories, clock, testLogger())

	scholarships.On("ExpireOldPoints", ctx, now).Return(3, nil)
	scholarships.On("FixMissingScholarships", ctx, "", now).Return(&entities.RepairSummary{Processed: 2}, nil)
	scholarships.On("ResetForNewCycle", ctx, now).Return(&entities.CycleReset{CycleYear: 2026}, nil)
	inventories.On("RecalculateAllInventories", ctx, 2026, now).Return(&entities.RepairSummary{Processed: 4}, nil)

	assert.NoError(t, jobs.ExpirePoints(ctx))
	assert.NoError(t, jobs.FixScholarships(ctx))
	assert.NoError(t, jobs.ResetCycle(ctx))
	assert.NoError(t, jobs.RecalculateInventories(ctx))

	scholarships.AssertExpectations(t)
	inventories.AssertExpectations(t)
}

func TestJobsReportPartialFailures(t *testing.T) {
	ctx := context.Background()
	scholarships := &mockScholarships{}
	jobs := NewJobs(scholarships, &mockInventories{}, nil, testLogger())

	summary := &entities.RepairSummary{}
	summary.Processed = 3
	summary.AddError("agent-1/univ-1/degree-1", errors.New("database is locked"))
	scholarships.On("FixMissingScholarships", ctx, "", mock.Anything).Return(summary, nil)

	err := jobs.FixScholarships(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 failed")
}
