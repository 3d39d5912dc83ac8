package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fadedpez/agentledger/internal/logging"
	"github.com/robfig/cron/v3"
)

// Task represents a scheduled task
type Task struct {
	Name     string
	Schedule string // Standard five-field cron expression
	Fn       func(context.Context) error
}

// Scheduler runs tasks on cron schedules
type Scheduler struct {
	cron    *cron.Cron
	tasks   []*Task
	running bool
	mutex   sync.Mutex
	cancel  context.CancelFunc
	loc     *time.Location
	logger  *logging.Logger
}

// NewScheduler creates a new scheduler evaluating schedules in loc
func NewScheduler(loc *time.Location, logger *logging.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default
	}

	s := &Scheduler{
		tasks:  make([]*Task, 0),
		loc:    loc,
		logger: logger,
	}
	s.cron = s.newCron()
	return s
}

func (s *Scheduler) newCron() *cron.Cron {
	cronLogger := cron.PrintfLogger(s.logger)
	return cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
}

// AddTask adds a task to the scheduler. The schedule is validated immediately.
func (s *Scheduler) AddTask(name, schedule string, fn func(context.Context) error) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q for task %s: %w", schedule, name, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tasks = append(s.tasks, &Task{
		Name:     name,
		Schedule: schedule,
		Fn:       fn,
	})
	return nil
}

// Start registers every task with a fresh cron and starts it
func (s *Scheduler) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	s.cron = s.newCron()
	ctx, cancel := context.WithCancel(ctx)
	for _, task := range s.tasks {
		task := task
		if _, err := s.cron.AddFunc(task.Schedule, func() { s.run(ctx, task) }); err != nil {
			cancel()
			return fmt.Errorf("error scheduling task %s: %w", task.Name, err)
		}
		s.logger.Info("Scheduled task %s (%s)", task.Name, task.Schedule)
	}

	s.cancel = cancel
	s.running = true
	s.cron.Start()
	s.logger.Info("Scheduler started with %d tasks", len(s.tasks))
	return nil
}

// Stop stops the scheduler and waits for running tasks to finish
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("Scheduler stopped")
}

// RunNow runs the named task once, outside its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mutex.Lock()
	var found *Task
	for _, task := range s.tasks {
		if task.Name == name {
			found = task
			break
		}
	}
	s.mutex.Unlock()

	if found == nil {
		return fmt.Errorf("unknown task %s", name)
	}
	return s.run(ctx, found)
}

// Tasks returns the names of the registered tasks
func (s *Scheduler) Tasks() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	names := make([]string, 0, len(s.tasks))
	for _, task := range s.tasks {
		names = append(names, task.Name)
	}
	return names
}

func (s *Scheduler) run(ctx context.Context, task *Task) error {
	started := time.Now()
	s.logger.Info("Running scheduled task: %s", task.Name)

	if err := task.Fn(ctx); err != nil {
		s.logger.Error("Error running task %s: %v", task.Name, err)
		return err
	}

	s.logger.Info("Task %s finished in %s", task.Name, time.Since(started).Round(time.Millisecond))
	return nil
}
