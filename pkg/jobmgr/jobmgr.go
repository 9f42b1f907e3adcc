// Package jobmgr runs named background jobs with cancellation, status
// callbacks and in-memory tracking of what is running.
//
//	jm := jobmgr.NewManager(func(msg string) {
//	    log.Println("JOB:", msg)
//	})
//
//	_ = jm.StartAfter("delete:123", 10*time.Second, func(ctx context.Context) error {
//	    return deleteMessage(ctx, "123")
//	})
//
//	// on shutdown
//	jm.StopAll()
//
// No retries, no workers, no persistence. Jobs run in their own goroutine
// and are removed on completion.
package jobmgr

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Job is a running unit of work.
type Job struct {
	Name   string
	Cancel context.CancelFunc
}

// StatusReporter receives lifecycle events for jobs:
//
//	running:delete:123
//	error:delete:123:unknown message
//	done:delete:123
type StatusReporter func(string)

// Manager starts, stops and tracks jobs. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	wg       sync.WaitGroup
	closed   bool
	Reporter StatusReporter
}

// NewManager creates a Manager. reporter may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*Job),
		Reporter: reporter,
	}
}

// StartAsync runs a job in a separate goroutine and returns immediately.
// A job with the same name must not already be running.
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) error {
	return m.StartAfter(name, 0, runner)
}

// StartAfter runs runner once delay has passed. Stopping the job during the
// delay skips runner entirely.
func (m *Manager) StartAfter(name string, delay time.Duration, runner func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{Name: name, Cancel: cancel}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("job '%s' rejected: manager stopped", name)
	}
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("job '%s' is already running", name)
	}
	m.jobs[name] = job
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer m.forget(job)
		defer cancel()

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				m.report("cancelled:" + name)
				return
			case <-timer.C:
			}
		}

		m.report("running:" + name)
		if err := runner(ctx); err != nil {
			m.report("error:" + name + ":" + err.Error())
			return
		}
		m.report("done:" + name)
	}()
	return nil
}

// forget removes job unless the name was reused in the meantime.
func (m *Manager) forget(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs[job.Name] == job {
		delete(m.jobs, job.Name)
	}
}

// Stop cancels a running job by name.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}
	job.Cancel()
	delete(m.jobs, name)
	return nil
}

// StopAll cancels every job, rejects new ones and waits for the running
// goroutines to return.
func (m *Manager) StopAll() {
	m.mu.Lock()
	m.closed = true
	for name, job := range m.jobs {
		job.Cancel()
		delete(m.jobs, name)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// List returns the active job names in sorted order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Status summarizes active jobs, e.g. "Running jobs: a, b".
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
