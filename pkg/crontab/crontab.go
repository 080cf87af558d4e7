// Package crontab schedules the server's background sweeps.
package crontab

import (
	"github.com/mirrorbay/davserver/pkg/logging"
	"github.com/robfig/cron/v3"
)

type (
	// TaskFunc is one periodic maintenance task.
	TaskFunc func()

	registration struct {
		name string
		spec string
		fn   TaskFunc
	}
)

// Crontab owns the cron scheduler and its registered sweeps.
type Crontab struct {
	c             *cron.Cron
	l             logging.Logger
	registrations []registration
}

// New constructs an empty crontab.
func New(l logging.Logger) *Crontab {
	return &Crontab{
		c: cron.New(),
		l: l,
	}
}

// Register adds a named task with a cron spec such as "@every 60s".
func (t *Crontab) Register(name, spec string, fn TaskFunc) {
	t.registrations = append(t.registrations, registration{name: name, spec: spec, fn: fn})
}

// Start schedules every registered task and starts the scheduler.
func (t *Crontab) Start() {
	t.l.Info("Initialize crontab jobs...")
	for _, r := range t.registrations {
		r := r
		if _, err := t.c.AddFunc(r.spec, func() {
			t.l.Debug("Executing cron task %q", r.name)
			r.fn()
		}); err != nil {
			t.l.Warning("Failed to start crontab job %q: %s", r.name, err)
		}
	}
	t.c.Start()
}

// Stop halts the scheduler. It returns at once and does not wait for
// running jobs to finish.
func (t *Crontab) Stop() {
	if t.c != nil {
		t.c.Stop()
	}
}
