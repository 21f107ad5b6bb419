package backups

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

type Dumper interface {
	Dump(ctx context.Context) (Result, error)
}

// Scheduler runs dumps on a cron schedule and on demand.
type Scheduler struct {
	d        Dumper
	spec     string
	schedule cron.Schedule

	triggerCh chan struct{}
	running   atomic.Bool

	startedAtUnixNano   int64
	lastRunUnixNano     atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalRuns           atomic.Int64
	totalFailures       atomic.Int64
	totalSkipped        atomic.Int64

	mu        sync.Mutex
	lastError string
	lastPath  string
	lastSize  int64
}

// NewScheduler parses spec as a standard five-field cron expression or a
// descriptor such as "@daily". An empty spec leaves only manual triggers.
func NewScheduler(d Dumper, spec string) (*Scheduler, error) {
	s := &Scheduler{
		d:                 d,
		spec:              spec,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
	if spec != "" {
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "parse backup schedule %q", spec)
		}
		s.schedule = sched
	}
	return s, nil
}

// Trigger forces an immediate dump (best-effort, non-blocking).
func (s *Scheduler) Trigger() {
	s.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()
	if s.schedule != nil {
		c.Schedule(s.schedule, cron.FuncJob(func() { s.runOnce(ctx) }))
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	slog.Info("backup scheduler started", "schedule", s.spec)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.triggerCh:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.totalSkipped.Add(1)
		slog.Warn("backup still running, skipping")
		return
	}
	defer s.running.Store(false)

	s.lastRunUnixNano.Store(time.Now().UTC().UnixNano())
	s.totalRuns.Add(1)

	res, err := s.d.Dump(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.totalFailures.Add(1)
		s.lastError = err.Error()
		slog.Error("scheduled dump", "error", err.Error())
		return
	}
	s.lastError = ""
	s.lastPath = res.Path
	s.lastSize = res.SizeBytes
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	Schedule      string     `json:"schedule,omitempty"`
	NextRunAt     *time.Time `json:"nextRunAt,omitempty"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	TotalRuns     int64      `json:"totalRuns"`
	TotalFailures int64      `json:"totalFailures"`
	TotalSkipped  int64      `json:"totalSkipped"`
	Running       bool       `json:"running"`
	LastError     string     `json:"lastError,omitempty"`
	LastPath      string     `json:"lastPath,omitempty"`
	LastSizeBytes int64      `json:"lastSizeBytes,omitempty"`
}

func (s *Scheduler) Stats() Stats {
	st := Stats{
		StartedAt:     time.Unix(0, s.startedAtUnixNano).UTC(),
		Schedule:      s.spec,
		TotalRuns:     s.totalRuns.Load(),
		TotalFailures: s.totalFailures.Load(),
		TotalSkipped:  s.totalSkipped.Load(),
		Running:       s.running.Load(),
	}
	if s.schedule != nil {
		next := s.schedule.Next(time.Now()).UTC()
		st.NextRunAt = &next
	}
	if n := s.lastRunUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastRunAt = &t
	}
	if n := s.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	s.mu.Lock()
	st.LastError = s.lastError
	st.LastPath = s.lastPath
	st.LastSizeBytes = s.lastSize
	s.mu.Unlock()
	return st
}
