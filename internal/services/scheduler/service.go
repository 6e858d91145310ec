package scheduler

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Service runs the optional background refresh jobs on cron schedules. Jobs
// are held in memory only; the client re-hydrates from config at startup and
// keeps no durable state. Every job resolves to publishing signals or
// refreshing advisory data, so a missed or duplicated run is harmless.
type Service struct {
	cron *cron.Cron

	mu      sync.RWMutex
	jobs    map[string]*job
	entries map[string]cron.EntryID
}

type job struct {
	ID        string
	Name      string
	Cron      string
	Run       func()
	LastRunAt *time.Time
}

// JobInfo describes one scheduled job for listing.
type JobInfo struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Cron      string  `json:"cron"`
	LastRunAt *string `json:"last_run_at"`
	NextRun   *string `json:"next_run"`
}

// NewService creates a scheduler. Seconds-resolution expressions are
// supported; 5-field expressions are normalized by prepending seconds.
func NewService() *Service {
	return &Service{
		cron:    cron.New(cron.WithSeconds()),
		jobs:    make(map[string]*job),
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins executing scheduled jobs.
func (s *Service) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

// AddJob registers a named job under a cron expression. Names are unique;
// re-adding a name replaces the previous schedule.
func (s *Service) AddJob(name, cronExpr string, run func()) (string, error) {
	if name == "" || cronExpr == "" || run == nil {
		return "", fmt.Errorf("name, cron and run func are required")
	}

	normalized, err := normalizeCron(cronExpr)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.jobs {
		if existing.Name == name {
			s.removeLocked(existing.ID)
			break
		}
	}

	j := &job{ID: uuid.New().String(), Name: name, Cron: normalized, Run: run}
	entryID, err := s.cron.AddFunc(normalized, func() { s.execute(j.ID) })
	if err != nil {
		return "", fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[j.ID] = j
	s.entries[j.ID] = entryID
	return j.ID, nil
}

// RemoveJob unschedules a job by ID.
func (s *Service) RemoveJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(jobID)
}

func (s *Service) removeLocked(jobID string) {
	if entryID, ok := s.entries[jobID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, jobID)
	}
	delete(s.jobs, jobID)
}

// RunNow executes a job immediately, outside its schedule.
func (s *Service) RunNow(jobID string) error {
	s.mu.RLock()
	j, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	s.execute(j.ID)
	return nil
}

// ListJobs returns all scheduled jobs with their last and next run times.
func (s *Service) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for id, j := range s.jobs {
		info := JobInfo{ID: j.ID, Name: j.Name, Cron: j.Cron}
		if j.LastRunAt != nil {
			last := j.LastRunAt.Format(time.RFC3339)
			info.LastRunAt = &last
		}
		if entryID, ok := s.entries[id]; ok {
			if next := s.cron.Entry(entryID).Next; !next.IsZero() {
				nextStr := next.Format(time.RFC3339)
				info.NextRun = &nextStr
			}
		}
		infos = append(infos, info)
	}
	return infos
}

func (s *Service) execute(jobID string) {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	j.LastRunAt = &now
	run := j.Run
	s.mu.Unlock()

	run()
}

// normalizeCron converts 5-field cron to 6-field format by prepending seconds
// 5-field: "minute hour day month dow" (standard cron)
// 6-field: "second minute hour day month dow" (robfig/cron with WithSeconds)
func normalizeCron(cronExpr string) (string, error) {
	cronExpr = strings.TrimSpace(cronExpr)

	fields := strings.Fields(cronExpr)
	if len(fields) == 6 {
		parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cronExpr); err == nil {
			return cronExpr, nil
		}
	}

	if len(fields) == 5 {
		if _, err := cron.ParseStandard(cronExpr); err != nil {
			return "", fmt.Errorf("invalid 5-field cron expression: %w", err)
		}
		// Prepend seconds (0 = run at 0 seconds of the minute)
		return "0 " + cronExpr, nil
	}

	return "", fmt.Errorf("invalid cron expression: expected 5 or 6 fields, got %d", len(fields))
}
