package cron

import (
	"context"
	"time"
)

// SessionSweeper removes verification sessions idle longer than a TTL.
type SessionSweeper interface {
	Sweep(ttl time.Duration) int
}

// VerificationJobs contains verification-related background jobs.
type VerificationJobs struct {
	sweeper SessionSweeper
	ttl     time.Duration
}

func NewVerificationJobs(sweeper SessionSweeper, ttl time.Duration) *VerificationJobs {
	return &VerificationJobs{sweeper: sweeper, ttl: ttl}
}

// RegisterJobs registers all verification-related background jobs.
func (j *VerificationJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("sweep_expired_verification_sessions", 5*time.Minute, j.SweepExpiredSessions)
}

// SweepExpiredSessions drops abandoned flows so they do not accumulate.
func (j *VerificationJobs) SweepExpiredSessions(ctx context.Context) error {
	j.sweeper.Sweep(j.ttl)
	return nil
}
