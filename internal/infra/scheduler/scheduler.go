package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const digestTimeout = 2 * time.Minute

// DigestSender posts the daily digest.
type DigestSender interface {
	SendDigest(ctx context.Context) error
}

type DigestScheduler struct {
	cronEngine *cron.Cron
	digest     DigestSender
	logger     *logrus.Entry
	cronSpec   string
}

// NewDigestScheduler runs the digest on cronSpec, evaluated in loc
// (e.g. "0 20 * * *" for 20:00 every day).
func NewDigestScheduler(digest DigestSender, cronSpec string, loc *time.Location, logger *logrus.Entry) *DigestScheduler {
	return &DigestScheduler{
		cronEngine: cron.New(cron.WithLocation(loc)),
		digest:     digest,
		logger:     logger.WithField("component", "scheduler"),
		cronSpec:   cronSpec,
	}
}

// Start registers the digest job and starts the cron engine. An empty cron spec
// leaves the scheduler idle.
func (s *DigestScheduler) Start() error {
	if s.cronSpec == "" {
		s.logger.Info("Digest cron spec is empty, scheduler disabled")
		return nil
	}

	s.logger.WithField("cron_spec", s.cronSpec).Info("Starting digest scheduler...")
	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.runDigest); err != nil {
		return fmt.Errorf("could not add digest cron job: %w", err)
	}
	s.cronEngine.Start()
	s.logger.Info("Digest scheduler started")
	return nil
}

func (s *DigestScheduler) runDigest() {
	s.logger.Info("Cron job triggered for daily digest")
	ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
	defer cancel()
	if err := s.digest.SendDigest(ctx); err != nil {
		s.logger.WithError(err).Error("Error during daily digest")
	}
}

// Stop waits for a running job to finish.
func (s *DigestScheduler) Stop() {
	s.logger.Info("Stopping digest scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Digest scheduler gracefully stopped")
}
