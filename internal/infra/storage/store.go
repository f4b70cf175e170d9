package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"homework_portal/internal/domain/homework"
	"homework_portal/internal/infra/metrics"
)

// Backend names accepted by STORE_BACKEND.
const (
	BackendTelegram = "telegram"
	BackendBolt     = "bolt"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// prepare stamps the document and renders it for writing. Every backend
// writes exactly these bytes.
func prepare(data *homework.DataFile, now time.Time) ([]byte, error) {
	data.Version = homework.CurrentVersion
	data.UpdatedAt = now.UTC()
	data.EnsureContainers()
	return Encode(data)
}

// loadOrBootstrap migrates raw when present, otherwise persists a fresh
// document so the first request sees a stored revision.
func loadOrBootstrap(ctx context.Context, store homework.Store, raw []byte, revision string, now time.Time) (*homework.Snapshot, error) {
	if raw == nil {
		fresh := homework.NewDataFile(now)
		rev, err := store.Save(ctx, fresh, "")
		if err != nil {
			return nil, err
		}
		return &homework.Snapshot{Data: fresh, Revision: rev}, nil
	}
	data, err := Migrate(raw)
	if err != nil {
		return nil, err
	}
	return &homework.Snapshot{Data: data, Revision: revision}, nil
}

type instrumented struct {
	next    homework.Store
	backend string
	logger  *logrus.Entry
}

// Instrumented wraps a store with metrics and logging.
func Instrumented(next homework.Store, backend string, logger *logrus.Entry) homework.Store {
	return &instrumented{next: next, backend: backend, logger: logger.WithField("backend", backend)}
}

func (s *instrumented) Load(ctx context.Context) (*homework.Snapshot, error) {
	start := time.Now()
	snap, err := s.next.Load(ctx)
	s.observe("load", start, err)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load data file")
		return nil, err
	}
	s.logger.WithField("revision", snap.Revision).Debug("Data file loaded")
	return snap, nil
}

func (s *instrumented) Save(ctx context.Context, data *homework.DataFile, expectedRevision string) (string, error) {
	start := time.Now()
	rev, err := s.next.Save(ctx, data, expectedRevision)
	s.observe("save", start, err)
	switch {
	case errors.Is(err, homework.ErrRevisionConflict):
		s.logger.WithField("expected_revision", expectedRevision).Warn("Data file changed since it was loaded")
		return "", err
	case err != nil:
		s.logger.WithError(err).Error("Failed to save data file")
		return "", err
	}
	s.logger.WithFields(logrus.Fields{"from": expectedRevision, "to": rev}).Info("Data file saved")
	return rev, nil
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, homework.ErrRevisionConflict):
		result = "conflict"
	case err != nil:
		result = "error"
	}
	metrics.StoreOperations().WithLabelValues(s.backend, op, result).Inc()
	metrics.StoreLatency().WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
}
