package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"homework_portal/internal/infra/logger"
)

type countingSender struct {
	calls int
	err   error
}

func (s *countingSender) SendDigest(context.Context) error {
	s.calls++
	return s.err
}

func TestEmptySpecDisablesScheduler(t *testing.T) {
	s := NewDigestScheduler(&countingSender{}, "", time.UTC, logger.Discard())
	require.NoError(t, s.Start())
	require.Empty(t, s.cronEngine.Entries())
	s.Stop()
}

func TestInvalidSpecFails(t *testing.T) {
	s := NewDigestScheduler(&countingSender{}, "every evening", time.UTC, logger.Discard())
	require.Error(t, s.Start())
}

func TestStartRegistersDigestJob(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	s := NewDigestScheduler(&countingSender{}, "0 20 * * *", loc, logger.Discard())
	require.NoError(t, s.Start())
	defer s.Stop()

	entries := s.cronEngine.Entries()
	require.Len(t, entries, 1)
	next := entries[0].Next.In(loc)
	require.Equal(t, 20, next.Hour())
	require.Equal(t, 0, next.Minute())
}

func TestRunDigestSwallowsErrors(t *testing.T) {
	sender := &countingSender{err: errors.New("chat unavailable")}
	s := NewDigestScheduler(sender, "0 20 * * *", time.UTC, logger.Discard())

	s.runDigest()
	require.Equal(t, 1, sender.calls)
}
