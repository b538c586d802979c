package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/examprep/telegram-bot-go/internal/repository"
)

// SessionEvicter drops stale link sessions. Satisfied by
// *service.LinkingService.
type SessionEvicter interface {
	EvictStale() int
}

type CleanupJob struct {
	otpRepo  repository.OTPCodeRepository
	sessions SessionEvicter
	interval time.Duration
	done     chan struct{}
}

func NewCleanupJob(
	otpRepo repository.OTPCodeRepository,
	sessions SessionEvicter,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		otpRepo:  otpRepo,
		sessions: sessions,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "otp codes", j.otpRepo.DeleteExpired)

	if j.sessions != nil {
		if evicted := j.sessions.EvictStale(); evicted > 0 {
			log.Info().Int("count", evicted).Msg("evicted stale link sessions")
		}
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
