package crontab

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/crontab"

	"knowledge-assist/chat-api/internal/config"
	"knowledge-assist/chat-api/internal/domain/conversation"
	"knowledge-assist/chat-api/internal/infrastructure/logger"
	"knowledge-assist/chat-api/internal/infrastructure/metrics"
	"knowledge-assist/chat-api/internal/utils/platformerrors"
)

const (
	DefaultJanitorInterval = 30               // in minutes
	CronJobTimeout         = 10 * time.Minute // Timeout for each cron job execution
)

type Crontab struct {
	ctab   *crontab.Crontab
	chunks conversation.ChunkStore
}

func NewCrontab(chunks conversation.ChunkStore) *Crontab {
	return &Crontab{
		ctab:   crontab.New(),
		chunks: chunks,
	}
}

func (c *Crontab) Run(ctx context.Context) error {
	log := logger.GetLogger()
	// execute once on server start
	c.sweepProvisionalChunks(ctx)

	// Schedule janitor job if enabled
	cfg := config.GetGlobal()
	if cfg != nil && cfg.JanitorEnabled {
		interval := cfg.JanitorIntervalMinutes
		if interval <= 0 {
			interval = DefaultJanitorInterval
		}

		cronExpr := fmt.Sprintf("*/%d * * * *", interval)
		if err := c.ctab.AddJob(cronExpr, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
			defer cancel()
			c.sweepProvisionalChunks(jobCtx)
		}); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to add janitor job")
		}
		log.Warn().Msgf("Provisional chunk janitor scheduled: every %d minute(s)", interval)
	}

	// Schedule environment reload job
	if err := c.ctab.AddJob("* * * * *", func() {
		// Reload config
		config.Load()
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to add env reload job")
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

// sweepProvisionalChunks deletes chunk accumulations that were never
// re-keyed to a finalized message and have aged past the configured window.
func (c *Crontab) sweepProvisionalChunks(ctx context.Context) {
	log := logger.GetLogger()

	maxAge := 24 * time.Hour
	if cfg := config.GetGlobal(); cfg != nil && cfg.ProvisionalMaxAge > 0 {
		maxAge = cfg.ProvisionalMaxAge
	}

	deleted, err := c.chunks.DeleteProvisionalOlderThan(ctx, maxAge)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sweep provisional chunks")
		return
	}

	if deleted > 0 {
		metrics.ProvisionalChunksDeleted.Add(float64(deleted))
		log.Info().Msgf("Swept %d provisional chunk rows", deleted)
	}
}
