// Package jobs schedules the periodic background work.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Broadcaster pushes the announcement list to live subscribers.
type Broadcaster interface {
	BroadcastAnnouncements(ctx context.Context) error
}

// TokenPurger deletes refresh tokens that expired before cutoff.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Start registers the jobs on c and starts it.  announceSpec is a cron
// spec such as "@every 5s".
func Start(c *cron.Cron, announceSpec string, b Broadcaster, tokens TokenPurger, log *zap.Logger) error {
	if _, err := c.AddFunc(announceSpec, func() {
		if err := b.BroadcastAnnouncements(context.Background()); err != nil {
			log.Warn("announcement broadcast failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	if tokens != nil {
		if _, err := c.AddFunc("@hourly", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n, err := tokens.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				log.Warn("refresh token purge failed", zap.Error(err))
				return
			}
			if n > 0 {
				log.Info("purged refresh tokens", zap.Int64("count", n))
			}
		}); err != nil {
			return err
		}
	}
	c.Start()
	log.Info("cron jobs initialized", zap.Int("entries", len(c.Entries())))
	return nil
}
