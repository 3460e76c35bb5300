// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/gicesite/internal/app/store/oauthstate"
	testimonialstore "github.com/dalemusser/gicesite/internal/app/store/testimonials"
	"github.com/dalemusser/gicesite/internal/app/system/mailer"
	"github.com/dalemusser/gicesite/internal/app/system/throttle"
	"go.uber.org/zap"
)

// OAuthStateCleanupJob removes expired Google sign-in state tokens.
func OAuthStateCleanupJob(store *oauthstate.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			n, err := store.Cleanup(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("cleaned up expired oauth states", zap.Int64("deleted", n))
			}
			return nil
		},
	}
}

// ThrottleSweepJob forgets per-IP buckets of clients idle longer than idle.
func ThrottleSweepJob(l *throttle.Limiter, idle time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "throttle-sweep",
		Interval: 10 * time.Minute,
		Deferred: true,
		Run: func(ctx context.Context) error {
			if n := l.Sweep(idle); n > 0 {
				logger.Debug("swept idle submit buckets", zap.Int("removed", n), zap.Int("remaining", l.Len()))
			}
			return nil
		},
	}
}

// DigestConfig addresses the pending testimonial digest.
type DigestConfig struct {
	To        string
	AppName   string
	ReviewURL string
	Interval  time.Duration // defaults to 24h
}

// PendingDigestJob emails staff a list of testimonials still awaiting
// approval. Nothing is sent when the queue is empty.
func PendingDigestJob(store *testimonialstore.Store, sender mailer.Sender, cfg DigestConfig, logger *zap.Logger) Job {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return Job{
		Name:     "pending-testimonial-digest",
		Interval: interval,
		Deferred: true,
		Run: func(ctx context.Context) error {
			pending, err := store.ListPendingSince(ctx, time.Time{})
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				return nil
			}

			items := make([]mailer.PendingItem, 0, len(pending))
			for _, t := range pending {
				items = append(items, mailer.PendingItem{
					Name:      t.Name,
					Submitted: t.CreatedAt.Format("2006-01-02"),
				})
			}
			text, html := mailer.PendingDigestEmail(mailer.PendingDigestEmailData{
				AppName:   cfg.AppName,
				Items:     items,
				ReviewURL: cfg.ReviewURL,
			})
			if err := sender.Send(mailer.Email{
				To:       cfg.To,
				Subject:  cfg.AppName + ": testimonials awaiting approval",
				TextBody: text,
				HTMLBody: html,
			}); err != nil {
				return err
			}
			logger.Info("sent pending testimonial digest", zap.Int("count", len(items)))
			return nil
		},
	}
}
