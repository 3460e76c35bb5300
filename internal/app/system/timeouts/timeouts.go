// Package timeouts bounds every database and media-host call so a stalled
// backend surfaces as an error instead of a request that never finishes.
package timeouts

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Defaults apply until Configure overrides them.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultUpload = 60 * time.Second
)

var ping, short, medium, upload atomic.Int64

func init() { Reset() }

// Config carries overrides; zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Upload time.Duration
}

func Configure(cfg Config) {
	for _, s := range []struct {
		v *atomic.Int64
		d time.Duration
	}{{&ping, cfg.Ping}, {&short, cfg.Short}, {&medium, cfg.Medium}, {&upload, cfg.Upload}} {
		if s.d > 0 {
			s.v.Store(int64(s.d))
		}
	}
}

// Reset restores the defaults. Tests that Configure should defer it.
func Reset() {
	ping.Store(int64(DefaultPing))
	short.Store(int64(DefaultShort))
	medium.Store(int64(DefaultMedium))
	upload.Store(int64(DefaultUpload))
}

// Ping bounds health checks.
func Ping() time.Duration { return time.Duration(ping.Load()) }

// Short bounds single-document reads and writes.
func Short() time.Duration { return time.Duration(short.Load()) }

// Medium bounds list queries, counts and multi-step writes.
func Medium() time.Duration { return time.Duration(medium.Load()) }

// Upload bounds calls to the media host.
func Upload() time.Duration { return time.Duration(upload.Load()) }

// WithTimeout is context.WithTimeout plus a warning, on cancel, when the
// deadline is what ended op.
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, op string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if log != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("operation timed out", zap.String("operation", op), zap.Duration("timeout", d))
		}
		cancel()
	}
}
