package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/client"
)

// Poller refreshes the notification inbox. It reports whether a fetch happened.
type Poller interface {
	Poll(ctx context.Context) (bool, error)
}

// NotificationWorker polls the backend for new notifications on a fixed interval.
type NotificationWorker struct {
	poller   Poller
	interval time.Duration
	log      zerolog.Logger
	tick     func(time.Duration) (<-chan time.Time, func())
}

// NewNotificationWorker creates a new NotificationWorker. A non-positive
// interval falls back to one minute.
func NewNotificationWorker(poller Poller, interval time.Duration, log zerolog.Logger) *NotificationWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &NotificationWorker{
		poller:   poller,
		interval: interval,
		log:      log.With().Str("component", "notification_worker").Logger(),
		tick: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Start begins the polling loop. Call in a goroutine.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	c, stop := w.tick(w.interval)
	defer stop()

	w.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-c:
			w.pollOnce(ctx)
		}
	}
}

func (w *NotificationWorker) pollOnce(ctx context.Context) {
	polled, err := w.poller.Poll(ctx)
	switch {
	case err == nil:
		if polled {
			w.log.Debug().Msg("Notifications refreshed")
		}
	case errors.Is(err, client.ErrSessionMissing), errors.Is(err, client.ErrUnauthorized):
		// Nobody is signed in; try again on the next tick.
		w.log.Debug().Err(err).Msg("Poll skipped without session")
	case ctx.Err() != nil:
	default:
		w.log.Warn().Err(err).Msg("Notification poll failed")
	}
}
