package service

import (
	"context"
	"log"
	"time"

	"github.com/gymstack/presence/internal/presence/store"
)

// OverstayWatchdog periodically flags sessions that have been open
// longer than a configurable threshold — usually a member who left
// without badging out.  It only marks sessions for review; this
// subsystem never closes or deletes a session on its own.
//
// A threshold of 0 disables the watchdog entirely.
type OverstayWatchdog struct {
	sessions store.SessionStore
	overstay time.Duration
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// WatchdogConfig holds the parameters for NewOverstayWatchdog.
type WatchdogConfig struct {
	// OverstayHours is how long a session may stay open before it is
	// flagged.  0 means never (watchdog will not start).
	OverstayHours int

	// IntervalMin is how often the watchdog sweeps.  Defaults to 30.
	IntervalMin int
}

// NewOverstayWatchdog creates a watchdog but does not start it.
// Call Start to begin the background loop.
func NewOverstayWatchdog(ss store.SessionStore, cfg WatchdogConfig, logger *log.Logger) *OverstayWatchdog {
	interval := time.Duration(cfg.IntervalMin) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	return &OverstayWatchdog{
		sessions: ss,
		overstay: time.Duration(cfg.OverstayHours) * time.Hour,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background loop.  It runs an immediate sweep on
// startup, then repeats on the configured interval.  The loop exits
// when ctx is cancelled or Stop is called.
func (w *OverstayWatchdog) Start(ctx context.Context) {
	if w.overstay <= 0 {
		w.logger.Printf("overstay watchdog disabled (overstay=0)")
		close(w.done)
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)

	go w.loop(ctx)

	w.logger.Printf("overstay watchdog started (overstay=%dh, interval=%dm)",
		int(w.overstay.Hours()), int(w.interval.Minutes()))
}

// Stop signals the watchdog to exit and waits for it to finish.
func (w *OverstayWatchdog) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
}

func (w *OverstayWatchdog) loop(ctx context.Context) {
	defer close(w.done)

	// Sweep immediately on startup to catch any backlog.
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *OverstayWatchdog) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.overstay)
	flagged, err := w.sessions.FlagOpenSessionsBefore(ctx, cutoff, store.FlagOverstay)
	if err != nil {
		w.logger.Printf("overstay sweep error: %v", err)
		return
	}
	if flagged > 0 {
		w.logger.Printf("overstay sweep: flagged %d sessions open since before %s",
			flagged, cutoff.Format(time.RFC3339))
	}
}
