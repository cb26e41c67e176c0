package player

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPollInterval approximates the original display-refresh cadence.
const DefaultPollInterval = 250 * time.Millisecond

// Handle controls a running poll loop. Each widget owns its own handle;
// stopping one loop never affects another widget's loop on the same shared
// device.
type Handle struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Stop cancels the loop and waits for the in-flight tick to finish.
// Idempotent.
func (h *Handle) Stop() {
	h.once.Do(func() { close(h.stop) })
	<-h.done
}

// StartPolling launches a reconciliation loop that copies the player's
// authoritative state into the manager's local [PlaybackState] once per
// interval. Query failures are treated as transient: the tick is skipped
// and the loop reschedules regardless.
func (m *Manager) StartPolling(interval time.Duration) *Handle {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)

	go func() {
		defer close(h.done)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-h.stop
			cancel()
		}()

		for {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			player := m.playerRef()
			if player == nil {
				continue
			}

			state, err := player.CurrentState(ctx)
			if err != nil || state == nil {
				continue
			}
			m.applySDKState(state)
		}
	}()

	return h
}
