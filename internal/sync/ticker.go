package sync

import (
	"context"
	"log/slog"
	"time"
)

const tickCallTimeout = 5 * time.Second

// runRegenLoop asks the authority to credit regenerated energy on a fixed
// cadence for as long as the session that started it lives. Regeneration
// is a function of server wall-clock time, so a missed tick costs nothing;
// the next response carries the full credit.
func (c *Client) runRegenLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.regenInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.regenTick(ctx)
		}
	}
}

func (c *Client) regenTick(ctx context.Context) {
	user, ok := c.guard.CurrentUser()
	if !ok {
		return
	}

	epoch := c.currentEpoch()

	callCtx, cancel := context.WithTimeout(ctx, tickCallTimeout)
	defer cancel()

	energy, err := c.authority.RegenerateEnergy(callCtx, user.ID)
	if err != nil {
		// Periodic and self-correcting; a failed tick is not surfaced.
		c.log.Debug("energy regeneration tick failed", slog.Any("error", err))
		return
	}

	next := user.Clone()
	next.Energy = energy
	c.applyUser(ctx, epoch, next)
}

// RunPollRefresher re-fetches the poll list on the given cadence until the
// context ends. Intended to run as a background goroutine owned by the
// process lifecycle.
func (c *Client) RunPollRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			callCtx, cancel := context.WithTimeout(ctx, tickCallTimeout)
			if err := c.refreshPolls(callCtx); err != nil {
				c.log.Debug("poll refresh failed", slog.Any("error", err))
			}
			cancel()
		}
	}
}
