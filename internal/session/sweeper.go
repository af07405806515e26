package session

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cmdgate/cmdgate/internal/logging"
)

// Sweeper periodically removes expired sessions. Expiry is also
// enforced lazily on access; the sweep only reclaims memory for
// sessions nobody touches again.
type Sweeper struct {
	cron *cron.Cron
}

// NewSweeper schedules a sweep of m every interval.
func NewSweeper(m *Manager, interval time.Duration) (*Sweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	log := logging.With("session")
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if removed := m.Sweep(); removed > 0 {
			log.Debug().Int("removed", removed).Msg("swept expired sessions")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule session sweep: %w", err)
	}
	return &Sweeper{cron: c}, nil
}

// Start begins sweeping in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts sweeping; a sweep already running completes.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}
