package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

// SessionScoped is per-session state held in process memory.
type SessionScoped interface {
	ActiveSessions() []string
	ForgetSession(sessionID string)
}

// Purger drops entries whose own expiry has passed.
type Purger interface {
	PurgeExpired(now time.Time) int
}

// SessionJanitor releases per-session state once the session has expired
// from the store, for sessions that never log out.
type SessionJanitor struct {
	sessions session.Store
	scoped   []SessionScoped
	purgers  []Purger
	log      *zap.Logger
	now      func() time.Time
}

func NewSessionJanitor(sessions session.Store, log *zap.Logger) *SessionJanitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionJanitor{sessions: sessions, log: log.Named("SessionJanitor"), now: time.Now}
}

// Track adds holders whose sessions are checked on every sweep.
func (j *SessionJanitor) Track(scoped ...SessionScoped) *SessionJanitor {
	j.scoped = append(j.scoped, scoped...)
	return j
}

// Purge adds stores that expire entries on their own clock.
func (j *SessionJanitor) Purge(purgers ...Purger) *SessionJanitor {
	j.purgers = append(j.purgers, purgers...)
	return j
}

// Sweep forgets every tracked session the store no longer knows and
// returns how many were released.
func (j *SessionJanitor) Sweep(ctx context.Context) int {
	for _, p := range j.purgers {
		if n := p.PurgeExpired(j.now()); n > 0 {
			j.log.Debug("purged expired entries", zap.Int("count", n))
		}
	}

	// A session can sit in several holders; look each one up once.
	gone := make(map[string]bool)
	for _, h := range j.scoped {
		for _, id := range h.ActiveSessions() {
			expired, seen := gone[id]
			if !seen {
				_, err := j.sessions.Get(ctx, id)
				switch {
				case errors.Is(err, session.ErrNotFound):
					expired = true
				case err != nil:
					j.log.Warn("session lookup failed during sweep", zap.Error(err))
				}
				gone[id] = expired
			}
			if expired {
				h.ForgetSession(id)
			}
		}
	}

	n := 0
	for _, expired := range gone {
		if expired {
			n++
		}
	}
	if n > 0 {
		j.log.Info("released expired sessions", zap.Int("count", n))
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (j *SessionJanitor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}
