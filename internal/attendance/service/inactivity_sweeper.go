package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/opsdesk/attendance/internal/attendance/notify"
)

// InactivitySweeper periodically looks for open WFH sessions that have gone
// quiet past the policy's inactivity threshold and emits a wfh_inactive
// notification for each. It never clocks anyone out.
//
// An interval of 0 disables the sweeper.
type InactivitySweeper struct {
	engine   *Engine
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	mu sync.Mutex
	// flagged remembers the last activity instant already reported per
	// record, so one quiet spell produces one notification.
	flagged map[string]time.Time
}

type SweeperConfig struct {
	// IntervalMinutes is how often the sweeper runs. 0 disables it.
	IntervalMinutes int
}

// NewInactivitySweeper creates a sweeper but does not start it.
func NewInactivitySweeper(e *Engine, cfg SweeperConfig, logger *log.Logger) *InactivitySweeper {
	s := &InactivitySweeper{
		engine:   e,
		interval: time.Duration(cfg.IntervalMinutes) * time.Minute,
		logger:   logger,
		done:     make(chan struct{}),
		flagged:  make(map[string]time.Time),
	}
	if s.interval <= 0 {
		// No loop will ever run to close it.
		close(s.done)
	}
	return s
}

// Start begins the background loop. It sweeps once immediately and then on
// every interval until ctx is cancelled or Stop is called.
func (s *InactivitySweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Printf("wfh inactivity sweeper disabled (interval=0)")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)

	s.logger.Printf("wfh inactivity sweeper started (interval=%s, threshold=%s)",
		s.interval, s.engine.policy.InactivityThreshold())
}

// Stop signals the loop to exit and waits for it. Safe to call repeatedly.
func (s *InactivitySweeper) Stop() {
	if s.cancel == nil && s.interval > 0 {
		return // never started
	}
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	<-s.done
}

func (s *InactivitySweeper) loop(ctx context.Context) {
	defer close(s.done)

	s.sweepAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *InactivitySweeper) sweepAndLog(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Printf("wfh inactivity sweep error: %v", err)
		return
	}
	if n > 0 {
		s.logger.Printf("wfh inactivity sweep: flagged %d session(s)", n)
	}
}

// Sweep runs one pass and returns how many sessions were newly flagged.
func (s *InactivitySweeper) Sweep(ctx context.Context) (int, error) {
	e := s.engine
	now := e.clock()
	recs, err := e.records.ListOpenWFH(ctx, e.policy.Day(now))
	if err != nil {
		return 0, fmt.Errorf("list open wfh: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live := make(map[string]struct{}, len(recs))
	flagged := 0
	for _, rec := range recs {
		live[rec.ID] = struct{}{}
		lv := e.Liveness(rec, now)
		if lv == nil || !lv.Inactive {
			continue
		}
		var last time.Time
		if rec.LastActivityTime != nil {
			last = *rec.LastActivityTime
		}
		if prev, ok := s.flagged[rec.ID]; ok && prev.Equal(last) {
			continue
		}
		s.flagged[rec.ID] = last

		name := rec.UserID
		if u, err := e.users.GetUser(ctx, rec.UserID); err == nil {
			name = u.Name
		}
		e.dispatch(ctx, notify.Event{
			ActorID:   rec.UserID,
			ActorName: name,
			Kind:      notify.KindWFHInactive,
			Mode:      rec.Mode,
			At:        now,
		})
		flagged++
	}
	for id := range s.flagged {
		if _, ok := live[id]; !ok {
			delete(s.flagged, id)
		}
	}
	return flagged, nil
}
