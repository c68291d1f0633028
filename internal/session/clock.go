package session

import (
	"sync"
	"time"

	"github.com/park285/Cheese-Duel/internal/rules"
	"go.uber.org/zap"
)

// Scheduler runs fn every d until the returned cancel func is called. cancel
// must not wait for an in-flight fn: it may be called while fn is blocked on
// the session lock.
type Scheduler interface {
	Every(d time.Duration, fn func()) (cancel func())
}

// TickerScheduler drives callbacks from a time.Ticker on its own goroutine.
type TickerScheduler struct{}

func (TickerScheduler) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	stop := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

// EventKind identifies a clock notification.
type EventKind uint8

const (
	EventClockStarted EventKind = iota + 1
	EventClockTick
	EventClockExpired
)

// Event is delivered to Config.Observer outside the session lock.
type Event struct {
	Kind EventKind
	// Checked is the side in check when the clock started or ticked.
	Checked rules.Color
	// Remaining units after this event. Zero on expiry.
	Remaining int
	// Winner is set on EventClockExpired.
	Winner rules.Color
}

// checkClock is the countdown started when exactly one side is in check.
// gen increments on every start and stop so a tick queued by a cancelled
// schedule is recognised and dropped.
type checkClock struct {
	running   bool
	remaining int
	gen       uint64
	cancel    func()
}

func (s *Session) startClockLocked(checked rules.Color) {
	s.stopClockLocked()
	s.clock.gen++
	gen := s.clock.gen
	s.clock.running = true
	s.clock.remaining = s.cfg.ClockLength
	s.clock.cancel = s.cfg.Scheduler.Every(s.cfg.ClockUnit, func() { s.tick(gen) })
	s.logger.Debug("check_clock_started",
		zap.String("checked", checked.String()),
		zap.Int("units", s.clock.remaining),
	)
	s.queue(Event{Kind: EventClockStarted, Checked: checked, Remaining: s.clock.remaining})
}

func (s *Session) stopClockLocked() {
	if s.clock.cancel != nil {
		s.clock.cancel()
		s.clock.cancel = nil
	}
	if s.clock.running {
		s.clock.gen++
	}
	s.clock.running = false
	s.clock.remaining = 0
}

func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.clock.gen || !s.clock.running || s.outcome.Finished {
		s.mu.Unlock()
		return
	}
	s.clock.remaining--
	if s.clock.remaining > 0 {
		checked, _ := checkedSide(s.cur.Checks, s.cur.Turn)
		s.queue(Event{Kind: EventClockTick, Checked: checked, Remaining: s.clock.remaining})
	} else {
		s.expireLocked()
	}
	events := s.drain()
	s.mu.Unlock()
	s.emit(events)
}

// expireLocked decides the game when the countdown reaches zero. A lone side
// in check loses; with both in check the side to move loses.
func (s *Session) expireLocked() {
	loser, ok := checkedSide(s.cur.Checks, s.cur.Turn)
	s.stopClockLocked()
	if !ok {
		return
	}
	s.outcome = Outcome{Finished: true, Winner: loser.Opponent(), Reason: EndClockExpired}
	s.logger.Info("check_clock_expired", zap.String("winner", loser.Opponent().String()))
	s.queue(Event{Kind: EventClockExpired, Winner: loser.Opponent()})
}

// checkedSide names the side the clock runs against: the lone side in check,
// or the side to move when both are.
func checkedSide(checks rules.CheckStatus, turn rules.Color) (rules.Color, bool) {
	switch {
	case checks.White && checks.Black:
		return turn, true
	case checks.White:
		return rules.White, true
	case checks.Black:
		return rules.Black, true
	default:
		return turn, false
	}
}
