// Package session is the duel state machine: it owns the board, applies
// validated moves with their side effects, keeps undo/redo history, and runs
// the check clock.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/park285/Cheese-Duel/internal/rules"
	"go.uber.org/zap"
)

const (
	DefaultClockLength = 15
	DefaultClockUnit   = time.Second
)

// ErrInconsistent is the panic value raised when a king is missing from an
// ongoing game. Every mutation recomputes the outcome, so seeing it means a
// mutation path skipped that step.
var ErrInconsistent = errors.New("session: king missing while game is ongoing")

type Config struct {
	ClockLength int
	ClockUnit   time.Duration
	Scheduler   Scheduler
	// Observer receives clock events. It is called without the session lock
	// held and may call back into the session.
	Observer func(Event)
}

type Session struct {
	mu      sync.Mutex
	cfg     Config
	logger  *zap.Logger
	cur     State
	past    []State
	future  []State
	outcome Outcome
	clock   checkClock
	events  []Event
}

func New(cfg Config, logger *zap.Logger) *Session {
	if cfg.ClockLength <= 0 {
		cfg.ClockLength = DefaultClockLength
	}
	if cfg.ClockUnit <= 0 {
		cfg.ClockUnit = DefaultClockUnit
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TickerScheduler{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{cfg: cfg, logger: logger, cur: initialState()}
}

// ProposeMove validates and applies from -> to for the side to move.
func (s *Session) ProposeMove(from, to rules.Square) MoveResult {
	var res MoveResult
	s.locked(func() { res = s.proposeMoveLocked(from, to) })
	return res
}

func (s *Session) proposeMoveLocked(from, to rules.Square) MoveResult {
	if s.outcome.Finished {
		return rejected(ReasonFinished)
	}
	if s.cur.Promotion.Active {
		return rejected(ReasonPromotionPending)
	}
	if !from.Valid() || !to.Valid() {
		return rejected(ReasonInvalidSquare)
	}
	for _, c := range [2]rules.Color{rules.White, rules.Black} {
		if _, ok := rules.KingSquare(&s.cur.Board, c); !ok {
			panic(ErrInconsistent)
		}
	}
	pos := s.cur.position()
	if !rules.IsLegal(&pos, from, to) {
		return rejected(ReasonIllegal)
	}

	s.past = append(s.past, s.cur)
	s.future = nil

	b := &s.cur.Board
	p := b.PieceAt(from)
	castling := rules.IsCastling(p, from, to)
	enPassant := rules.IsEnPassant(b, p, from, to)

	*b = b.WithMove(from, to)
	if castling {
		kingside := to.Col > from.Col
		rookFrom := rules.CastlingRookFrom(p.Color, kingside)
		*b = b.WithMove(rookFrom, rules.CastlingRookTo(p.Color, kingside))
	}
	if enPassant {
		b.Set(rules.Square{Row: from.Row, Col: to.Col}, rules.NoPiece)
	}
	s.cur.Castling = s.cur.Castling.After(p, from, to)
	s.cur.LastMove = rules.LastMove{Valid: true, Piece: p, From: from, To: to}

	if rules.IsPromotion(p, to) {
		b.Set(to, rules.NoPiece)
		s.cur.Promotion = PendingPromotion{Active: true, Square: to}
		s.settleLocked(clockFollow)
		return MoveResult{Status: MoveAwaitingPromotion}
	}
	s.cur.Turn = s.cur.Turn.Opponent()
	s.settleLocked(clockFollow)
	return MoveResult{Status: MoveApplied}
}

// ResolvePromotion places the chosen piece on the pending square and passes
// the turn. It reports false when no promotion is pending or kind is not a
// promotion piece.
func (s *Session) ResolvePromotion(kind rules.Kind) bool {
	var ok bool
	s.locked(func() {
		if s.outcome.Finished || !s.cur.Promotion.Active || !kind.Promotable() {
			return
		}
		s.cur.Board.Set(s.cur.Promotion.Square, rules.Piece{Kind: kind, Color: s.cur.Turn})
		s.cur.Promotion = PendingPromotion{}
		s.cur.LastMove = rules.LastMove{}
		s.cur.Turn = s.cur.Turn.Opponent()
		s.settleLocked(clockFollow)
		ok = true
	})
	return ok
}

// Undo restores the state before the most recent move. The clock is always
// cleared.
func (s *Session) Undo() bool {
	var ok bool
	s.locked(func() {
		if s.outcome.Finished || len(s.past) == 0 {
			return
		}
		s.future = append(s.future, s.cur)
		s.cur = s.past[len(s.past)-1]
		s.past = s.past[:len(s.past)-1]
		s.settleLocked(clockClear)
		ok = true
	})
	return ok
}

// Redo reapplies the most recently undone state and starts a fresh clock if
// that state has a side in check.
func (s *Session) Redo() bool {
	var ok bool
	s.locked(func() {
		if s.outcome.Finished || len(s.future) == 0 {
			return
		}
		s.past = append(s.past, s.cur)
		s.cur = s.future[len(s.future)-1]
		s.future = s.future[:len(s.future)-1]
		s.settleLocked(clockFresh)
		ok = true
	})
	return ok
}

// Reset returns to the starting position and drops all history.
func (s *Session) Reset() {
	s.locked(func() {
		s.stopClockLocked()
		s.cur = initialState()
		s.past = nil
		s.future = nil
		s.outcome = Outcome{}
		s.settleLocked(clockClear)
	})
}

// Resign ends the game in favour of color's opponent.
func (s *Session) Resign(color rules.Color) bool {
	var ok bool
	s.locked(func() {
		if s.outcome.Finished {
			return
		}
		s.outcome = Outcome{Finished: true, Winner: color.Opponent(), Reason: EndResigned}
		s.stopClockLocked()
		ok = true
	})
	return ok
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Board:        s.cur.Board,
		Turn:         s.cur.Turn,
		Checks:       s.cur.Checks,
		LastMove:     s.cur.LastMove,
		Promotion:    s.cur.Promotion,
		Outcome:      s.outcome,
		ClockRunning: s.clock.running,
		ClockLeft:    s.clock.remaining,
		CanUndo:      !s.outcome.Finished && len(s.past) > 0,
		CanRedo:      !s.outcome.Finished && len(s.future) > 0,
	}
}

// Close stops the clock. The session stays readable.
func (s *Session) Close() {
	s.mu.Lock()
	s.stopClockLocked()
	s.mu.Unlock()
}

type clockPolicy uint8

const (
	// clockFollow starts a clock on a new lone check and clears it once no
	// side is in check. A running clock keeps counting.
	clockFollow clockPolicy = iota
	// clockFresh discards any running clock, then follows.
	clockFresh
	clockClear
)

// settleLocked recomputes every derived field from the board. All transitions
// end here.
func (s *Session) settleLocked(policy clockPolicy) {
	s.cur.Checks = rules.Checks(&s.cur.Board)

	if !s.outcome.Finished {
		if _, ok := rules.KingSquare(&s.cur.Board, rules.White); !ok {
			s.outcome = Outcome{Finished: true, Winner: rules.Black, Reason: EndKingCaptured}
		} else if _, ok := rules.KingSquare(&s.cur.Board, rules.Black); !ok {
			s.outcome = Outcome{Finished: true, Winner: rules.White, Reason: EndKingCaptured}
		}
		if s.outcome.Finished {
			s.logger.Info("duel_king_captured", zap.String("winner", s.outcome.Winner.String()))
		}
	}
	if s.outcome.Finished {
		s.stopClockLocked()
		return
	}

	switch policy {
	case clockClear:
		s.stopClockLocked()
		return
	case clockFresh:
		s.stopClockLocked()
	}
	checks := s.cur.Checks
	switch {
	case !checks.Any():
		s.stopClockLocked()
	case checks.White != checks.Black && !s.clock.running:
		checked, _ := checkedSide(checks, s.cur.Turn)
		s.startClockLocked(checked)
	}
}

// locked runs fn under the session lock, then delivers the events it queued.
func (s *Session) locked(fn func()) {
	var events []Event
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn()
		events = s.drain()
	}()
	s.emit(events)
}

func (s *Session) queue(ev Event) {
	if s.cfg.Observer != nil {
		s.events = append(s.events, ev)
	}
}

func (s *Session) drain() []Event {
	events := s.events
	s.events = nil
	return events
}

func (s *Session) emit(events []Event) {
	for _, ev := range events {
		s.cfg.Observer(ev)
	}
}
