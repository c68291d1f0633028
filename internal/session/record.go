package session

import (
	"errors"
	"fmt"

	"github.com/park285/Cheese-Duel/internal/rules"
)

var ErrInvalidRecord = errors.New("invalid session record")

// Record is the persisted form of a session: current state, both history
// stacks and the outcome. The clock is not persisted; Restore starts a fresh
// one when a side is in check.
type Record struct {
	State   State   `json:"state"`
	Past    []State `json:"past,omitempty"`
	Future  []State `json:"future,omitempty"`
	Outcome Outcome `json:"outcome"`
}

func (s *Session) Export() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Record{
		State:   s.cur,
		Past:    append([]State(nil), s.past...),
		Future:  append([]State(nil), s.future...),
		Outcome: s.outcome,
	}
}

// Restore replaces the whole session with rec.
func (s *Session) Restore(rec Record) error {
	if err := validateState(rec.State); err != nil {
		return fmt.Errorf("%w: state: %v", ErrInvalidRecord, err)
	}
	for i, st := range rec.Past {
		if err := validateState(st); err != nil {
			return fmt.Errorf("%w: past[%d]: %v", ErrInvalidRecord, i, err)
		}
	}
	for i, st := range rec.Future {
		if err := validateState(st); err != nil {
			return fmt.Errorf("%w: future[%d]: %v", ErrInvalidRecord, i, err)
		}
	}
	if rec.Outcome.Finished && rec.Outcome.Winner != rules.White && rec.Outcome.Winner != rules.Black {
		return fmt.Errorf("%w: winner %d", ErrInvalidRecord, rec.Outcome.Winner)
	}

	s.locked(func() {
		s.stopClockLocked()
		s.cur = rec.State
		s.past = append([]State(nil), rec.Past...)
		s.future = append([]State(nil), rec.Future...)
		s.outcome = rec.Outcome
		s.settleLocked(clockFresh)
	})
	return nil
}

func validateState(st State) error {
	if st.Turn != rules.White && st.Turn != rules.Black {
		return fmt.Errorf("turn %d", st.Turn)
	}
	if st.Promotion.Active && !st.Promotion.Square.Valid() {
		return fmt.Errorf("promotion square %v", st.Promotion.Square)
	}
	if st.LastMove.Valid && (!st.LastMove.From.Valid() || !st.LastMove.To.Valid()) {
		return fmt.Errorf("last move %v-%v", st.LastMove.From, st.LastMove.To)
	}
	kings := map[rules.Color]int{}
	for r := range st.Board {
		for c := range st.Board[r] {
			if p := st.Board[r][c]; p.Kind == rules.King {
				kings[p.Color]++
			}
		}
	}
	if kings[rules.White] > 1 || kings[rules.Black] > 1 {
		return fmt.Errorf("more than one king per side")
	}
	return nil
}
