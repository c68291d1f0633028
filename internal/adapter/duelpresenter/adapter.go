package duelpresenter

import (
	"context"
	"fmt"

	"github.com/park285/Cheese-Duel/internal/duel"
	"github.com/park285/Cheese-Duel/internal/render"
	"github.com/park285/Cheese-Duel/internal/rules"
	"github.com/park285/Cheese-Duel/pkg/dueldto"
)

func ToDTO(s *duel.Snapshot) *dueldto.BoardState {
	if s == nil || s.Table == nil {
		return nil
	}
	v := s.View
	st := &dueldto.BoardState{
		TableID:      s.Table.ID,
		Room:         s.Table.Room,
		White:        toSeat(s.Table.White),
		Black:        toSeat(s.Table.Black),
		Turn:         v.Turn.String(),
		MoveLog:      append([]string(nil), s.Table.Moves...),
		LastMove:     s.LastText,
		OpeningCode:  s.OpeningCode,
		OpeningTitle: s.OpeningTitle,
		ClockRunning: v.ClockRunning,
		ClockLeft:    v.ClockLeft,
		Finished:     v.Outcome.Finished,
		Reason:       string(v.Outcome.Reason),
		CanUndo:      v.CanUndo,
		CanRedo:      v.CanRedo,
	}
	if v.Checks.White {
		st.Checked = append(st.Checked, rules.White.String())
	}
	if v.Checks.Black {
		st.Checked = append(st.Checked, rules.Black.String())
	}
	if v.Promotion.Active {
		st.Promotion = v.Promotion.Square.String()
	}
	if v.Outcome.Finished {
		st.Winner = v.Outcome.Winner.String()
	}
	return st
}

func toSeat(p duel.Player) dueldto.Seat {
	return dueldto.Seat{ID: p.ID, Name: p.Name}
}

// RenderBoard draws the snapshot's board with last move, check and promotion
// marks. HUD text is ASCII only.
func RenderBoard(ctx context.Context, r *render.Renderer, s *duel.Snapshot) ([]byte, error) {
	if r == nil || s == nil {
		return nil, nil
	}
	v := s.View
	opts := render.Options{
		Header: fmt.Sprintf("Move %d", len(s.Table.Moves)),
		Status: hudStatus(s),
	}
	if v.LastMove.Valid {
		lm := v.LastMove
		opts.LastMove = &lm
	}
	for _, c := range []rules.Color{rules.White, rules.Black} {
		if !v.Checks.For(c) {
			continue
		}
		if sq, ok := rules.KingSquare(&v.Board, c); ok {
			opts.Checked = append(opts.Checked, sq)
		}
	}
	if v.Promotion.Active {
		sq := v.Promotion.Square
		opts.Promotion = &sq
	}
	if s.OpeningCode != "" {
		opts.Header += " | " + s.OpeningCode
	}
	return r.RenderPNG(ctx, &v.Board, opts)
}

func hudStatus(s *duel.Snapshot) string {
	v := s.View
	if v.Outcome.Finished {
		return v.Outcome.Winner.String() + " wins"
	}
	status := v.Turn.String() + " to move"
	if v.ClockRunning {
		status += fmt.Sprintf(" | check %d", v.ClockLeft)
	}
	return status
}
