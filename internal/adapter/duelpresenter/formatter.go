package duelpresenter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/park285/Cheese-Duel/internal/msgcat"
	"github.com/park285/Cheese-Duel/internal/session"
	"github.com/park285/Cheese-Duel/internal/util"
	"github.com/park285/Cheese-Duel/pkg/dueldto"
)

// PrefixProvider exposes the Prefix that Kakao messages should use.
type PrefixProvider interface {
	Prefix() string
}

// Formatter renders duel DTOs into Kakao-friendly text through the message
// catalog.
type Formatter struct {
	catalog        *msgcat.Catalog
	prefixProvider PrefixProvider
	clockLength    int
	logger         *zap.Logger
}

func NewFormatter(catalog *msgcat.Catalog, provider PrefixProvider, clockLength int, logger *zap.Logger) *Formatter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Formatter{catalog: catalog, prefixProvider: provider, clockLength: clockLength, logger: logger}
}

func (f *Formatter) Prefix() string {
	if f == nil || f.prefixProvider == nil {
		return ""
	}
	return strings.TrimSpace(f.prefixProvider.Prefix())
}

type data map[string]any

func (f *Formatter) text(key string, d data) string {
	if d == nil {
		d = data{}
	}
	if _, ok := d["Prefix"]; !ok {
		d["Prefix"] = f.Prefix()
	}
	out, err := f.catalog.Render(key, d)
	if err != nil {
		f.logger.Warn("msgcat_render_error", zap.String("key", key), zap.Error(err))
		return key
	}
	return out
}

// colorName returns "백" / "흑" for "white" / "black".
func (f *Formatter) colorName(color string) string {
	return f.text("duel.color."+color, nil)
}

// seatName prefers the display name, then the id, then the color.
func (f *Formatter) seatName(st *dueldto.BoardState, color string) string {
	seat := st.SeatOf(color)
	switch {
	case seat.Name != "":
		return seat.Name
	case seat.ID != "":
		return seat.ID
	default:
		return f.colorName(color)
	}
}

func (f *Formatter) Help() string {
	return util.FoldFirstLine(f.text("duel.help", data{"Length": f.clockLength}))
}

func (f *Formatter) Started(st *dueldto.BoardState) string {
	return f.text("duel.start.created", data{"White": f.seatName(st, "white"), "Black": st.Black.Name})
}

func (f *Formatter) Busy() string { return f.text("duel.start.busy", nil) }
func (f *Formatter) SelfDuel() string { return f.text("duel.start.self", nil) }
func (f *Formatter) NoTable() string { return f.text("duel.no_table", nil) }
func (f *Formatter) NotSeated() string { return f.text("duel.not_seated", nil) }
func (f *Formatter) MoveUsage() string { return f.text("duel.usage_move", nil) }
func (f *Formatter) BadPiece() string { return f.text("duel.promotion.bad", nil) }
func (f *Formatter) NoPromotion() string { return f.text("duel.promotion.none", nil) }
func (f *Formatter) Conflict() string { return f.text("duel.conflict", nil) }
func (f *Formatter) Failed() string { return f.text("duel.failed", nil) }
func (f *Formatter) Reset() string { return f.text("duel.reset", nil) }

func (f *Formatter) NotYourTurn(st *dueldto.BoardState) string {
	player := ""
	if seat := st.SeatOf(st.Turn); seat.Name != "" {
		player = seat.Name
	}
	return f.text("duel.not_your_turn", data{"Color": f.colorName(st.Turn), "Player": player})
}

// MoveRejected explains why a proposed move was not applied.
func (f *Formatter) MoveRejected(reason session.RejectReason, move string) string {
	switch reason {
	case session.ReasonFinished:
		return f.text("duel.move.finished", nil)
	case session.ReasonPromotionPending:
		return f.text("duel.move.promotion_pending", nil)
	default:
		return f.text("duel.move.illegal", data{"Move": move})
	}
}

// Move announces an applied move for mover ("white"/"black") and whatever it
// caused: a promotion prompt, a check, or a captured king.
func (f *Formatter) Move(st *dueldto.BoardState, mover string) string {
	lines := []string{f.text("duel.move.applied", data{"Player": f.seatName(st, mover), "Move": st.LastMove})}
	if st.Promotion != "" {
		lines = append(lines, f.text("duel.promotion.prompt", data{"Player": f.seatName(st, mover), "Square": st.Promotion}))
	}
	return strings.Join(append(lines, f.aftermath(st)...), "\n")
}

func (f *Formatter) Promoted(st *dueldto.BoardState, mover, square, piece string) string {
	lines := []string{f.text("duel.promotion.done", data{
		"Player": f.seatName(st, mover),
		"Square": square,
		"Piece":  f.text("duel.piece."+piece, nil),
	})}
	return strings.Join(append(lines, f.aftermath(st)...), "\n")
}

func (f *Formatter) aftermath(st *dueldto.BoardState) []string {
	if st.Finished && st.Reason == string(session.EndKingCaptured) {
		return []string{f.text("duel.king_captured", data{"Winner": f.seatName(st, st.Winner)})}
	}
	if st.ClockRunning && len(st.Checked) > 0 {
		checked := st.Checked[0]
		if len(st.Checked) > 1 {
			checked = st.Turn
		}
		return []string{f.text("duel.check", data{"Checked": f.seatName(st, checked), "Length": st.ClockLeft})}
	}
	return nil
}

func (f *Formatter) Undo(st *dueldto.BoardState, ok bool) string {
	if !ok {
		return f.text("duel.undo.none", nil)
	}
	return f.text("duel.undo.done", data{"Color": f.colorName(st.Turn)})
}

func (f *Formatter) Redo(st *dueldto.BoardState, ok bool) string {
	if !ok {
		return f.text("duel.redo.none", nil)
	}
	lines := []string{f.text("duel.redo.done", data{"Color": f.colorName(st.Turn)})}
	return strings.Join(append(lines, f.aftermath(st)...), "\n")
}

func (f *Formatter) Resign(st *dueldto.BoardState, ok bool) string {
	if !ok {
		return f.text("duel.resign.none", nil)
	}
	loser := "white"
	if st.Winner == "white" {
		loser = "black"
	}
	return f.text("duel.resign.done", data{"Loser": f.seatName(st, loser), "Winner": f.seatName(st, st.Winner)})
}

func (f *Formatter) Status(st *dueldto.BoardState) string {
	if st == nil {
		return f.NoTable()
	}
	d := data{
		"White":     f.seatName(st, "white"),
		"Black":     f.seatName(st, "black"),
		"Moves":     len(st.MoveLog),
		"Last":      st.LastMove,
		"Opening":   "",
		"Finished":  st.Finished,
		"Result":    "",
		"Color":     f.colorName(st.Turn),
		"Player":    st.SeatOf(st.Turn).Name,
		"Promotion": st.Promotion,
		"Clock":     0,
	}
	if st.OpeningCode != "" {
		d["Opening"] = strings.TrimSpace(st.OpeningCode + " " + st.OpeningTitle)
	}
	if st.Finished {
		d["Result"] = f.text("duel.result."+st.Reason, data{"Winner": f.seatName(st, st.Winner)})
	}
	if st.ClockRunning {
		d["Clock"] = st.ClockLeft
	}
	return f.text("duel.status", d)
}

// ClockTick is sent every few units while a check clock runs.
func (f *Formatter) ClockTick(checked string, remaining int) string {
	return f.text("duel.clock.tick", data{"Checked": checked, "Remaining": remaining})
}

func (f *Formatter) ClockExpired(checked, winner string) string {
	return f.text("duel.clock.expired", data{"Checked": checked, "Winner": winner})
}

// PlayerLabel names a player for clock notices, falling back to the color.
func (f *Formatter) PlayerLabel(name, id, color string) string {
	switch {
	case name != "":
		return name
	case id != "":
		return id
	default:
		return f.colorName(color)
	}
}
