// Package bot routes chat messages to duel tables and answers in the room.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-Duel/internal/adapter/duelpresenter"
	"github.com/park285/Cheese-Duel/internal/command"
	"github.com/park285/Cheese-Duel/internal/duel"
	"github.com/park285/Cheese-Duel/internal/irisfast"
	"github.com/park285/Cheese-Duel/internal/obslog"
	"github.com/park285/Cheese-Duel/internal/render"
	"github.com/park285/Cheese-Duel/internal/rules"
	"github.com/park285/Cheese-Duel/internal/session"
	"github.com/park285/Cheese-Duel/pkg/dueldto"
)

// tickAnnounceEvery controls how often a running check clock is announced.
const tickAnnounceEvery = 5

type Config struct {
	Prefix string
	// RoomAllowed filters rooms; nil admits all.
	RoomAllowed func(room string) bool
	// RequestTimeout bounds one command, store and render included.
	RequestTimeout time.Duration
}

type Handler struct {
	cfg       Config
	manager   *duel.Manager
	formatter *duelpresenter.Formatter
	presenter *duelpresenter.Presenter
	renderer  *render.Renderer
	logger    *zap.Logger
}

func NewHandler(manager *duel.Manager, formatter *duelpresenter.Formatter, presenter *duelpresenter.Presenter, renderer *render.Renderer, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Handler{
		cfg:       cfg,
		manager:   manager,
		formatter: formatter,
		presenter: presenter,
		renderer:  renderer,
		logger:    logger,
	}
}

// Handle processes one inbound chat message. Non-commands are ignored.
func (h *Handler) Handle(ctx context.Context, msg *irisfast.Message) {
	if msg == nil || strings.TrimSpace(msg.Msg) == "" {
		return
	}
	if h.cfg.RoomAllowed != nil && !h.cfg.RoomAllowed(msg.Room) {
		h.logger.Debug("room_not_allowed", zap.String("room", msg.Room))
		return
	}
	cmd, ok := command.Parse(h.cfg.Prefix, msg.Msg)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.cfg.RequestTimeout)
	defer cancel()

	room := msg.Room
	user := duel.Player{ID: msg.UserID(), Name: msg.SenderName()}
	obslog.Room(h.logger, room).Debug("duel_command", zap.String("user_id", user.ID), zap.Stringer("kind", cmd.Kind))

	switch cmd.Kind {
	case command.Help:
		h.say(room, h.formatter.Help())
	case command.Usage:
		if cmd.Of == command.Promote {
			h.say(room, h.formatter.BadPiece())
		} else {
			h.say(room, h.formatter.MoveUsage())
		}
	case command.Start:
		h.start(ctx, room, user, cmd.Opponent)
	case command.Move:
		h.move(ctx, room, user, cmd)
	case command.Promote:
		h.promote(ctx, room, user, cmd.Piece)
	case command.Undo:
		snap, ok, err := h.manager.Undo(ctx, room, user)
		if err != nil {
			h.fail(ctx, room, err)
			return
		}
		st := h.dto(ctx, snap)
		h.show(room, h.formatter.Undo(st, ok), st, ok)
	case command.Redo:
		snap, ok, err := h.manager.Redo(ctx, room, user)
		if err != nil {
			h.fail(ctx, room, err)
			return
		}
		st := h.dto(ctx, snap)
		h.show(room, h.formatter.Redo(st, ok), st, ok)
	case command.Reset:
		snap, err := h.manager.Reset(ctx, room, user)
		if err != nil {
			h.fail(ctx, room, err)
			return
		}
		h.show(room, h.formatter.Reset(), h.dto(ctx, snap), true)
	case command.Board:
		snap, err := h.manager.Board(ctx, room)
		if err != nil {
			h.fail(ctx, room, err)
			return
		}
		st := h.dto(ctx, snap)
		h.show(room, h.formatter.Status(st), st, true)
	case command.Resign:
		snap, ok, err := h.manager.Resign(ctx, room, user)
		if err != nil {
			h.fail(ctx, room, err)
			return
		}
		st := h.dto(ctx, snap)
		h.show(room, h.formatter.Resign(st, ok), st, ok)
	}
}

func (h *Handler) start(ctx context.Context, room string, user duel.Player, mention string) {
	var opponent duel.Player
	if mention != "" {
		opponent = duel.Player{Name: mention}
	}
	snap, err := h.manager.Open(ctx, room, user, opponent)
	if err != nil {
		h.fail(ctx, room, err)
		return
	}
	st := h.dto(ctx, snap)
	h.show(room, h.formatter.Started(st), st, true)
}

func (h *Handler) move(ctx context.Context, room string, user duel.Player, cmd command.Command) {
	var (
		reply *duel.MoveReply
		err   error
	)
	if cmd.Piece != rules.None {
		// "e7e8q" resolves the promotion in the same message
		reply, err = h.manager.MovePromote(ctx, room, user, cmd.From, cmd.To, cmd.Piece)
	} else {
		reply, err = h.manager.Move(ctx, room, user, cmd.From, cmd.To)
	}
	if err != nil {
		h.fail(ctx, room, err)
		return
	}
	if !reply.Result.Accepted() {
		h.say(room, h.formatter.MoveRejected(reply.Result.Reason, cmd.From+cmd.To))
		return
	}
	st := h.dto(ctx, &reply.Snapshot)
	mover := moverColor(reply.Table, user)
	if cmd.Piece != rules.None {
		h.show(room, h.formatter.Promoted(st, mover, cmd.To, strings.ToLower(cmd.Piece.Letter())), st, true)
		return
	}
	h.show(room, h.formatter.Move(st, mover), st, true)
}

func (h *Handler) promote(ctx context.Context, room string, user duel.Player, piece rules.Kind) {
	reply, err := h.manager.Promote(ctx, room, user, piece)
	if err != nil {
		h.fail(ctx, room, err)
		return
	}
	st := h.dto(ctx, &reply.Snapshot)
	square := ""
	if len(reply.LastText) >= 4 {
		square = reply.LastText[2:4]
	}
	piece = rules.None
	if n := len(reply.LastText); n == 5 {
		piece, _ = rules.KindFromLetter(reply.LastText[4:])
	}
	h.show(room, h.formatter.Promoted(st, moverColor(reply.Table, user), square, strings.ToLower(piece.Letter())), st, true)
}

// OnClock turns clock notices into chat messages. It runs on the manager's
// notice goroutine.
func (h *Handler) OnClock(n duel.ClockNotice) {
	switch n.Event.Kind {
	case session.EventClockTick:
		if n.Event.Remaining <= 0 || n.Event.Remaining%tickAnnounceEvery != 0 {
			return
		}
		checked := h.formatter.PlayerLabel(n.Checked.Name, n.Checked.ID, n.Event.Checked.String())
		h.say(n.Room, h.formatter.ClockTick(checked, n.Event.Remaining))
	case session.EventClockExpired:
		loser := n.Event.Winner.Opponent()
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.RequestTimeout)
		defer cancel()

		var st *dueldto.BoardState
		loserName := ""
		if snap, err := h.manager.Board(ctx, n.Room); err == nil {
			st = h.dto(ctx, snap)
			seat := snap.Table.Seat(loser)
			loserName = h.formatter.PlayerLabel(seat.Name, seat.ID, loser.String())
		} else {
			h.logger.Warn("duel_clock_board_error", zap.String("room", n.Room), zap.Error(err))
			loserName = h.formatter.PlayerLabel("", "", loser.String())
		}
		winner := h.formatter.PlayerLabel(n.Winner.Name, n.Winner.ID, n.Event.Winner.String())
		h.show(n.Room, h.formatter.ClockExpired(loserName, winner), st, st != nil)
	}
}

func moverColor(t *duel.Table, user duel.Player) string {
	if c, ok := t.ColorOf(user.ID); ok {
		return c.String()
	}
	return rules.White.String()
}

// dto converts and renders. A render failure only drops the image.
func (h *Handler) dto(ctx context.Context, snap *duel.Snapshot) *dueldto.BoardState {
	st := duelpresenter.ToDTO(snap)
	if st == nil || h.renderer == nil {
		return st
	}
	img, err := duelpresenter.RenderBoard(ctx, h.renderer, snap)
	if err != nil {
		h.logger.Warn("board_render_error", zap.String("table_id", st.TableID), zap.Error(err))
		return st
	}
	st.BoardImage = img
	return st
}

func (h *Handler) show(room, text string, st *dueldto.BoardState, withBoard bool) {
	if !withBoard {
		st = nil
	}
	if err := h.presenter.Board(room, text, st); err != nil {
		h.logger.Warn("send_error", zap.String("room", room), zap.Error(err))
	}
}

func (h *Handler) say(room, text string) {
	if err := h.presenter.Text(room, text); err != nil {
		h.logger.Warn("send_error", zap.String("room", room), zap.Error(err))
	}
}

func (h *Handler) fail(ctx context.Context, room string, err error) {
	switch {
	case errors.Is(err, duel.ErrNoTable):
		h.say(room, h.formatter.NoTable())
	case errors.Is(err, duel.ErrTableBusy):
		h.say(room, h.formatter.Busy())
	case errors.Is(err, duel.ErrSelfDuel):
		h.say(room, h.formatter.SelfDuel())
	case errors.Is(err, duel.ErrNotSeated):
		h.say(room, h.formatter.NotSeated())
	case errors.Is(err, duel.ErrNotYourTurn):
		snap, berr := h.manager.Board(ctx, room)
		if berr != nil {
			h.say(room, h.formatter.Failed())
			return
		}
		h.say(room, h.formatter.NotYourTurn(duelpresenter.ToDTO(snap)))
	case errors.Is(err, duel.ErrBadSquare), errors.Is(err, duel.ErrNotPromotion):
		h.say(room, h.formatter.MoveUsage())
	case errors.Is(err, duel.ErrBadPromotion):
		h.say(room, h.formatter.BadPiece())
	case errors.Is(err, duel.ErrNoPromotion):
		h.say(room, h.formatter.NoPromotion())
	case errors.Is(err, duel.ErrConflict):
		h.say(room, h.formatter.Conflict())
	default:
		h.logger.Error("duel_command_error", zap.String("room", room), zap.Error(err))
		h.say(room, h.formatter.Failed())
	}
}
