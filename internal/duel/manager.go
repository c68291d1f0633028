package duel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/park285/Cheese-Duel/internal/obslog"
	"github.com/park285/Cheese-Duel/internal/rules"
	"github.com/park285/Cheese-Duel/internal/session"
	"go.uber.org/zap"
)

const noticeBuffer = 256

type Config struct {
	ClockLength int
	ClockUnit   time.Duration
	// Scheduler drives the check clocks. Nil uses session.TickerScheduler.
	Scheduler session.Scheduler
}

// Manager runs one duel table per chat room. Live sessions are cached in
// memory and restored lazily from the Store.
type Manager struct {
	store   Store
	archive Archive
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	rooms map[string]*liveRoom

	notifyMu sync.RWMutex
	notify   Notifier
	notices  chan ClockNotice
	done     chan struct{}
	closing  sync.Once
}

type liveRoom struct {
	name  string
	mu    sync.Mutex
	table *Table
	sess  *session.Session
	seats atomic.Pointer[seatInfo]
}

// seatInfo is read by clock callbacks without taking the room lock.
type seatInfo struct {
	tableID string
	white   Player
	black   Player
}

func (s *seatInfo) player(c rules.Color) Player {
	if c == rules.White {
		return s.white
	}
	return s.black
}

// NewManager wires a manager. archive may be nil.
func NewManager(store Store, archive Archive, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = obslog.L()
	}
	m := &Manager{
		store:   store,
		archive: archive,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		rooms:   make(map[string]*liveRoom),
		notices: make(chan ClockNotice, noticeBuffer),
		done:    make(chan struct{}),
	}
	go m.dispatch()
	return m
}

// SetNotifier installs the clock notice receiver.
func (m *Manager) SetNotifier(n Notifier) {
	m.notifyMu.Lock()
	m.notify = n
	m.notifyMu.Unlock()
}

// Close stops every clock and the notice dispatcher. The store is not closed.
func (m *Manager) Close() {
	m.closing.Do(func() {
		close(m.done)
		m.mu.Lock()
		rooms := make([]*liveRoom, 0, len(m.rooms))
		for _, r := range m.rooms {
			rooms = append(rooms, r)
		}
		m.mu.Unlock()
		for _, r := range rooms {
			r.mu.Lock()
			if r.sess != nil {
				r.sess.Close()
			}
			r.mu.Unlock()
		}
	})
}

// Open starts a new duel in room with opener as white. opponent may be empty,
// in which case the first other player to move black takes the seat.
func (m *Manager) Open(ctx context.Context, room string, opener, opponent Player) (*Snapshot, error) {
	room = strings.TrimSpace(room)
	if room == "" || opener.Empty() {
		return nil, ErrInvalidArgs
	}
	if opponent.ID == opener.ID || (opponent.ID == "" && opponent.Name != "" && opponent.Name == opener.Name) {
		return nil, ErrSelfDuel
	}
	r, err := m.acquire(ctx, room)
	if err != nil {
		return nil, err
	}
	defer r.mu.Unlock()

	var version int64
	if r.table != nil {
		if !r.table.Session.Outcome.Finished && len(r.table.Moves) > 0 {
			return nil, ErrTableBusy
		}
		version = r.table.Version
		r.sess.Close()
	}

	now := m.now()
	t := &Table{
		ID:        uuid.NewString(),
		Room:      room,
		White:     opener,
		Black:     opponent,
		Version:   version,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.table = t
	r.publishSeats()
	r.sess = m.newSession(room)
	if err := m.commit(ctx, r); err != nil {
		return nil, err
	}
	m.logger.Info("duel_open",
		zap.String("table_id", t.ID),
		zap.String("room", room),
		zap.String("white_id", t.White.ID),
		zap.String("black_id", t.Black.ID),
	)
	return r.snapshot(), nil
}

// Move plays from -> to (square names) for user.
func (m *Manager) Move(ctx context.Context, room string, user Player, fromText, toText string) (*MoveReply, error) {
	return m.move(ctx, room, user, fromText, toText, rules.None)
}

// MovePromote plays a promoting pawn move and resolves it with kind in one
// step ("e7e8q"). A move that would not promote is refused with
// ErrNotPromotion before anything changes.
func (m *Manager) MovePromote(ctx context.Context, room string, user Player, fromText, toText string, kind rules.Kind) (*MoveReply, error) {
	if !kind.Promotable() {
		return nil, ErrBadPromotion
	}
	return m.move(ctx, room, user, fromText, toText, kind)
}

func (m *Manager) move(ctx context.Context, room string, user Player, fromText, toText string, kind rules.Kind) (*MoveReply, error) {
	from, okFrom := rules.ParseSquare(fromText)
	to, okTo := rules.ParseSquare(toText)
	if !okFrom || !okTo {
		return nil, ErrBadSquare
	}
	r, err := m.acquireTable(ctx, room)
	if err != nil {
		return nil, err
	}
	defer r.mu.Unlock()

	view := r.sess.View()
	if view.Outcome.Finished {
		return &MoveReply{Snapshot: *r.snapshot(), Result: session.MoveResult{Status: session.MoveRejected, Reason: session.ReasonFinished}}, nil
	}
	seated := false
	reserved := r.table.Black
	color, ok := r.table.ColorOf(user.ID)
	if !ok {
		// 흑 좌석이 비어 있으면 흑 차례에 처음 두는 사람이 앉는다.
		// 이름으로만 지목된 상대라면 그 이름과 일치해야 한다.
		if !reserved.Empty() || user.Empty() || (reserved.Name != "" && reserved.Name != user.Name) {
			return nil, ErrNotSeated
		}
		if view.Turn != rules.Black {
			return nil, ErrNotYourTurn
		}
		r.table.Black = user
		color, seated = rules.Black, true
	}
	if color != view.Turn {
		return nil, ErrNotYourTurn
	}
	if kind != rules.None && !view.Promotion.Active && !rules.IsPromotion(view.Board.PieceAt(from), to) {
		if seated {
			r.table.Black = reserved
		}
		return nil, ErrNotPromotion
	}

	res := r.sess.ProposeMove(from, to)
	if !res.Accepted() {
		if seated {
			r.table.Black = reserved
		}
		return &MoveReply{Snapshot: *r.snapshot(), Result: res}, nil
	}
	logged := rules.None
	if res.Status == session.MoveAwaitingPromotion && kind != rules.None {
		if !r.sess.ResolvePromotion(kind) {
			r.drop()
			return nil, ErrNoPromotion
		}
		res = session.MoveResult{Status: session.MoveApplied}
		logged = kind
	}
	if seated {
		r.publishSeats()
	}
	r.table.Moves = append(r.table.Moves, rules.MoveText(from, to, logged))
	r.table.Undone = nil
	if err := m.commit(ctx, r); err != nil {
		return nil, err
	}
	m.logger.Info("duel_move",
		zap.String("table_id", r.table.ID),
		zap.String("room", r.name),
		zap.String("user_id", user.ID),
		zap.String("move", rules.MoveText(from, to, logged)),
		zap.Bool("awaiting_promotion", res.Status == session.MoveAwaitingPromotion),
	)
	return &MoveReply{Snapshot: *r.snapshot(), Result: res}, nil
}

// Promote resolves a pending promotion for the side to move.
func (m *Manager) Promote(ctx context.Context, room string, user Player, kind rules.Kind) (*MoveReply, error) {
	if !kind.Promotable() {
		return nil, ErrBadPromotion
	}
	r, err := m.acquireTable(ctx, room)
	if err != nil {
		return nil, err
	}
	defer r.mu.Unlock()

	view := r.sess.View()
	if !view.Promotion.Active {
		return nil, ErrNoPromotion
	}
	color, ok := r.table.ColorOf(user.ID)
	if !ok {
		return nil, ErrNotSeated
	}
	if color != view.Turn {
		return nil, ErrNotYourTurn
	}
	if !r.sess.ResolvePromotion(kind) {
		return nil, ErrNoPromotion
	}
	if n := len(r.table.Moves); n > 0 {
		r.table.Moves[n-1] += strings.ToLower(kind.Letter())
	}
	if err := m.commit(ctx, r); err != nil {
		return nil, err
	}
	m.logger.Info("duel_promote",
		zap.String("table_id", r.table.ID),
		zap.String("room", r.name),
		zap.String("piece", kind.String()),
	)
	return &MoveReply{Snapshot: *r.snapshot(), Result: session.MoveResult{Status: session.MoveApplied}}, nil
}

// Undo takes back the last move. Either seated player may ask.
func (m *Manager) Undo(ctx context.Context, room string, user Player) (*Snapshot, bool, error) {
	return m.history(ctx, room, user, true)
}

// Redo replays the most recently undone move.
func (m *Manager) Redo(ctx context.Context, room string, user Player) (*Snapshot, bool, error) {
	return m.history(ctx, room, user, false)
}

func (m *Manager) history(ctx context.Context, room string, user Player, undo bool) (*Snapshot, bool, error) {
	r, err := m.acquireTable(ctx, room)
	if err != nil {
		return nil, false, err
	}
	defer r.mu.Unlock()
	if _, ok := r.table.ColorOf(user.ID); !ok {
		return nil, false, ErrNotSeated
	}

	t := r.table
	if undo {
		if !r.sess.Undo() {
			return r.snapshot(), false, nil
		}
		if n := len(t.Moves); n > 0 {
			t.Undone = append(t.Undone, t.Moves[n-1])
			t.Moves = t.Moves[:n-1]
		}
	} else {
		if !r.sess.Redo() {
			return r.snapshot(), false, nil
		}
		if n := len(t.Undone); n > 0 {
			t.Moves = append(t.Moves, t.Undone[n-1])
			t.Undone = t.Undone[:n-1]
		}
	}
	if err := m.commit(ctx, r); err != nil {
		return nil, false, err
	}
	m.logger.Info("duel_history",
		zap.String("table_id", t.ID),
		zap.String("room", r.name),
		zap.Bool("undo", undo),
		zap.Int("ply", len(t.Moves)),
	)
	return r.snapshot(), true, nil
}

// Reset starts over on the same table with the same seats.
func (m *Manager) Reset(ctx context.Context, room string, user Player) (*Snapshot, error) {
	r, err := m.acquireTable(ctx, room)
	if err != nil {
		return nil, err
	}
	defer r.mu.Unlock()
	if _, ok := r.table.ColorOf(user.ID); !ok {
		return nil, ErrNotSeated
	}
	r.sess.Reset()
	now := m.now()
	t := r.table
	t.ID = uuid.NewString()
	t.Moves = nil
	t.Undone = nil
	t.Archived = false
	t.CreatedAt = now
	r.publishSeats()
	if err := m.commit(ctx, r); err != nil {
		return nil, err
	}
	m.logger.Info("duel_reset", zap.String("table_id", t.ID), zap.String("room", r.name))
	return r.snapshot(), nil
}

// Resign concedes for user. It reports false when the game was already over.
func (m *Manager) Resign(ctx context.Context, room string, user Player) (*Snapshot, bool, error) {
	r, err := m.acquireTable(ctx, room)
	if err != nil {
		return nil, false, err
	}
	defer r.mu.Unlock()
	color, ok := r.table.ColorOf(user.ID)
	if !ok {
		return nil, false, ErrNotSeated
	}
	if !r.sess.Resign(color) {
		return r.snapshot(), false, nil
	}
	if err := m.commit(ctx, r); err != nil {
		return nil, false, err
	}
	m.logger.Info("duel_resign",
		zap.String("table_id", r.table.ID),
		zap.String("room", r.name),
		zap.String("resigner", user.ID),
	)
	return r.snapshot(), true, nil
}

// Board returns the current state of the room's table.
func (m *Manager) Board(ctx context.Context, room string) (*Snapshot, error) {
	r, err := m.acquireTable(ctx, room)
	if err != nil {
		return nil, err
	}
	defer r.mu.Unlock()
	return r.snapshot(), nil
}

// acquire returns the locked room, loading its table from the store on first
// use. The table may be nil.
func (m *Manager) acquire(ctx context.Context, room string) (*liveRoom, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return nil, ErrInvalidArgs
	}
	m.mu.Lock()
	r, ok := m.rooms[room]
	if !ok {
		r = &liveRoom{name: room}
		m.rooms[room] = r
	}
	m.mu.Unlock()

	r.mu.Lock()
	if r.table != nil {
		return r, nil
	}
	t, err := m.store.Load(ctx, room)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if t == nil {
		return r, nil
	}
	sess := m.newSession(room)
	r.table = t
	r.publishSeats()
	if err := sess.Restore(t.Session); err != nil {
		sess.Close()
		r.table = nil
		r.mu.Unlock()
		return nil, err
	}
	r.sess = sess
	m.logger.Info("duel_restore",
		zap.String("table_id", t.ID),
		zap.String("room", room),
		zap.Int("ply", len(t.Moves)),
	)
	return r, nil
}

func (m *Manager) acquireTable(ctx context.Context, room string) (*liveRoom, error) {
	r, err := m.acquire(ctx, room)
	if err != nil {
		return nil, err
	}
	if r.table == nil {
		r.mu.Unlock()
		return nil, ErrNoTable
	}
	return r, nil
}

// commit persists the room's table and archives it once the game is decided.
// If the save fails the cached table is dropped, so the change that was just
// applied in memory is discarded and the next call reloads the stored state.
func (m *Manager) commit(ctx context.Context, r *liveRoom) error {
	t := r.table
	t.Session = r.sess.Export()
	t.UpdatedAt = m.now()
	if err := m.store.Save(ctx, t); err != nil {
		if errors.Is(err, ErrConflict) {
			m.logger.Warn("duel_conflict", zap.String("table_id", t.ID), zap.String("room", r.name))
		} else {
			m.logger.Error("duel_save_error", zap.String("table_id", t.ID), zap.String("room", r.name), zap.Error(err))
		}
		r.drop()
		return err
	}
	if !t.Session.Outcome.Finished || t.Archived || m.archive == nil {
		return nil
	}
	if err := m.archive.SaveResult(ctx, t); err != nil {
		m.logger.Error("duel_archive_error", zap.String("table_id", t.ID), zap.Error(err))
		return nil
	}
	t.Archived = true
	if err := m.store.Save(ctx, t); err != nil {
		m.logger.Warn("duel_archive_flag_error", zap.String("table_id", t.ID), zap.Error(err))
	}
	m.logger.Info("duel_archived",
		zap.String("table_id", t.ID),
		zap.String("result", resultToken(t.Session.Outcome)),
		zap.String("method", string(t.Session.Outcome.Reason)),
	)
	return nil
}

func (m *Manager) newSession(room string) *session.Session {
	var sess *session.Session
	sess = session.New(session.Config{
		ClockLength: m.cfg.ClockLength,
		ClockUnit:   m.cfg.ClockUnit,
		Scheduler:   m.cfg.Scheduler,
		Observer:    func(ev session.Event) { m.onClock(room, sess, ev) },
	}, m.logger)
	return sess
}

// onClock runs on the clock goroutine for ticks and expiry, but on the
// caller's goroutine (room lock held) when a move starts a clock. Only expiry
// takes the room lock.
func (m *Manager) onClock(room string, sess *session.Session, ev session.Event) {
	m.mu.Lock()
	r := m.rooms[room]
	m.mu.Unlock()
	if r == nil {
		return
	}
	if ev.Kind == session.EventClockExpired {
		r.mu.Lock()
		if r.sess != sess || r.table == nil {
			r.mu.Unlock()
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := m.commit(ctx, r)
		cancel()
		r.mu.Unlock()
		if err != nil {
			// 저장 실패: 다음 요청이 저장된 상태를 다시 불러오고 시계도 새로 돈다.
			m.logger.Error("duel_clock_persist_error", zap.String("room", room), zap.Error(err))
			return
		}
		m.logger.Info("duel_clock_expired", zap.String("room", room), zap.String("winner", ev.Winner.String()))
	}
	seats := r.seats.Load()
	if seats == nil {
		return
	}
	notice := ClockNotice{Room: room, TableID: seats.tableID, Event: ev}
	switch ev.Kind {
	case session.EventClockExpired:
		notice.Winner = seats.player(ev.Winner)
	default:
		notice.Checked = seats.player(ev.Checked)
	}
	select {
	case <-m.done:
	case m.notices <- notice:
	default:
		m.logger.Warn("duel_notice_dropped", zap.String("room", room))
	}
}

func (m *Manager) dispatch() {
	for {
		select {
		case <-m.done:
			return
		case n := <-m.notices:
			m.notifyMu.RLock()
			fn := m.notify
			m.notifyMu.RUnlock()
			if fn != nil {
				fn(n)
			}
		}
	}
}

// drop discards the cached table and session.
func (r *liveRoom) drop() {
	if r.sess != nil {
		r.sess.Close()
	}
	r.sess = nil
	r.table = nil
}

func (r *liveRoom) publishSeats() {
	r.seats.Store(&seatInfo{tableID: r.table.ID, white: r.table.White, black: r.table.Black})
}

func (r *liveRoom) snapshot() *Snapshot {
	view := r.sess.View()
	snap := &Snapshot{Table: r.table.clone(), View: view}
	if n := len(r.table.Moves); n > 0 {
		snap.LastText = r.table.Moves[n-1]
	}
	snap.OpeningCode, snap.OpeningTitle = nameOpening(r.table.Moves)
	return snap
}
