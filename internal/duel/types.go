package duel

import (
	"time"

	"github.com/park285/Cheese-Duel/internal/rules"
	"github.com/park285/Cheese-Duel/internal/session"
)

// Player identifies a chat user.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p Player) Empty() bool { return p.ID == "" }

// Table is the persisted duel of one chat room. It is stored as JSON under
// duel:table:<room>.
type Table struct {
	ID        string         `json:"id"`
	Room      string         `json:"room"`
	White     Player         `json:"white"`
	Black     Player         `json:"black"`
	Moves     []string       `json:"moves"`
	Undone    []string       `json:"undone,omitempty"`
	Session   session.Record `json:"session"`
	Archived  bool           `json:"archived,omitempty"`
	Version   int64          `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Seat returns the player bound to color.
func (t *Table) Seat(color rules.Color) Player {
	if color == rules.White {
		return t.White
	}
	return t.Black
}

// ColorOf reports which seat userID holds.
func (t *Table) ColorOf(userID string) (rules.Color, bool) {
	switch {
	case userID == "":
		return rules.White, false
	case t.White.ID == userID:
		return rules.White, true
	case t.Black.ID == userID:
		return rules.Black, true
	default:
		return rules.White, false
	}
}

func (t *Table) clone() *Table {
	cp := *t
	cp.Moves = append([]string(nil), t.Moves...)
	cp.Undone = append([]string(nil), t.Undone...)
	return &cp
}

// Snapshot is what callers get back after every operation.
type Snapshot struct {
	Table *Table
	View  session.View
	// LastText is the coordinate text of the last logged move, if any.
	LastText string
	// OpeningCode and OpeningTitle name the ECO opening of the move log while
	// it is still in book.
	OpeningCode  string
	OpeningTitle string
}

// MoveReply is the result of Move and Promote.
type MoveReply struct {
	Snapshot
	Result session.MoveResult
}

// ClockNotice is forwarded to the Notifier for every clock event.
type ClockNotice struct {
	Room    string
	TableID string
	Event   session.Event
	// Checked is the player in check, Winner the one who won on expiry.
	Checked Player
	Winner  Player
}

// Notifier receives clock notices. It is called from the clock goroutine.
type Notifier func(ClockNotice)

var (
	ErrInvalidArgs  = errf("invalid arguments")
	ErrNoTable      = errf("no duel in this room")
	ErrTableBusy    = errf("duel already in progress in this room")
	ErrNotSeated    = errf("user is not seated at this table")
	ErrNotYourTurn  = errf("not your turn")
	ErrBadSquare    = errf("invalid square")
	ErrBadPromotion = errf("invalid promotion piece")
	ErrNoPromotion  = errf("no promotion pending")
	ErrConflict     = errf("table changed concurrently")
	ErrSelfDuel     = errf("cannot duel yourself")
	ErrNotPromotion = errf("move does not promote a pawn")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error        { return staticErr(s) }
