package session

import "github.com/park285/Cheese-Duel/internal/rules"

// PendingPromotion marks a pawn that reached the last rank and waits for a
// piece choice. The pawn is off the board while Active.
type PendingPromotion struct {
	Active bool         `json:"active"`
	Square rules.Square `json:"square"`
}

// State is the part of a session that history snapshots capture.
type State struct {
	Board     rules.Board          `json:"board"`
	Turn      rules.Color          `json:"turn"`
	Castling  rules.CastlingRights `json:"castling"`
	LastMove  rules.LastMove       `json:"last_move"`
	Checks    rules.CheckStatus    `json:"checks"`
	Promotion PendingPromotion     `json:"promotion"`
}

func initialState() State {
	return State{Board: rules.NewBoard(), Turn: rules.White}
}

func (st *State) position() rules.Position {
	return rules.Position{
		Board:    st.Board,
		Turn:     st.Turn,
		Castling: st.Castling,
		LastMove: st.LastMove,
	}
}

// EndReason says how a finished game was decided.
type EndReason string

const (
	EndNone         EndReason = ""
	EndKingCaptured EndReason = "king_captured"
	EndClockExpired EndReason = "clock_expired"
	EndResigned     EndReason = "resigned"
)

// Outcome is the result of the game. Zero value means ongoing.
type Outcome struct {
	Finished bool        `json:"finished"`
	Winner   rules.Color `json:"winner"`
	Reason   EndReason   `json:"reason,omitempty"`
}

// MoveStatus is the result category of ProposeMove.
type MoveStatus uint8

const (
	MoveRejected MoveStatus = iota
	MoveApplied
	MoveAwaitingPromotion
)

// RejectReason explains a rejected move.
type RejectReason uint8

const (
	ReasonNone RejectReason = iota
	ReasonFinished
	ReasonPromotionPending
	ReasonIllegal
	ReasonInvalidSquare
)

func (r RejectReason) String() string {
	switch r {
	case ReasonFinished:
		return "finished"
	case ReasonPromotionPending:
		return "promotion_pending"
	case ReasonIllegal:
		return "illegal"
	case ReasonInvalidSquare:
		return "invalid_square"
	default:
		return "none"
	}
}

// MoveResult reports what ProposeMove did. Rejection is a value, not an error.
type MoveResult struct {
	Status MoveStatus
	Reason RejectReason
}

func (r MoveResult) Accepted() bool { return r.Status != MoveRejected }

func rejected(reason RejectReason) MoveResult {
	return MoveResult{Status: MoveRejected, Reason: reason}
}

// View is a read-only copy of everything a presenter needs.
type View struct {
	Board        rules.Board
	Turn         rules.Color
	Checks       rules.CheckStatus
	LastMove     rules.LastMove
	Promotion    PendingPromotion
	Outcome      Outcome
	ClockRunning bool
	ClockLeft    int
	CanUndo      bool
	CanRedo      bool
}
