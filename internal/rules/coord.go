package rules

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var squareByName = func() map[string]Square {
	m := make(map[string]Square, 64)
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		m[sq.String()] = FromChessSquare(sq)
	}
	return m
}()

// FromChessSquare converts a corentings square (a1 = 0) into board coordinates.
func FromChessSquare(sq nchess.Square) Square {
	return Square{Row: 7 - int(sq.Rank()), Col: int(sq.File())}
}

// ChessSquare converts board coordinates into a corentings square.
func (s Square) ChessSquare() nchess.Square {
	if !s.Valid() {
		return nchess.NoSquare
	}
	return nchess.NewSquare(nchess.File(s.Col), nchess.Rank(7-s.Row))
}

// String returns the square name ("e2"), or "-" when off the board.
func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return s.ChessSquare().String()
}

// ParseSquare parses a square name such as "e2" (case-insensitive).
func ParseSquare(name string) (Square, bool) {
	sq, ok := squareByName[strings.ToLower(strings.TrimSpace(name))]
	return sq, ok
}

// MoveText renders a move in coordinate notation ("e2e4"). A non-None
// promotion kind is appended as a lower-case letter ("e7e8q").
func MoveText(from, to Square, promotion Kind) string {
	s := from.String() + to.String()
	if promotion != None {
		s += strings.ToLower(promotion.Letter())
	}
	return s
}
