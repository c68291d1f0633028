// Package rules implements the chess board model and the pure rule functions
// (attack geometry, check detection, move legality) the duel session builds on.
package rules

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// forward is the row offset a pawn of this color advances by.
func (c Color) forward() int {
	if c == White {
		return -1
	}
	return 1
}

// homeRow is the back rank of the color at game start.
func (c Color) homeRow() int {
	if c == White {
		return 7
	}
	return 0
}

// Kind is a piece type. None marks an empty square.
type Kind uint8

const (
	None Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// Letter returns the upper-case piece letter ("" for None).
func (k Kind) Letter() string {
	switch k {
	case Pawn:
		return "P"
	case Knight:
		return "N"
	case Bishop:
		return "B"
	case Rook:
		return "R"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return ""
	}
}

// KindFromLetter parses a piece letter in either case.
func KindFromLetter(s string) (Kind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "P":
		return Pawn, true
	case "N":
		return Knight, true
	case "B":
		return Bishop, true
	case "R":
		return Rook, true
	case "Q":
		return Queen, true
	case "K":
		return King, true
	default:
		return None, false
	}
}

// Promotable reports whether a pawn may be promoted to k.
func (k Kind) Promotable() bool {
	return k == Queen || k == Rook || k == Bishop || k == Knight
}

// Piece is a colored piece. The zero value is the empty square.
type Piece struct {
	Kind  Kind
	Color Color
}

// NoPiece is the empty square marker.
var NoPiece = Piece{}

func (p Piece) Empty() bool { return p.Kind == None }

func (p Piece) String() string {
	if p.Empty() {
		return ""
	}
	return p.Color.String()[:1] + p.Kind.Letter()
}

// MarshalText encodes a piece as "wP", "bK", or "" for an empty square.
func (p Piece) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Piece) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*p = NoPiece
		return nil
	}
	if len(s) != 2 {
		return fmt.Errorf("invalid piece code %q", s)
	}
	var c Color
	switch s[0] {
	case 'w':
		c = White
	case 'b':
		c = Black
	default:
		return fmt.Errorf("invalid piece color in %q", s)
	}
	k, ok := KindFromLetter(s[1:])
	if !ok {
		return fmt.Errorf("invalid piece kind in %q", s)
	}
	*p = Piece{Kind: k, Color: c}
	return nil
}

// Square is a board coordinate. Row 0 is black's back rank, row 7 is white's.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8
}

// Board is an 8x8 grid of pieces indexed [row][col]. It is a value type:
// copying a Board copies every square.
type Board [8][8]Piece

// NewBoard returns the standard starting position.
func NewBoard() Board {
	var b Board
	back := [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for col, k := range back {
		b[0][col] = Piece{Kind: k, Color: Black}
		b[1][col] = Piece{Kind: Pawn, Color: Black}
		b[6][col] = Piece{Kind: Pawn, Color: White}
		b[7][col] = Piece{Kind: k, Color: White}
	}
	return b
}

// PieceAt returns the piece on sq, or NoPiece for an empty or off-board square.
func (b *Board) PieceAt(sq Square) Piece {
	if !sq.Valid() {
		return NoPiece
	}
	return b[sq.Row][sq.Col]
}

// Set places p on sq. Off-board squares are ignored.
func (b *Board) Set(sq Square, p Piece) {
	if !sq.Valid() {
		return
	}
	b[sq.Row][sq.Col] = p
}

// WithMove returns a copy of the board with the piece on from relocated to to
// and from cleared. Castling rooks and en passant victims are not touched.
func (b Board) WithMove(from, to Square) Board {
	next := b
	p := next.PieceAt(from)
	next.Set(from, NoPiece)
	next.Set(to, p)
	return next
}

// CastlingRights tracks which kings and rooks have moved. Flags only ever go
// from false to true during play.
type CastlingRights struct {
	WhiteKingMoved  bool `json:"white_king_moved"`
	BlackKingMoved  bool `json:"black_king_moved"`
	WhiteRookAMoved bool `json:"white_rook_a_moved"`
	WhiteRookHMoved bool `json:"white_rook_h_moved"`
	BlackRookAMoved bool `json:"black_rook_a_moved"`
	BlackRookHMoved bool `json:"black_rook_h_moved"`
}

func (c CastlingRights) kingMoved(color Color) bool {
	if color == White {
		return c.WhiteKingMoved
	}
	return c.BlackKingMoved
}

func (c CastlingRights) rookMoved(color Color, kingside bool) bool {
	switch {
	case color == White && kingside:
		return c.WhiteRookHMoved
	case color == White:
		return c.WhiteRookAMoved
	case kingside:
		return c.BlackRookHMoved
	default:
		return c.BlackRookAMoved
	}
}

// After returns the rights once p has moved from -> to. Any move touching a
// rook corner (leaving or capturing onto it) marks that rook as moved.
func (c CastlingRights) After(p Piece, from, to Square) CastlingRights {
	if p.Kind == King {
		if p.Color == White {
			c.WhiteKingMoved = true
		} else {
			c.BlackKingMoved = true
		}
	}
	for _, sq := range [2]Square{from, to} {
		switch sq {
		case Square{Row: 7, Col: 0}:
			c.WhiteRookAMoved = true
		case Square{Row: 7, Col: 7}:
			c.WhiteRookHMoved = true
		case Square{Row: 0, Col: 0}:
			c.BlackRookAMoved = true
		case Square{Row: 0, Col: 7}:
			c.BlackRookHMoved = true
		}
	}
	return c
}

// LastMove records the previous move for en passant. Valid is false when
// there is none.
type LastMove struct {
	Valid bool   `json:"valid"`
	Piece Piece  `json:"piece"`
	From  Square `json:"from"`
	To    Square `json:"to"`
}

// CheckStatus holds the per-color check flags.
type CheckStatus struct {
	White bool `json:"white"`
	Black bool `json:"black"`
}

func (c CheckStatus) For(color Color) bool {
	if color == White {
		return c.White
	}
	return c.Black
}

func (c CheckStatus) Any() bool { return c.White || c.Black }
