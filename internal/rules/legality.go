package rules

// Position is everything the validator needs to judge a move: the board, the
// side to move, castling rights, and the previous move for en passant.
type Position struct {
	Board    Board
	Turn     Color
	Castling CastlingRights
	LastMove LastMove
}

// NewPosition returns the standard starting position with white to move.
func NewPosition() Position {
	return Position{Board: NewBoard(), Turn: White}
}

// IsLegal reports whether the side to move may play from -> to. The checks run
// in order and stop at the first failure: ownership, no self-capture, own king
// safety on the resulting board, then the per-piece movement rule.
func IsLegal(pos *Position, from, to Square) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	b := &pos.Board
	p := b.PieceAt(from)
	if p.Empty() || p.Color != pos.Turn {
		return false
	}
	target := b.PieceAt(to)
	if !target.Empty() && target.Color == p.Color {
		return false
	}

	after := b.WithMove(from, to)
	if IsInCheck(&after, p.Color) {
		return false
	}

	dr := abs(to.Row - from.Row)
	dc := abs(to.Col - from.Col)

	switch p.Kind {
	case Pawn:
		return pawnMoveAllowed(pos, &after, p, from, to, target)
	case Knight:
		return (dr == 2 && dc == 1) || (dr == 1 && dc == 2)
	case Bishop:
		return dr == dc && PathClear(b, from, to)
	case Rook:
		return (dr == 0 || dc == 0) && PathClear(b, from, to)
	case Queen:
		return (dr == 0 || dc == 0 || dr == dc) && PathClear(b, from, to)
	case King:
		if dr == 0 && dc == 2 {
			return castlingAllowed(pos, p.Color, from, to)
		}
		return dr <= 1 && dc <= 1
	default:
		return false
	}
}

func pawnMoveAllowed(pos *Position, after *Board, p Piece, from, to Square, target Piece) bool {
	b := &pos.Board
	dir := p.Color.forward()
	dc := abs(to.Col - from.Col)

	if dc == 0 && target.Empty() {
		if to.Row == from.Row+dir {
			return true
		}
		startRow := p.Color.homeRow() + dir
		mid := Square{Row: from.Row + dir, Col: from.Col}
		if from.Row == startRow && to.Row == from.Row+2*dir && b.PieceAt(mid).Empty() {
			return true
		}
		return false
	}
	if dc != 1 || to.Row != from.Row+dir {
		return false
	}
	if !target.Empty() {
		return true
	}
	if !enPassantAvailable(pos, p, from, to) {
		return false
	}
	// the captured pawn leaves a square the straight guard above never saw empty
	victim := Square{Row: from.Row, Col: to.Col}
	after.Set(victim, NoPiece)
	return !IsInCheck(after, p.Color)
}

// enPassantRow is the row a pawn of color must stand on to capture en passant.
func enPassantRow(color Color) int {
	if color == White {
		return 3
	}
	return 4
}

func enPassantAvailable(pos *Position, p Piece, from, to Square) bool {
	if from.Row != enPassantRow(p.Color) {
		return false
	}
	lm := pos.LastMove
	if !lm.Valid || lm.Piece.Kind != Pawn || lm.Piece.Color == p.Color {
		return false
	}
	return abs(lm.From.Row-lm.To.Row) == 2 && lm.To.Col == to.Col && lm.To.Row == from.Row
}

func castlingAllowed(pos *Position, color Color, from, to Square) bool {
	b := &pos.Board
	home := color.homeRow()
	if from != (Square{Row: home, Col: 4}) || to.Row != home {
		return false
	}
	if pos.Castling.kingMoved(color) {
		return false
	}
	kingside := to.Col == 6
	if !kingside && to.Col != 2 {
		return false
	}
	if pos.Castling.rookMoved(color, kingside) {
		return false
	}
	rookSq := CastlingRookFrom(color, kingside)
	if b.PieceAt(rookSq) != (Piece{Kind: Rook, Color: color}) {
		return false
	}
	if !PathClear(b, from, rookSq) {
		return false
	}
	if IsInCheck(b, color) {
		return false
	}
	// the square the king crosses must not be attacked either
	transit := Square{Row: home, Col: (from.Col + to.Col) / 2}
	return !IsAttacked(b, transit, color.Opponent())
}

// CastlingRookFrom is the corner the castling rook starts on.
func CastlingRookFrom(color Color, kingside bool) Square {
	if kingside {
		return Square{Row: color.homeRow(), Col: 7}
	}
	return Square{Row: color.homeRow(), Col: 0}
}

// CastlingRookTo is the square the castling rook lands on.
func CastlingRookTo(color Color, kingside bool) Square {
	if kingside {
		return Square{Row: color.homeRow(), Col: 5}
	}
	return Square{Row: color.homeRow(), Col: 3}
}

// IsCastling reports whether p moving from -> to is a castling king move.
func IsCastling(p Piece, from, to Square) bool {
	return p.Kind == King && from.Row == to.Row && abs(to.Col-from.Col) == 2
}

// IsEnPassant reports whether p moving from -> to on b is an en passant
// capture: a diagonal pawn step onto an empty square. Only meaningful for
// moves that already passed IsLegal.
func IsEnPassant(b *Board, p Piece, from, to Square) bool {
	return p.Kind == Pawn && abs(to.Col-from.Col) == 1 && b.PieceAt(to).Empty()
}

// IsPromotion reports whether p arriving on to must promote.
func IsPromotion(p Piece, to Square) bool {
	return p.Kind == Pawn && (to.Row == 0 || to.Row == 7)
}
