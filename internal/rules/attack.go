package rules

// PathClear reports whether every square strictly between from and to is
// empty. The two squares must share a row, a column, or a diagonal; it must not
// be used for knight jumps.
func PathClear(b *Board, from, to Square) bool {
	rowStep := sign(to.Row - from.Row)
	colStep := sign(to.Col - from.Col)
	r, c := from.Row+rowStep, from.Col+colStep
	for r != to.Row || c != to.Col {
		if !b[r][c].Empty() {
			return false
		}
		r += rowStep
		c += colStep
	}
	return true
}

// CanAttack reports whether p standing on from could capture on to, ignoring
// turn order and the safety of p's own king. Castling is never an attack.
func CanAttack(b *Board, from, to Square, p Piece) bool {
	if p.Empty() || !from.Valid() || !to.Valid() || from == to {
		return false
	}
	if target := b.PieceAt(to); !target.Empty() && target.Color == p.Color {
		return false
	}

	dr := abs(to.Row - from.Row)
	dc := abs(to.Col - from.Col)

	switch p.Kind {
	case Pawn:
		return dc == 1 && to.Row == from.Row+p.Color.forward()
	case Knight:
		return (dr == 2 && dc == 1) || (dr == 1 && dc == 2)
	case Bishop:
		return dr == dc && PathClear(b, from, to)
	case Rook:
		return (dr == 0 || dc == 0) && PathClear(b, from, to)
	case Queen:
		return (dr == 0 || dc == 0 || dr == dc) && PathClear(b, from, to)
	case King:
		return dr <= 1 && dc <= 1
	default:
		return false
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
