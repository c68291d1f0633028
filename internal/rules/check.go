package rules

// KingSquare locates the king of color. ok is false when that king is no
// longer on the board, which only happens once the game has been decided.
func KingSquare(b *Board, color Color) (sq Square, ok bool) {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if p := b[r][c]; p.Kind == King && p.Color == color {
				return Square{Row: r, Col: c}, true
			}
		}
	}
	return Square{}, false
}

// IsInCheck reports whether the king of color is attacked by any opposing
// piece. A board without that king is never "in check"; callers track the
// decided game separately.
func IsInCheck(b *Board, color Color) bool {
	king, ok := KingSquare(b, color)
	if !ok {
		return false
	}
	return IsAttacked(b, king, color.Opponent())
}

// IsAttacked reports whether any piece of attacker could capture on sq.
func IsAttacked(b *Board, sq Square, attacker Color) bool {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			p := b[r][c]
			if p.Empty() || p.Color != attacker {
				continue
			}
			if CanAttack(b, Square{Row: r, Col: c}, sq, p) {
				return true
			}
		}
	}
	return false
}

// Checks computes the check flags of both sides.
func Checks(b *Board) CheckStatus {
	return CheckStatus{
		White: IsInCheck(b, White),
		Black: IsInCheck(b, Black),
	}
}
