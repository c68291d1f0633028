package rules

// move is a from/to pair.
type move struct {
	From Square
	To   Square
}

// legalMoves lists every legal move for the side to move by asking IsLegal
// about every from/to pair.
func legalMoves(pos *Position) []move {
	var out []move
	for fr := 0; fr < 8; fr++ {
		for fc := 0; fc < 8; fc++ {
			from := Square{Row: fr, Col: fc}
			if p := pos.Board.PieceAt(from); p.Empty() || p.Color != pos.Turn {
				continue
			}
			for tr := 0; tr < 8; tr++ {
				for tc := 0; tc < 8; tc++ {
					to := Square{Row: tr, Col: tc}
					if IsLegal(pos, from, to) {
						out = append(out, move{From: from, To: to})
					}
				}
			}
		}
	}
	return out
}
