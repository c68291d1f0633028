package rules

import (
	"sort"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/go-cmp/cmp"
)

// positionFromGame copies the piece placement of a corentings game.
func positionFromGame(t *testing.T, game *nchess.Game) Board {
	t.Helper()
	var b Board
	board := game.Position().Board()
	for s := nchess.A1; s <= nchess.H8; s++ {
		piece := board.Piece(s)
		if piece == nchess.NoPiece {
			continue
		}
		var p Piece
		switch piece.Type() {
		case nchess.Pawn:
			p.Kind = Pawn
		case nchess.Knight:
			p.Kind = Knight
		case nchess.Bishop:
			p.Kind = Bishop
		case nchess.Rook:
			p.Kind = Rook
		case nchess.Queen:
			p.Kind = Queen
		case nchess.King:
			p.Kind = King
		default:
			t.Fatalf("unexpected piece type on %s", s)
		}
		if piece.Color() == nchess.Black {
			p.Color = Black
		}
		b.Set(FromChessSquare(s), p)
	}
	return b
}

func moveNames(moves []move) []string {
	seen := make(map[string]struct{}, len(moves))
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		name := MoveText(mv.From, mv.To, None)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func TestLegalMovesMatchReferenceLibrary(t *testing.T) {
	allMoved := CastlingRights{WhiteKingMoved: true, BlackKingMoved: true}
	tests := []struct {
		name     string
		fen      string
		turn     Color
		castling CastlingRights
		last     LastMove
	}{
		{
			name: "start",
			fen:  "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			turn: White,
		},
		{
			name: "italian, white may castle",
			fen:  "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
			turn: White,
		},
		{
			name: "en passant on f6 only",
			fen:  "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
			turn: White,
			last: LastMove{
				Valid: true,
				Piece: Piece{Kind: Pawn, Color: Black},
				From:  Square{Row: 1, Col: 5},
				To:    Square{Row: 3, Col: 5},
			},
		},
		{
			name: "kingside transit attacked",
			fen:  "r3k2r/8/8/8/8/8/5r2/R3K2R w KQkq - 0 1",
			turn: White,
		},
		{
			name:     "black to move under check",
			fen:      "4k3/8/8/8/8/8/8/4RK2 b - - 0 1",
			turn:     Black,
			castling: allMoved,
		},
		{
			name:     "promotion square",
			fen:      "8/P6k/8/8/8/8/8/K7 w - - 0 1",
			turn:     White,
			castling: allMoved,
		},
		{
			name:     "pinned bishop",
			fen:      "4r2k/8/8/8/8/8/4B3/4K3 w - - 0 1",
			turn:     White,
			castling: allMoved,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := nchess.FEN(tt.fen)
			if err != nil {
				t.Fatalf("fen: %v", err)
			}
			game := nchess.NewGame(opt)

			var want []move
			for _, mv := range game.ValidMoves() {
				want = append(want, move{From: FromChessSquare(mv.S1()), To: FromChessSquare(mv.S2())})
			}

			pos := Position{
				Board:    positionFromGame(t, game),
				Turn:     tt.turn,
				Castling: tt.castling,
				LastMove: tt.last,
			}
			if diff := cmp.Diff(moveNames(want), moveNames(legalMoves(&pos))); diff != "" {
				t.Fatalf("legal moves mismatch (-reference +ours):\n%s", diff)
			}
		})
	}
}
