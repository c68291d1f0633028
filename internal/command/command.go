// Package command parses duel chat commands such as "!대국 e2 e4".
package command

import (
	"strings"

	"github.com/park285/Cheese-Duel/internal/rules"
)

type Kind int

const (
	Help Kind = iota
	Start
	Move
	Promote
	Undo
	Redo
	Reset
	Board
	Resign
	// Usage marks a recognised keyword with malformed arguments.
	Usage
)

func (k Kind) String() string {
	switch k {
	case Help:
		return "help"
	case Start:
		return "start"
	case Move:
		return "move"
	case Promote:
		return "promote"
	case Undo:
		return "undo"
	case Redo:
		return "redo"
	case Reset:
		return "reset"
	case Board:
		return "board"
	case Resign:
		return "resign"
	default:
		return "usage"
	}
}

// Command is one parsed request.
type Command struct {
	Kind Kind
	// Opponent is the mention given to start, without the leading '@'.
	Opponent string
	From     string
	To       string
	// Piece is the promotion choice (Promote, or a Move written as e7e8q).
	Piece rules.Kind
	// Of names the keyword a Usage command was parsed from.
	Of Kind
}

var roots = map[string]bool{"대국": true, "duel": true}

var keywords = map[string]Kind{
	"시작": Start, "start": Start,
	"승급": Promote, "promote": Promote, "프로모션": Promote,
	"무르기": Undo, "undo": Undo,
	"다시": Redo, "redo": Redo,
	"초기화": Reset, "reset": Reset,
	"현황": Board, "board": Board, "판": Board,
	"기권": Resign, "resign": Resign,
	"도움말": Help, "help": Help,
}

// Parse reads text sent to the bot. ok is false when the text is not a duel
// command at all (wrong prefix or root word) and should be ignored.
func Parse(prefix, text string) (cmd Command, ok bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return Command{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 || !roots[strings.ToLower(fields[0])] {
		return Command{}, false
	}
	args := fields[1:]
	if len(args) == 0 {
		return Command{Kind: Help}, true
	}

	word := strings.ToLower(args[0])
	kind, isKeyword := keywords[word]
	if !isKeyword {
		return parseMove(args), true
	}
	rest := args[1:]
	switch kind {
	case Start:
		c := Command{Kind: Start}
		if len(rest) > 0 {
			// mentions may contain spaces ("@홍 길동")
			c.Opponent = strings.TrimSpace(strings.TrimPrefix(strings.Join(rest, " "), "@"))
		}
		return c, true
	case Promote:
		if len(rest) != 1 {
			return Command{Kind: Usage, Of: Promote}, true
		}
		piece, ok := promotionPiece(rest[0])
		if !ok {
			return Command{Kind: Usage, Of: Promote}, true
		}
		return Command{Kind: Promote, Piece: piece}, true
	default:
		return Command{Kind: kind}, true
	}
}

// parseMove accepts "e2 e4", "e2e4", "e2-e4" and a trailing promotion piece
// ("e7e8q", "e7 e8 q", "e7e8퀸"). A piece is only accepted on a pawn step onto
// the last rank.
func parseMove(args []string) Command {
	joined := strings.ToLower(strings.Join(args, ""))
	joined = strings.NewReplacer("-", "", "x", "").Replace(joined)

	bad := Command{Kind: Usage, Of: Move}
	if len(joined) < 4 {
		return bad
	}
	c := Command{Kind: Move, From: joined[:2], To: joined[2:4]}
	from, ok := rules.ParseSquare(c.From)
	if !ok {
		return bad
	}
	to, ok := rules.ParseSquare(c.To)
	if !ok {
		return bad
	}
	if suffix := joined[4:]; suffix != "" {
		piece, ok := promotionPiece(suffix)
		if !ok || !promotionStep(from, to) {
			return bad
		}
		c.Piece = piece
	}
	return c
}

// promotionStep reports whether from -> to could be a pawn reaching the last
// rank: 7th to 8th or 2nd to 1st, at most one file over.
func promotionStep(from, to rules.Square) bool {
	df := from.Col - to.Col
	if df < -1 || df > 1 {
		return false
	}
	return (from.Row == 1 && to.Row == 0) || (from.Row == 6 && to.Row == 7)
}

var koreanPieces = map[string]rules.Kind{
	"퀸": rules.Queen, "룩": rules.Rook, "비숍": rules.Bishop, "나이트": rules.Knight,
}

func promotionPiece(s string) (rules.Kind, bool) {
	s = strings.TrimSpace(s)
	if k, ok := koreanPieces[s]; ok {
		return k, true
	}
	k, ok := rules.KindFromLetter(s)
	if !ok || !k.Promotable() {
		return rules.None, false
	}
	return k, true
}
