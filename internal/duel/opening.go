package duel

import (
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

// openingPlyLimit bounds how long the opening name is looked up.
const openingPlyLimit = 16

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

func ecoOpenings() *opening.BookECO {
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	return ecoBook
}

// nameOpening returns the ECO code and title of the longest book line the
// move log follows. Logs that leave standard play (or run past the ply
// limit) return empty strings.
func nameOpening(moves []string) (string, string) {
	if len(moves) == 0 || len(moves) > openingPlyLimit {
		return "", ""
	}
	game := nchess.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return "", ""
		}
	}
	book := ecoOpenings()
	if book == nil {
		return "", ""
	}
	if eco := book.Find(game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}
