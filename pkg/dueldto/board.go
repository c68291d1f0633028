package dueldto

// Seat is a player shown to the chat.
type Seat struct {
	ID   string
	Name string
}

// BoardState is the presentation view of one duel table.
type BoardState struct {
	TableID string
	Room    string
	White   Seat
	Black   Seat

	// Turn is "white" or "black".
	Turn     string
	MoveLog  []string
	LastMove string

	OpeningCode  string
	OpeningTitle string

	// Checked lists the colors currently in check.
	Checked []string
	// Promotion is the square of a pawn awaiting its promotion piece.
	Promotion string

	ClockRunning bool
	ClockLeft    int

	Finished bool
	Winner   string
	// Reason is "king_captured", "clock_expired" or "resigned".
	Reason string

	CanUndo bool
	CanRedo bool

	BoardImage []byte
}

// SeatOf returns the seat of color ("white" / "black").
func (s *BoardState) SeatOf(color string) Seat {
	if color == "black" {
		return s.Black
	}
	return s.White
}
