package chessgame_out

// AppliedMove is what a successful ChessEngine.TryApply returns: the
// canonical notations and resulting position, per spec §4.A.
type AppliedMove struct {
	SAN string
	UCI string
	FEN string
}

// TerminalState reports which, if any, terminal predicate currently
// holds over the engine's position (spec §4.A).
type TerminalState struct {
	Over                 bool
	Checkmate            bool
	Stalemate             bool
	ThreefoldRepetition  bool
	InsufficientMaterial bool
	FiftyMoveRule        bool
	Draw                 bool
}

// ChessEngine is the move-legality and terminal-state oracle a Room
// privately owns (spec §2 component A: "usually a library" — this port
// exists so Room never imports the underlying rules library directly).
type ChessEngine interface {
	// TryApply accepts a move in either coordinate (UCI, e.g. "e2e4") or
	// SAN (e.g. "Nf3") notation, canonicalizing on acceptance. Returns an
	// error if the move is not legal in the current position.
	TryApply(move string) (AppliedMove, error)
	SideToMove() string // "w" or "b"
	FEN() string
	PGN() string
	Terminal() TerminalState
}
