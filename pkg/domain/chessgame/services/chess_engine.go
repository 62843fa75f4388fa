package chessgame_services

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	chessgame_out "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/out"
)

// NotnilChessEngine adapts github.com/notnil/chess to the ChessEngine
// port. Per spec §2 component A, a rules engine is "usually a library";
// no chess move-legality implementation exists anywhere in the retrieval
// pack, so this is a named, ungrounded ecosystem dependency (see
// DESIGN.md).
type NotnilChessEngine struct {
	game *chess.Game
}

func NewNotnilChessEngine() *NotnilChessEngine {
	return &NotnilChessEngine{game: chess.NewGame()}
}

var _ chessgame_out.ChessEngine = (*NotnilChessEngine)(nil)

// TryApply tries UCI notation first, falling back to SAN, so both
// coordinate and algebraic client input are accepted (spec §4.A).
func (e *NotnilChessEngine) TryApply(move string) (chessgame_out.AppliedMove, error) {
	move = strings.TrimSpace(move)
	if move == "" {
		return chessgame_out.AppliedMove{}, fmt.Errorf("empty move")
	}

	validMoves := e.game.ValidMoves()

	var matched *chess.Move
	uciNotation := chess.UCINotation{}
	algNotation := chess.AlgebraicNotation{}

	for _, candidate := range validMoves {
		if uciNotation.Encode(e.game.Position(), candidate) == move {
			matched = candidate
			break
		}
		if algNotation.Encode(e.game.Position(), candidate) == move {
			matched = candidate
			break
		}
	}

	if matched == nil {
		return chessgame_out.AppliedMove{}, fmt.Errorf("illegal move: %s", move)
	}

	position := e.game.Position()
	san := algNotation.Encode(position, matched)
	uci := uciNotation.Encode(position, matched)

	if err := e.game.Move(matched); err != nil {
		return chessgame_out.AppliedMove{}, fmt.Errorf("illegal move: %s", move)
	}

	return chessgame_out.AppliedMove{
		SAN: san,
		UCI: uci,
		FEN: e.game.FEN(),
	}, nil
}

func (e *NotnilChessEngine) SideToMove() string {
	if e.game.Position().Turn() == chess.White {
		return "w"
	}
	return "b"
}

func (e *NotnilChessEngine) FEN() string {
	return e.game.FEN()
}

func (e *NotnilChessEngine) PGN() string {
	return e.game.String()
}

func (e *NotnilChessEngine) Terminal() chessgame_out.TerminalState {
	outcome := e.game.Outcome()
	method := e.game.Method()

	state := chessgame_out.TerminalState{
		Over:                 outcome != chess.NoOutcome,
		Checkmate:            method == chess.Checkmate,
		Stalemate:            method == chess.Stalemate,
		ThreefoldRepetition:  method == chess.ThreefoldRepetition,
		InsufficientMaterial: method == chess.InsufficientMaterial,
		FiftyMoveRule:        method == chess.FiftyMoveRule,
	}
	state.Draw = state.Stalemate || state.ThreefoldRepetition || state.InsufficientMaterial || state.FiftyMoveRule

	return state
}
