package chessgame_entities

import chessgame_vo "github.com/coffeechess/coordinator/pkg/domain/chessgame/value-objects"

// Outcome is the terminal result stored on an ended Room (spec §3
// verdict). Winner is "white", "black", or "draw".
type Outcome string

const (
	OutcomeWhite Outcome = "white"
	OutcomeBlack Outcome = "black"
	OutcomeDraw  Outcome = "draw"
)

// Scores is the point split on termination: 1000/0 decisive, 500/500
// draw (spec §4.D end procedure).
type Scores struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// Verdict is the immutable, cached terminal result of a Room, signed by
// the coordinator's Verdict Signer and never recomputed once set (spec
// §8: "Verdict signatures, once emitted, are bit-identical on every
// subsequent retrieval").
type Verdict struct {
	Winner          Outcome `json:"winner"`
	Reason          string  `json:"reason"`
	Scores          Scores  `json:"scores"`
	SignatureWhite  string  `json:"signature_white,omitempty"`
	SignatureBlack  string  `json:"signature_black,omitempty"`
	WinnerAddress   string  `json:"winner_address,omitempty"`
}

func DecisiveScores(winner chessgame_vo.Color) Scores {
	if winner == chessgame_vo.White {
		return Scores{White: 1000, Black: 0}
	}
	return Scores{White: 0, Black: 1000}
}

func DrawScores() Scores {
	return Scores{White: 500, Black: 500}
}
