package gesture

import "fmt"

// Outcome is the result of a round from player A's point of view.
type Outcome string

const (
	Tie     Outcome = "tie"
	WinnerA Outcome = "winner_a"
	WinnerB Outcome = "winner_b"
)

// Reasons attached to non-winning verdicts.
const (
	ReasonTie          = "tie"
	ReasonUndetermined = "undetermined"
)

// Verdict is the outcome of a round and the edge that decided it.
type Verdict struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
	// Winner and Loser are set only when one side wins.
	Winner Label `json:"winner,omitempty"`
	Loser  Label `json:"loser,omitempty"`
}

// beats is the dominance relation: key beats value.
var beats = map[Label]Label{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// narrations are the original game's descriptions of each winning edge.
var narrations = map[Label]string{
	Rock:     "Batu menghancurkan Gunting!",
	Scissors: "Gunting memotong Kertas!",
	Paper:    "Kertas membungkus Batu!",
}

// Beats reports whether a dominates b.
func Beats(a, b Label) bool {
	loser, ok := beats[a]
	return ok && loser == b
}

// Resolve decides a round between player A and player B. It is total: labels
// outside the playable set resolve to a tie with an undetermined reason.
func Resolve(a, b Label) Verdict {
	if !a.Valid() || !b.Valid() {
		return Verdict{Outcome: Tie, Reason: ReasonUndetermined}
	}
	if a == b {
		return Verdict{Outcome: Tie, Reason: ReasonTie}
	}
	if Beats(a, b) {
		return Verdict{Outcome: WinnerA, Reason: edgeReason(a, b), Winner: a, Loser: b}
	}
	return Verdict{Outcome: WinnerB, Reason: edgeReason(b, a), Winner: b, Loser: a}
}

func edgeReason(winner, loser Label) string {
	return fmt.Sprintf("%s beats %s", winner, loser)
}

// LocalReason returns the narration shown to players.
func (v Verdict) LocalReason() string {
	switch {
	case v.Winner != "":
		return narrations[v.Winner]
	case v.Reason == ReasonUndetermined:
		return "Hasil tidak dapat ditentukan."
	default:
		return "Seri! Keduanya memilih yang sama."
	}
}
