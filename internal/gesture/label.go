// Package gesture defines the rock-paper-scissors gesture labels, the label table
// that maps classifier outputs to labels, and the winner resolver.
package gesture

import "strings"

// Label is a recognized hand gesture.
type Label string

const (
	// Rock is a closed fist.
	Rock Label = "rock"
	// Scissors is two extended fingers.
	Scissors Label = "scissors"
	// Paper is an open hand.
	Paper Label = "paper"
	// Unknown is produced when a classifier output index has no label.
	// It is not part of the playable set.
	Unknown Label = "unknown"
)

// Labels lists the playable gestures in default table order.
var Labels = []Label{Rock, Scissors, Paper}

// localNames are the names used by the original game and its label files.
var localNames = map[Label]string{
	Rock:     "batu",
	Scissors: "gunting",
	Paper:    "kertas",
}

var emojis = map[Label]string{
	Rock:     "✊",
	Scissors: "✌️",
	Paper:    "✋",
}

// ParseLabel resolves a canonical or local gesture name, ignoring case and
// surrounding whitespace. It reports false for anything outside the playable set.
func ParseLabel(s string) (Label, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, l := range Labels {
		if name == string(l) || name == localNames[l] {
			return l, true
		}
	}
	return Unknown, false
}

// Valid reports whether l is one of the playable gestures.
func (l Label) Valid() bool {
	_, ok := localNames[l]
	return ok
}

// Local returns the external-facing name (batu, gunting, kertas).
func (l Label) Local() string {
	if name, ok := localNames[l]; ok {
		return name
	}
	return string(Unknown)
}

// Emoji returns the emoji shown for the gesture, or a question mark.
func (l Label) Emoji() string {
	if e, ok := emojis[l]; ok {
		return e
	}
	return "❓"
}

func (l Label) String() string {
	return string(l)
}
