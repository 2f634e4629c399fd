package main

import (
	"encoding/json"
	"fmt"

	"github.com/ayusman/suit/internal/gesture"
)

// ResolveCmd decides a round between two named gestures.
type ResolveCmd struct {
	Player1 string `arg:"" help:"Player 1 gesture (rock, scissors, paper or batu, gunting, kertas)"`
	Player2 string `arg:"" help:"Player 2 gesture"`
}

func (c *ResolveCmd) Run(g *Globals) error {
	a, _ := gesture.ParseLabel(c.Player1)
	b, _ := gesture.ParseLabel(c.Player2)
	printVerdict(g, a, b, gesture.Resolve(a, b))
	return nil
}

func printVerdict(g *Globals, a, b gesture.Label, v gesture.Verdict) {
	fmt.Fprintf(g.Stdout, "Player 1: %s %s\n", a.Emoji(), a.Local())
	fmt.Fprintf(g.Stdout, "Player 2: %s %s\n", b.Emoji(), b.Local())

	switch v.Outcome {
	case gesture.WinnerA:
		fmt.Fprintln(g.Stdout, "Player 1 wins!")
	case gesture.WinnerB:
		fmt.Fprintln(g.Stdout, "Player 2 wins!")
	default:
		fmt.Fprintln(g.Stdout, "Tie!")
	}
	fmt.Fprintln(g.Stdout, v.LocalReason())
}

// ModelCmd loads the model and prints what was loaded.
type ModelCmd struct{}

func (c *ModelCmd) Run(g *Globals) error {
	g.NoHistory = true
	a, _, err := g.newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	enc := json.NewEncoder(g.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(a.Preload())
}
