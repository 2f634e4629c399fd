package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/ayusman/suit/internal/store"
)

// RoundsCmd prints the round history.
type RoundsCmd struct {
	Session string `help:"Only rounds of this session"`
	Limit   int    `default:"20" help:"Maximum rounds to show (0 = all)"`
}

func (c *RoundsCmd) Run(g *Globals) error {
	if g.DataDir == "" {
		return errors.New("no data directory configured")
	}
	s, err := store.New(filepath.Join(g.DataDir, "suit.db"))
	if err != nil {
		return err
	}
	defer s.Close()

	rounds, err := s.Rounds().List(c.Session, c.Limit)
	if err != nil {
		return err
	}
	if len(rounds) == 0 {
		fmt.Fprintln(g.Stdout, "No rounds played yet.")
		return nil
	}

	w := tabwriter.NewWriter(g.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAYED\tSESSION\tROUND\tPLAYER 1\tPLAYER 2\tOUTCOME")
	for _, rd := range rounds {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s (%s %.2f)\t%s (%s %.2f)\t%s\n",
			rd.CreatedAt.Local().Format("2006-01-02 15:04"),
			shortID(rd.SessionID),
			rd.Number,
			rd.Player1.Label, rd.Player1.Source, rd.Player1.Confidence,
			rd.Player2.Label, rd.Player2.Source, rd.Player2.Confidence,
			rd.Outcome,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if c.Session != "" {
		t, err := s.Rounds().Tally(c.Session)
		if err != nil {
			return err
		}
		fmt.Fprintf(g.Stdout, "\nScore: player 1 %d, player 2 %d, ties %d over %d rounds\n",
			t.Player1, t.Player2, t.Ties, t.Rounds)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
