package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/suit/internal/gesture"
)

func TestNew_CreatesSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "suit.db")
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if s.Path() != dbPath {
		t.Errorf("expected path %s, got %s", dbPath, s.Path())
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file should exist after creating store: %v", err)
	}

	objects := []struct {
		kind, name string
	}{
		{"table", "sessions"},
		{"table", "rounds"},
		{"index", "idx_rounds_session_id"},
		{"index", "idx_rounds_created_at"},
	}
	for _, obj := range objects {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type=? AND name=?",
			obj.kind, obj.name,
		).Scan(&name)
		if err != nil {
			t.Errorf("%s %q should exist after migrations: %v", obj.kind, obj.name, err)
		}
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "no", "such", "dir", "suit.db"))
	if err == nil {
		t.Fatal("expected an error for a database in a missing directory")
	}
}

func TestNew_ReopenKeepsHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "suit.db")
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	newTestSession(t, s, "sess-1", started)
	rd := testRound("sess-1", 1, gesture.Scissors, gesture.Paper, started)
	if err := s.Rounds().Create(rd); err != nil {
		t.Fatalf("failed to create round: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	// migrations run again on open and must leave existing rounds alone
	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Rounds().Get(rd.ID)
	if err != nil {
		t.Fatalf("round should survive reopening: %v", err)
	}
	if got.Reason != "scissors beats paper" {
		t.Errorf("unexpected reason %q", got.Reason)
	}
}

func insertRawRound(s *Store, id, sessionID, outcome string) error {
	_, err := s.DB().Exec(`
		INSERT INTO rounds (id, session_id, number,
			player1_label, player1_confidence, player1_source,
			player2_label, player2_confidence, player2_source,
			outcome, reason, created_at)
		VALUES (?, ?, 1, 'rock', 0.9, 'model', 'paper', 1.0, 'manual', ?, 'paper beats rock', ?)`,
		id, sessionID, outcome, time.Now().UTC())
	return err
}

func TestRoundsSchema_OutcomeConstraint(t *testing.T) {
	s := newTestStore(t)
	newTestSession(t, s, "sess-1", time.Now())

	outcomes := []struct {
		outcome string
		valid   bool
	}{
		{string(gesture.Tie), true},
		{string(gesture.WinnerA), true},
		{string(gesture.WinnerB), true},
		{"draw", false},
		{"player2", false},
		{"", false},
	}

	for i, tt := range outcomes {
		t.Run(tt.outcome, func(t *testing.T) {
			err := insertRawRound(s, "round-"+string(rune('a'+i)), "sess-1", tt.outcome)
			if tt.valid && err != nil {
				t.Errorf("outcome %q should be accepted: %v", tt.outcome, err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatalf("outcome %q should be rejected", tt.outcome)
				}
				if !strings.Contains(strings.ToLower(err.Error()), "check") {
					t.Errorf("expected a CHECK constraint failure, got %v", err)
				}
			}
		})
	}
}

func TestRoundsSchema_ForeignKeys(t *testing.T) {
	s := newTestStore(t)

	// every pooled connection enforces the session reference
	s.DB().SetMaxIdleConns(4)
	for i := 0; i < 4; i++ {
		var fkEnabled int
		if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
			t.Fatalf("failed to check foreign keys pragma: %v", err)
		}
		if fkEnabled != 1 {
			t.Error("foreign keys should be enabled")
		}
	}

	if err := insertRawRound(s, "orphan", "no-such-session", string(gesture.Tie)); err == nil {
		t.Error("a round without its session should be rejected")
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "suit.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}
	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}
