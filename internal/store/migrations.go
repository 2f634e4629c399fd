package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per game session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL
		)`,

		// Rounds table - resolved rounds with both moves and the verdict
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			number INTEGER NOT NULL,
			player1_label TEXT NOT NULL,
			player1_confidence REAL NOT NULL,
			player1_source TEXT NOT NULL,
			player2_label TEXT NOT NULL,
			player2_confidence REAL NOT NULL,
			player2_source TEXT NOT NULL,
			outcome TEXT NOT NULL CHECK(outcome IN ('tie', 'winner_a', 'winner_b')),
			reason TEXT NOT NULL,
			player1_thumb BLOB,
			player2_thumb BLOB,
			created_at DATETIME NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_rounds_session_id ON rounds(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_created_at ON rounds(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
