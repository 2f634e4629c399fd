package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/suit/internal/gesture"
)

// Move is one player's recorded gesture.
type Move struct {
	Label      gesture.Label `json:"label"`
	Confidence float64       `json:"confidence"`
	Source     string        `json:"source"`
}

// Round represents a resolved round stored in the database.
type Round struct {
	ID        string
	SessionID string
	Number    int
	Player1   Move
	Player2   Move
	Outcome   gesture.Outcome
	Reason    string
	CreatedAt time.Time

	// Thumbnails are only loaded by Get.
	Player1Thumb []byte
	Player2Thumb []byte
}

// Tally is the score of a session computed from its rounds.
type Tally struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
	Ties    int `json:"ties"`
	Rounds  int `json:"rounds"`
}

// RoundRepository provides operations on the round history.
type RoundRepository struct {
	db *sql.DB
}

// Rounds returns the round repository for this store.
func (s *Store) Rounds() *RoundRepository {
	return &RoundRepository{db: s.db}
}

// Create inserts a round. An empty ID is filled with a new UUID and a zero
// CreatedAt with the current time.
func (r *RoundRepository) Create(rd *Round) error {
	if rd.ID == "" {
		rd.ID = uuid.NewString()
	}
	if rd.CreatedAt.IsZero() {
		rd.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO rounds (id, session_id, number,
			player1_label, player1_confidence, player1_source,
			player2_label, player2_confidence, player2_source,
			outcome, reason, player1_thumb, player2_thumb, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.ID, rd.SessionID, rd.Number,
		string(rd.Player1.Label), rd.Player1.Confidence, rd.Player1.Source,
		string(rd.Player2.Label), rd.Player2.Confidence, rd.Player2.Source,
		string(rd.Outcome), rd.Reason, rd.Player1Thumb, rd.Player2Thumb, rd.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

const roundColumns = `id, session_id, number,
	player1_label, player1_confidence, player1_source,
	player2_label, player2_confidence, player2_source,
	outcome, reason, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner, extra ...any) (*Round, error) {
	rd := &Round{}
	var p1, p2, outcome string

	dest := []any{
		&rd.ID, &rd.SessionID, &rd.Number,
		&p1, &rd.Player1.Confidence, &rd.Player1.Source,
		&p2, &rd.Player2.Confidence, &rd.Player2.Source,
		&outcome, &rd.Reason, &rd.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	rd.Player1.Label = gesture.Label(p1)
	rd.Player2.Label = gesture.Label(p2)
	rd.Outcome = gesture.Outcome(outcome)
	return rd, nil
}

// Get retrieves a round, including thumbnails, by its ID.
func (r *RoundRepository) Get(id string) (*Round, error) {
	var t1, t2 []byte
	rd, err := scanRound(r.db.QueryRow(
		`SELECT `+roundColumns+`, player1_thumb, player2_thumb FROM rounds WHERE id = ?`, id,
	), &t1, &t2)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rd.Player1Thumb = t1
	rd.Player2Thumb = t2
	return rd, nil
}

// Thumbnail returns the stored photo thumbnail of player 1 or 2.
func (r *RoundRepository) Thumbnail(id string, player int) ([]byte, error) {
	var column string
	switch player {
	case 1:
		column = "player1_thumb"
	case 2:
		column = "player2_thumb"
	default:
		return nil, fmt.Errorf("invalid player %d", player)
	}

	var thumb []byte
	err := r.db.QueryRow(`SELECT `+column+` FROM rounds WHERE id = ?`, id).Scan(&thumb)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(thumb) == 0 {
		return nil, ErrNotFound
	}
	return thumb, nil
}

// List returns the most recent rounds first, without thumbnails. An empty
// sessionID lists rounds of every session; limit <= 0 means no limit.
func (r *RoundRepository) List(sessionID string, limit int) ([]*Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC, number DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []*Round
	for rows.Next() {
		rd, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, rd)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rounds, nil
}

// Tally computes the score of a session from its stored rounds.
func (r *RoundRepository) Tally(sessionID string) (Tally, error) {
	var t Tally
	err := r.db.QueryRow(
		`SELECT
			COALESCE(SUM(CASE WHEN outcome = 'winner_a' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'winner_b' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'tie' THEN 1 ELSE 0 END), 0),
			COUNT(*)
		 FROM rounds WHERE session_id = ?`,
		sessionID,
	).Scan(&t.Player1, &t.Player2, &t.Ties, &t.Rounds)
	if err != nil {
		return Tally{}, err
	}
	return t, nil
}

// Delete removes a round by its ID.
func (r *RoundRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM rounds WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
