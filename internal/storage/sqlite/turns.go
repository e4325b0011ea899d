package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/mualim/internal/core"
	"github.com/sandevgo/mualim/pkg/log"
)

type TurnsRepo struct {
	db *sql.DB
}

func NewTurnsRepo(db *sql.DB) *TurnsRepo {
	return &TurnsRepo{db: db}
}

func (r *TurnsRepo) AddTurn(ctx context.Context, sessionID string, turn core.Turn) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content) VALUES (?, ?, ?)`,
		sessionID, turn.Role, turn.Content)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

func (r *TurnsRepo) GetTurns(ctx context.Context, sessionID string, limit int) ([]core.Turn, error) {
	// Fetch the LAST 'limit' turns by ordering DESC
	rows, err := r.db.QueryContext(ctx,
		`SELECT role, content FROM turns WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var t core.Turn
		var content sql.NullString
		if err := rows.Scan(&t.Role, &content); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Content = content.String
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Back to chronological order for the provider
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(turns)).Msg("loaded history turns")
	return turns, nil
}
