package duel

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/Cheese-Duel/internal/rules"
	"github.com/park285/Cheese-Duel/internal/session"
)

// Archive records finished duels.
type Archive interface {
	SaveResult(ctx context.Context, t *Table) error
}

// PostgresArchive upserts finished duels into duel_games:
//
//	CREATE TABLE duel_games (
//	  game_id     text PRIMARY KEY,
//	  room        text NOT NULL,
//	  white_id    text, white_name text,
//	  black_id    text, black_name text,
//	  result      text NOT NULL,
//	  result_method text NOT NULL,
//	  moves       jsonb NOT NULL,
//	  started_at  timestamptz, ended_at timestamptz,
//	  duration_ms bigint
//	);
type PostgresArchive struct {
	db *sql.DB
}

func NewPostgresArchive(databaseURL string) (*PostgresArchive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresArchive{db: db}, nil
}

func (a *PostgresArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *PostgresArchive) SaveResult(ctx context.Context, t *Table) error {
	if a == nil || a.db == nil || t == nil {
		return nil
	}
	out := t.Session.Outcome
	if !out.Finished {
		return nil
	}
	moves, err := json.Marshal(t.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}
	duration := t.UpdatedAt.Sub(t.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const q = `INSERT INTO duel_games (
        game_id, room, white_id, white_name, black_id, black_name,
        result, result_method, moves, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10,$11,$12
      ) ON CONFLICT (game_id) DO UPDATE SET
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        moves=EXCLUDED.moves,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = a.db.ExecContext(ctx, q,
		t.ID, t.Room,
		t.White.ID, t.White.Name,
		t.Black.ID, t.Black.Name,
		resultToken(out), string(out.Reason), string(moves),
		t.CreatedAt, t.UpdatedAt, duration,
	)
	return err
}

// resultToken is the conventional score string of a decided duel.
func resultToken(out session.Outcome) string {
	switch {
	case !out.Finished:
		return "*"
	case out.Winner == rules.White:
		return "1-0"
	default:
		return "0-1"
	}
}
