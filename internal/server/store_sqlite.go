package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/drawcast/internal/drawday"
)

// tsLayout is fixed-width so stored timestamps sort lexicographically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// SQLiteStore implements Store on the schema in internal/migrations.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) ListGames(ctx context.Context) ([]drawday.Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, result_time, created_at, updated_at
		FROM games
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := []drawday.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *SQLiteStore) GameByID(ctx context.Context, id string) (drawday.Game, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, result_time, created_at, updated_at
		FROM games WHERE id = ?
	`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return g, drawday.ErrNotFound
	}
	return g, err
}

func (s *SQLiteStore) InsertGame(ctx context.Context, g drawday.Game) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, name, result_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, g.ID, g.Name, g.ResultTime, formatTS(g.CreatedAt), formatTS(g.UpdatedAt))
	return err
}

func (s *SQLiteStore) UpdateGame(ctx context.Context, g drawday.Game) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE games SET name = ?, result_time = ?, updated_at = ?
		WHERE id = ?
	`, g.Name, g.ResultTime, formatTS(g.UpdatedAt), g.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *SQLiteStore) DeleteGame(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE game_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := expectOne(res); err != nil {
		return err
	}
	return tx.Commit()
}

const resultColumns = `r.id, r.game_id, g.name, r.game_day, r.value, r.published_at, r.published_by`

func (s *SQLiteStore) FindResultForGameOnDay(ctx context.Context, gameID, gameDay string) (drawday.Result, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+resultColumns+`
		FROM results r
		JOIN games g ON g.id = r.game_id
		WHERE r.game_id = ? AND r.game_day = ?
	`, gameID, gameDay)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, drawday.ErrNotFound
	}
	return r, err
}

// InsertResult relies on idx_results_game_day: of two concurrent inserts for
// the same game and day, exactly one affects a row.
func (s *SQLiteStore) InsertResult(ctx context.Context, r drawday.Result) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO results (id, game_id, game_day, value, published_at, published_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, game_day) DO NOTHING
	`, r.ID, r.GameID, r.GameDay, r.Value, formatTS(r.PublishedAt), r.PublishedBy)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return drawday.ErrAlreadyPublished
	}
	return nil
}

func (s *SQLiteStore) ResultByID(ctx context.Context, id string) (drawday.Result, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+resultColumns+`
		FROM results r
		JOIN games g ON g.id = r.game_id
		WHERE r.id = ?
	`, id)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, drawday.ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) UpdateResultValue(ctx context.Context, id, value string) (drawday.Result, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE results SET value = ? WHERE id = ?`, value, id)
	if err != nil {
		return drawday.Result{}, err
	}
	if err := expectOne(res); err != nil {
		return drawday.Result{}, err
	}
	return s.ResultByID(ctx, id)
}

func (s *SQLiteStore) DeleteResult(ctx context.Context, id string) (drawday.Result, error) {
	r, err := s.ResultByID(ctx, id)
	if err != nil {
		return r, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return r, err
	}
	return r, expectOne(res)
}

func (s *SQLiteStore) ListResultsForDay(ctx context.Context, gameDay string) ([]drawday.Result, error) {
	return s.queryResults(ctx, `
		SELECT `+resultColumns+`
		FROM results r
		JOIN games g ON g.id = r.game_id
		WHERE r.game_day = ?
		ORDER BY g.name
	`, gameDay)
}

func (s *SQLiteStore) ListResultsPublishedBetween(ctx context.Context, start, end time.Time) ([]drawday.Result, error) {
	return s.queryResults(ctx, `
		SELECT `+resultColumns+`
		FROM results r
		JOIN games g ON g.id = r.game_id
		WHERE r.published_at >= ? AND r.published_at < ?
		ORDER BY r.published_at
	`, formatTS(start), formatTS(end))
}

func (s *SQLiteStore) queryResults(ctx context.Context, query string, args ...any) ([]drawday.Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []drawday.Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Check satisfies health.Checker.
func (s *SQLiteStore) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(sc scanner) (drawday.Game, error) {
	var g drawday.Game
	var createdAt, updatedAt string
	if err := sc.Scan(&g.ID, &g.Name, &g.ResultTime, &createdAt, &updatedAt); err != nil {
		return g, err
	}
	var err error
	if g.CreatedAt, err = parseTS(createdAt); err != nil {
		return g, err
	}
	if g.UpdatedAt, err = parseTS(updatedAt); err != nil {
		return g, err
	}
	return g, nil
}

func scanResult(sc scanner) (drawday.Result, error) {
	var r drawday.Result
	var publishedAt string
	if err := sc.Scan(&r.ID, &r.GameID, &r.GameName, &r.GameDay, &r.Value, &publishedAt, &r.PublishedBy); err != nil {
		return r, err
	}
	var err error
	r.PublishedAt, err = parseTS(publishedAt)
	return r, err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return drawday.ErrNotFound
	}
	return nil
}
