package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/fathia/miniapp/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// MoodRepo is the append-only mood ledger. The current mood of an address
// is its most recent row.
type MoodRepo struct {
	pool *pgxpool.Pool
}

func NewMoodRepo(pool *pgxpool.Pool) *MoodRepo {
	return &MoodRepo{pool: pool}
}

func (r *MoodRepo) Append(ctx context.Context, rec *models.MoodRecord) error {
	rec.Address = strings.ToLower(rec.Address)
	return r.pool.QueryRow(ctx, `
		INSERT INTO moods (address, mood, tx_hash)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, created_at
	`, rec.Address, rec.Mood, rec.TxHash).Scan(&rec.ID, &rec.Timestamp)
}

func (r *MoodRepo) Latest(ctx context.Context, address string) (*models.MoodRecord, error) {
	var m models.MoodRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, address, mood, COALESCE(tx_hash, ''), created_at
		FROM moods WHERE address = $1
		ORDER BY created_at DESC LIMIT 1
	`, strings.ToLower(address)).Scan(&m.ID, &m.Address, &m.Mood, &m.TxHash, &m.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MoodRepo) History(ctx context.Context, address string, limit int) ([]models.MoodEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT mood, created_at FROM moods
		WHERE address = $1
		ORDER BY created_at DESC LIMIT $2
	`, strings.ToLower(address), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.MoodEntry, error) {
		var e models.MoodEntry
		err := row.Scan(&e.Mood, &e.Timestamp)
		return e, err
	})
}

// LatestPerAddress returns the current mood of every address, newest first.
func (r *MoodRepo) LatestPerAddress(ctx context.Context, limit int) ([]models.MoodRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, address, mood, tx_hash, created_at FROM (
			SELECT DISTINCT ON (address) id, address, mood, COALESCE(tx_hash, '') AS tx_hash, created_at
			FROM moods
			ORDER BY address, created_at DESC
		) latest
		ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MoodRecord
	for rows.Next() {
		var m models.MoodRecord
		if err := rows.Scan(&m.ID, &m.Address, &m.Mood, &m.TxHash, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
