package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-rentals/internal/model"
)

// MovieRepo reads the movies that can be rented.
type MovieRepo struct{ DB *sql.DB }

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{DB: db} }

// ListAll returns every movie ordered by id.
func (r *MovieRepo) ListAll(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, title FROM movies ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
