// Package repository contains data access logic separated from HTTP handlers.
// This file holds the rental queries.  A Rental links a user to a movie
// until a due date; the due date is stored as a DATE column and exchanged
// as a "YYYY-MM-DD" string.
package repository

import (
	"context"      // context carries deadlines and cancellation to DB operations
	"database/sql" // sql provides generic database operations
	"errors"       // errors checks for sql.ErrNoRows
	"time"         // time formats DATE values

	"github.com/iliyamo/movie-rentals/internal/model"
)

// RentalRepo encapsulates all database queries related to rentals.
type RentalRepo struct {
	db *sql.DB // db is the underlying connection pool
}

// NewRentalRepo constructs a RentalRepo with the provided DB handle.
func NewRentalRepo(db *sql.DB) *RentalRepo {
	return &RentalRepo{db: db}
}

const rentalColumns = "id, user_id, movie_id, due_date"

func scanRental(sc interface{ Scan(...any) error }) (model.Rental, error) {
	var (
		r   model.Rental
		due time.Time
	)
	if err := sc.Scan(&r.ID, &r.UserID, &r.MovieID, &due); err != nil {
		return model.Rental{}, err
	}
	r.DueDate = due.Format(model.DateLayout)
	return r, nil
}

// ListAll returns every rental in insertion (id) order.  The rental view
// relies on this order when no sort key is selected.
func (r *RentalRepo) ListAll(ctx context.Context) ([]model.Rental, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+rentalColumns+" FROM rentals ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Rental{}
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rental)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a rental.  It returns ErrRentalNotFound if no row matches.
func (r *RentalRepo) GetByID(ctx context.Context, id uint64) (model.Rental, error) {
	rental, err := scanRental(r.db.QueryRowContext(ctx, "SELECT "+rentalColumns+" FROM rentals WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Rental{}, ErrRentalNotFound
		}
		return model.Rental{}, err
	}
	return rental, nil
}

// Create inserts a rental and returns it with the generated id.  Unknown
// user or movie ids yield ErrConflict.
func (r *RentalRepo) Create(ctx context.Context, in model.RentalInput) (model.Rental, error) {
	const q = "INSERT INTO rentals (user_id, movie_id, due_date) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, in.UserID, in.MovieID, in.DueDate)
	if err != nil {
		return model.Rental{}, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Rental{}, err
	}
	return model.Rental{ID: uint64(id), UserID: in.UserID, MovieID: in.MovieID, DueDate: in.DueDate}, nil
}

// Update overwrites the foreign keys and due date of rental.ID.  It
// returns ErrRentalNotFound when the row does not exist.
func (r *RentalRepo) Update(ctx context.Context, rental model.Rental) error {
	const q = `UPDATE rentals
	           SET user_id = ?, movie_id = ?, due_date = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, rental.UserID, rental.MovieID, rental.DueDate, rental.ID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows for unchanged values too, so
		// check that the row is really gone.
		if _, err := r.GetByID(ctx, rental.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a rental.  It returns ErrRentalNotFound when nothing
// was deleted.
func (r *RentalRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM rentals WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRentalNotFound
	}
	return nil
}
