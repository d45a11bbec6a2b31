package model

// DateLayout is the calendar date format used for due dates on the
// wire and in the draft form.
const DateLayout = "2006-01-02"

// Rental records that a user has rented a movie until a due date.
// Rentals are created and destroyed only through the catalog
// mutations; besides the foreign keys, DueDate is the only field
// that changes after creation.
//
// Fields:
//  ID      – primary key identifier.
//  UserID  – user holding the rental (references users.id).
//  MovieID – rented movie (references movies.id).
//  DueDate – calendar date formatted with DateLayout.
type Rental struct {
	ID      uint64 `json:"id"`       // rentals.id
	UserID  uint64 `json:"user_id"`  // rentals.user_id
	MovieID uint64 `json:"movie_id"` // rentals.movie_id
	DueDate string `json:"due_date"` // rentals.due_date
}

// RentalInput carries the values needed to create a rental.  It is
// the typed form of a validated draft and has no ID yet.
type RentalInput struct {
	UserID  uint64 `json:"user_id"`
	MovieID uint64 `json:"movie_id"`
	DueDate string `json:"due_date"`
}

// Snapshot is the loaded state of the catalog: the three collections
// the rental view renders from, plus whether the initial load is
// still in progress.
type Snapshot struct {
	Users   []User   `json:"users"`
	Movies  []Movie  `json:"movies"`
	Rentals []Rental `json:"rentals"`
	Loading bool     `json:"loading"`
}
