package model

// Movie represents a title available for rent, as stored in the
// `movies` table.  Rentals reference movies by ID and the rental
// view resolves the title for display and sorting.
//
// Fields:
//  ID    – primary key identifier.
//  Title – movie title shown in the rental rows.
type Movie struct {
	ID    uint64 `json:"id"`    // movies.id
	Title string `json:"title"` // movies.title
}
