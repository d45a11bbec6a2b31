// Package queue defines message payloads exchanged over the message broker.
package queue

// RentalEventsQueue is the durable queue carrying rental changes.
const RentalEventsQueue = "rental.events"

// Rental event types.
const (
	RentalCreated = "rental.created"
	RentalUpdated = "rental.updated"
	RentalDeleted = "rental.deleted"
)

// RentalEvent is published after a rental mutation has been stored.  It
// carries the resolved user name and movie title so consumers can log or
// notify without querying the primary database.  Names are empty when
// the referenced row was not in the catalog snapshot.
type RentalEvent struct {
	Type       string `json:"type"`
	RentalID   uint64 `json:"rental_id"`
	UserID     uint64 `json:"user_id"`
	UserName   string `json:"user_name"`
	MovieID    uint64 `json:"movie_id"`
	MovieTitle string `json:"movie_title"`
	DueDate    string `json:"due_date"`
	OccurredAt string `json:"occurred_at"`
}
