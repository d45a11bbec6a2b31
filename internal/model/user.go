package model

// User represents a customer record as stored in the `users` table.
// Users are read-only from the rental view's perspective; they are
// managed elsewhere and only referenced by rentals.
//
// Fields:
//  ID   – primary key identifier of the user.
//  Name – display name; rental groups are ordered by it.
type User struct {
	ID   uint64 `json:"id"`   // users.id
	Name string `json:"name"` // users.name
}
