// Package catalog is the data collaborator behind the rental view.  It
// keeps the last loaded users, movies and rentals in memory, performs
// rental mutations against the repositories and reloads its snapshot
// afterwards, and announces every stored change on the message broker.
package catalog

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/movie-rentals/internal/model"
	"github.com/iliyamo/movie-rentals/internal/queue"
)

// UserLister loads the users.
type UserLister interface {
	ListAll(ctx context.Context) ([]model.User, error)
}

// MovieLister loads the movies.
type MovieLister interface {
	ListAll(ctx context.Context) ([]model.Movie, error)
}

// RentalStore persists rentals.
type RentalStore interface {
	ListAll(ctx context.Context) ([]model.Rental, error)
	Create(ctx context.Context, in model.RentalInput) (model.Rental, error)
	Update(ctx context.Context, r model.Rental) error
	Delete(ctx context.Context, id uint64) error
}

// Publisher announces stored rental changes.
type Publisher interface {
	Publish(ctx context.Context, ev queue.RentalEvent) error
}

// Catalog is safe for concurrent use.
type Catalog struct {
	users   UserLister
	movies  MovieLister
	rentals RentalStore
	pub     Publisher // may be nil

	mu   sync.RWMutex
	snap model.Snapshot

	inflight       sync.WaitGroup
	publishTimeout time.Duration
	now            func() time.Time
}

// New returns a Catalog that reports Loading until the first successful
// Refresh.  pub may be nil to disable events.
func New(users UserLister, movies MovieLister, rentals RentalStore, pub Publisher) *Catalog {
	if users == nil || movies == nil || rentals == nil {
		panic("nil repository passed to catalog.New")
	}
	return &Catalog{
		users:          users,
		movies:         movies,
		rentals:        rentals,
		pub:            pub,
		snap:           model.Snapshot{Loading: true},
		publishTimeout: 5 * time.Second,
		now:            time.Now,
	}
}

// Snapshot returns a copy of the loaded collections.
func (c *Catalog) Snapshot() model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.Snapshot{
		Users:   slices.Clone(c.snap.Users),
		Movies:  slices.Clone(c.snap.Movies),
		Rentals: slices.Clone(c.snap.Rentals),
		Loading: c.snap.Loading,
	}
}

// Rental looks a rental up in the snapshot.
func (c *Catalog) Rental(id uint64) (model.Rental, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.snap.Rentals {
		if r.ID == id {
			return r, true
		}
	}
	return model.Rental{}, false
}

// Refresh reloads all three collections.  On error the previous
// snapshot is kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	users, err := c.users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	movies, err := c.movies.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load movies: %w", err)
	}
	rentals, err := c.rentals.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load rentals: %w", err)
	}
	c.mu.Lock()
	c.snap = model.Snapshot{Users: users, Movies: movies, Rentals: rentals}
	c.mu.Unlock()
	return nil
}

// AddRental stores a new rental.
func (c *Catalog) AddRental(ctx context.Context, in model.RentalInput) error {
	created, err := c.rentals.Create(ctx, in)
	if err != nil {
		return fmt.Errorf("create rental: %w", err)
	}
	c.afterWrite(ctx, queue.RentalCreated, created)
	return nil
}

// UpdateRental overwrites a stored rental.
func (c *Catalog) UpdateRental(ctx context.Context, r model.Rental) error {
	if err := c.rentals.Update(ctx, r); err != nil {
		return fmt.Errorf("update rental %d: %w", r.ID, err)
	}
	c.afterWrite(ctx, queue.RentalUpdated, r)
	return nil
}

// DeleteRental removes a stored rental.
func (c *Catalog) DeleteRental(ctx context.Context, id uint64) error {
	old, _ := c.Rental(id)
	if err := c.rentals.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete rental %d: %w", id, err)
	}
	old.ID = id
	c.afterWrite(ctx, queue.RentalDeleted, old)
	return nil
}

// afterWrite reloads the snapshot and publishes the event in the
// background.  A failed reload leaves the old snapshot until the next
// scheduled refresh.
func (c *Catalog) afterWrite(ctx context.Context, typ string, r model.Rental) {
	ev := c.event(typ, r)
	if err := c.Refresh(ctx); err != nil {
		log.Printf("catalog: refresh after %s failed: %v", typ, err)
	}
	if c.pub == nil {
		return
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		pctx, cancel := context.WithTimeout(context.Background(), c.publishTimeout)
		defer cancel()
		if err := c.pub.Publish(pctx, ev); err != nil {
			log.Printf("catalog: publish %s for rental %d failed: %v", typ, r.ID, err)
		}
	}()
}

// event resolves names from the current snapshot.
func (c *Catalog) event(typ string, r model.Rental) queue.RentalEvent {
	ev := queue.RentalEvent{
		Type:       typ,
		RentalID:   r.ID,
		UserID:     r.UserID,
		MovieID:    r.MovieID,
		DueDate:    r.DueDate,
		OccurredAt: c.now().UTC().Format(time.RFC3339),
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, u := range c.snap.Users {
		if u.ID == r.UserID {
			ev.UserName = u.Name
			break
		}
	}
	for _, m := range c.snap.Movies {
		if m.ID == r.MovieID {
			ev.MovieTitle = m.Title
			break
		}
	}
	return ev
}

// Wait blocks until background publishes have finished.
func (c *Catalog) Wait() {
	c.inflight.Wait()
}

// Schedule reloads the snapshot on the given cron spec (for example
// "@every 30s") and returns the started scheduler.  Stop it on shutdown.
func (c *Catalog) Schedule(spec string, timeout time.Duration) (*cron.Cron, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sched := cron.New()
	_, err := sched.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := c.Refresh(ctx); err != nil {
			log.Printf("catalog: scheduled refresh failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule refresh %q: %w", spec, err)
	}
	sched.Start()
	return sched, nil
}
