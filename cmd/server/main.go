package main // Entry point package

import (
	"context"   // Startup and shutdown deadlines
	"errors"    // Distinguish a clean server close
	"log"       // Logging library
	"net/http"  // http.ErrServerClosed
	"os"        // Signal types
	"os/signal" // Wait for Ctrl-C / SIGTERM
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/movie-rentals/internal/catalog"    // Snapshot of users, movies and rentals
	"github.com/iliyamo/movie-rentals/internal/config"     // Internal config loader
	"github.com/iliyamo/movie-rentals/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/movie-rentals/internal/handler"    // HTTP handlers
	"github.com/iliyamo/movie-rentals/internal/projection" // Grouped view builder
	"github.com/iliyamo/movie-rentals/internal/queue"      // Activity log consumer
	"github.com/iliyamo/movie-rentals/internal/repository" // Data access
	"github.com/iliyamo/movie-rentals/internal/router"     // Internal router setup
	queue_publisher "github.com/iliyamo/movie-rentals/internal/service"
	"github.com/iliyamo/movie-rentals/internal/session" // Form session state
)

func main() {
	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if cfg.Migrate { // Create tables on first run
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.Fatalf("database: %v", err)
		}
	}

	// Catalog reports "loading" until the first refresh lands
	cat := catalog.New(
		repository.NewUserRepo(db),
		repository.NewMovieRepo(db),
		repository.NewRentalRepo(db),
		queue_publisher.New(cfg.AMQPURL),
	)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := cat.Refresh(ctx); err != nil {
			log.Printf("catalog: initial load failed: %v (scheduled refresh will retry)", err)
		}
	}()
	sched, err := cat.Schedule(cfg.RefreshSpec, 10*time.Second)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	// Redis is optional: without it sessions stay in process and the
	// cache and rate limiter are skipped
	sessCfg := config.LoadSessionConfig()
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	var sessions session.Store
	if rdb != nil {
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, sessCfg.Prefix, sessCfg.TTL)
	} else {
		log.Printf("redis unavailable; using in-memory sessions")
		sessions = session.NewMemoryStore(sessCfg.TTL)
	}

	go queue.StartActivityConsumer(cfg.AMQPURL, cfg.LogDir) // Append rental events to the activity log

	h := handler.NewRentalHandler(cat, sessions, projection.NewProjector(cfg.Locale), session.NewSchema(nil))

	e := echo.New()                             // Create Echo instance
	e.HideBanner = true                         // Keep startup output to our own log line
	e.Validator = handler.NewRequestValidator() // Validate bound request bodies
	router.Use(e)
	router.RegisterRoutes(e, h) // Register application routes
	router.RegisterReference(e, h, config.LoadCacheConfig(), rdb)
	router.RegisterRentals(e, h, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) { // Start HTTP server
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	<-sched.Stop().Done() // Let a running refresh finish
	cat.Wait()            // Flush pending event publishes
}
