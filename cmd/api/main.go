package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rentroll.org/internal/backup"
	"rentroll.org/internal/httpapi"
	"rentroll.org/internal/obs"
	"rentroll.org/internal/store"
	"rentroll.org/internal/store/pg"
	"rentroll.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		st    store.Store
		probe httpapi.ReadyProbe
	)
	if dsn := os.Getenv("RENTROLL_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		st = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		// Single-device mode: everything in memory, persisted via backups.
		st = store.NewMemory()
	}

	var backups *backup.Manager
	if snap, ok := st.(store.Snapshotter); ok {
		dir := os.Getenv("RENTROLL_BACKUP_DIR")
		if dir == "" {
			dir = "backups"
		}
		backups = backup.NewManager(dir, snap)
	}

	api := httpapi.New(httpapi.Config{
		Store:   st,
		Ready:   probe,
		Stream:  stream.New(),
		Backups: backups,
		Version: version,
	})

	limiter := httpapi.NewLimiter(50, 25)
	defer limiter.Stop()

	handler := httpapi.Logging(
		httpapi.SecurityHeaders(
			httpapi.CORS(
				httpapi.MaxBodyBytes(
					httpapi.RateLimit(api.Handler(), limiter),
					1<<20,
				),
			),
		),
	)

	addr := os.Getenv("RENTROLL_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// No WriteTimeout: /v1/stream holds its connection open.
		IdleTimeout: 60 * time.Second,
	}

	log.Printf("Starting rentroll-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
