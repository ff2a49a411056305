package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formaos.io/internal/audit"
	"formaos.io/internal/authz"
	"formaos.io/internal/httpapi"
	"formaos.io/internal/obs"
	"formaos.io/internal/ratelimit"
	"formaos.io/internal/store/pg"
	"formaos.io/internal/stream"
	"formaos.io/internal/tenant"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("FORMAOS_COMMIT"))

	// Postgres when a DSN is configured, in-memory otherwise. The
	// in-memory mode keeps local development and demos self-contained.
	var (
		store    tenant.Store
		sink     audit.Sink
		auditLog audit.Reader
		probe    httpapi.ReadyProbe
		closeDB  func() error
	)
	if dsn := os.Getenv("FORMAOS_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		pgSink := pg.NewAuditSink(pgStore.DB())
		store = pgStore
		sink = pgSink
		auditLog = pgSink
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
		closeDB = pgStore.Close
	} else {
		log.Println("FORMAOS_PG_DSN not set, using in-memory store")
		memSink := audit.NewMemorySink()
		store = tenant.NewInMemory()
		sink = memSink
		auditLog = memSink
	}

	guard, err := authz.NewGuard(store.Memberships())
	if err != nil {
		log.Fatalf("guard: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Guard:      guard,
		Store:      store,
		Recorder:   audit.NewRecorder(sink, nil),
		AuditLog:   auditLog,
		Limiter:    ratelimit.New(),
		Stream:     stream.New(),
		ReadyProbe: probe,
		Version:    version,
	})

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting formaos-api %s on %s", version, srv.Addr)

	// graceful shutdown
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
	if closeDB != nil {
		_ = closeDB()
	}
	log.Println("Stopped")
}
