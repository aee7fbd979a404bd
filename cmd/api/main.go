package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/location"
	locationrepo "github.com/ovaphlow/pitchfork/service-ohsnap/internal/location/repo"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/router"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/session"
	sessionrepo "github.com/ovaphlow/pitchfork/service-ohsnap/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/shot"
	shotrepo "github.com/ovaphlow/pitchfork/service-ohsnap/internal/shot/repo"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-ohsnap/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/database"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/utilities"
)

type schema interface {
	EnsureTable(ctx context.Context) error
}

// listenAddr prefers HTTP_ADDR, then PORT on all interfaces.
func listenAddr() string {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		return v
	}
	if p := os.Getenv("PORT"); p != "" {
		return "0.0.0.0:" + p
	}
	return "0.0.0.0:3000"
}

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting ohsnap api")

	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	users := userrepo.NewUserRepo(db)
	locations := locationrepo.NewLocationRepo(db)
	shots := shotrepo.NewShotRepo(db)
	sessions := sessionrepo.NewSessionRepo(db)

	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	for name, s := range map[string]schema{"users": users, "locations": locations, "shots": shots, "sessions": sessions} {
		if err := s.EnsureTable(initCtx); err != nil {
			cancelInit()
			sugar.Fatalf("ensure %s table: %v", name, err)
		}
	}
	cancelInit()

	sessCfg := session.ConfigFromEnv()
	if sessCfg.UsesDefaultSecret() {
		if os.Getenv("APP_ENV") == "production" {
			sugar.Fatal("SESSION_SECRET must be set in production")
		}
		sugar.Warn("SESSION_SECRET not set; using the development default")
	}
	var store session.Store = sessions
	if os.Getenv("SESSION_STORE") == "memory" {
		sugar.Warn("sessions kept in memory; they will not survive a restart")
		store = session.NewMemoryStore()
	}
	manager := session.NewManager(store, sessCfg, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager.StartCleanup(ctx, time.Hour)

	handler := router.RegisterRoutes(sugar, router.Services{
		Users:     user.NewUserService(users, user.HasherFromEnv(), sugar),
		Sessions:  manager,
		Locations: location.NewService(locations),
		Shots:     shot.NewService(shots),
	}, router.ConfigFromEnv())

	srv := &http.Server{
		Addr:              listenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for in-flight requests
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
