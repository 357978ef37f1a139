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

	"bitwise74/auth-api/app"
	"bitwise74/auth-api/config"
	"bitwise74/auth-api/db"
	"bitwise74/auth-api/internal"
	"bitwise74/auth-api/internal/notify"
	"bitwise74/auth-api/internal/service"
	"bitwise74/auth-api/internal/store"
	"bitwise74/auth-api/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrMissingSecret) {
			fmt.Printf("No JWT secret provided. Set JWT_SECRET or jwt.secret in config.toml, for example:\n\n%s\n", config.GenSecret())
			os.Exit(1)
		}

		panic(err)
	}

	makeLogger(cfg.App.LogLevel)
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accounts, closeStore, err := openStore(ctx, &cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to open account store", zap.Error(err))
	}
	defer closeStore()

	notifier, err := notify.New(&cfg.Mail)
	if err != nil {
		zap.L().Fatal("Failed to set up mail delivery", zap.Error(err))
	}

	issuer := security.NewJWTIssuer(cfg.JWT.Secret, cfg.JWT.TTL)

	svc, err := service.NewAuthService(&service.AuthServiceOpts{
		Store:       accounts,
		Hasher:      security.New(),
		ResetTokens: security.NewResetTokens(),
		Tokens:      issuer,
		Notifier:    notifier,
		ResetExpiry: cfg.Reset.Expiry,
		FrontendURL: cfg.Reset.FrontendURL,
	})
	if err != nil {
		zap.L().Fatal("Failed to create auth service", zap.Error(err))
	}

	go service.TokenCleanup(ctx, cfg.Reset.CleanupInterval, accounts)

	router, closeRouter := app.NewRouter(&internal.Deps{Config: cfg, Auth: svc}, issuer)
	defer closeRouter()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Host.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server stopped", zap.Error(err))
		}
	}()

	zap.L().Info("Server starting",
		zap.Int("port", cfg.Host.Port),
		zap.String("database", cfg.Database.Driver),
		zap.String("mail", cfg.Mail.Transport),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Failed to shut down cleanly", zap.Error(err))
	}

	zap.L().Info("Server stopped")
}

// openStore connects to the configured database. The returned function
// closes the connection.
func openStore(ctx context.Context, cfg *config.Database) (store.AccountStore, func(), error) {
	if cfg.Driver == "mongo" {
		mdb, err := db.NewMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}

		s, err := store.NewMongoStore(ctx, mdb)
		if err != nil {
			mdb.Client().Disconnect(context.Background())
			return nil, nil, err
		}

		return s, func() { mdb.Client().Disconnect(context.Background()) }, nil
	}

	gdb, err := db.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	return store.NewGormStore(gdb), func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}, nil
}
