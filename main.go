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

	"bitwise74/recipe-api/app"
	"bitwise74/recipe-api/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var mailWorker = pflag.Bool("mail-worker", false, "Only run the worker delivering queued verification mails")

func main() {
	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Setup()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *mailWorker {
		if err := app.RunMailWorker(ctx, cfg); err != nil {
			panic(err)
		}
		return
	}

	router, cleanup, err := app.NewRouter(ctx, cfg)
	if err != nil {
		panic(err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Host.Port),
		Handler: router,
	}

	// Closed once Shutdown returned. Requests still in flight use the mail
	// queue, so cleanup waits for it.
	shutdownDone := make(chan struct{})

	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("Failed to shutdown server", zap.Error(err))
		}
	}()

	zap.L().Info("Server starting", zap.Int("port", cfg.Host.Port))

	if cfg.Host.SSL.Enabled {
		err = srv.ListenAndServeTLS(cfg.Host.SSL.CertificatePath, cfg.Host.SSL.CertificateKeyPath)
	} else {
		err = srv.ListenAndServe()
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-shutdownDone
		cleanup()
		zap.L().Fatal("Server stopped", zap.Error(err))
	}

	<-shutdownDone
	cleanup()
	zap.L().Info("Server stopped")
}
