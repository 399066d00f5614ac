package main

import (
	"context"
	"errors"
	"flag"
	oshttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"galerie/internal/commands"
	"galerie/internal/config"
	"galerie/internal/filestore"
	"galerie/internal/http"
	"galerie/internal/logging"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	store, err := filestore.NewLocalImageStore(cfg.StoragePath, filestore.WithMaxBytes(cfg.MaxUploadBytes))
	if err != nil {
		return err
	}
	logger.Info().Str("path", cfg.StoragePath).Msg("image storage ready")

	apiServer := http.NewAPIServer(store, logger, cfg.APIAddr)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := apiServer.Start()
		if err != nil && err != oshttp.ErrServerClosed {
			return err
		}
		return nil
	})

	// Wait for context cancellation (signal)
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
		return nil
	})

	return g.Wait()
}

func upload(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return commands.Upload(path, cfg, os.Stdout)
}

func main() {
	uploadPath := flag.String("upload", "", "Image file to upload to a running server (prints the image URL)")
	flag.Parse()

	if *uploadPath != "" {
		if err := upload(*uploadPath); err != nil {
			log.Fatal().Err(err).Msg("upload failed")
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("application error")
	}
}
