package http

import (
	"context"
	"net/http"
	"sync"

	"galerie/internal/api"
	"galerie/internal/filestore"

	"github.com/rs/zerolog"
)

type APIServer struct {
	server *http.Server
	log    zerolog.Logger
	wg     sync.WaitGroup
}

func NewAPIServer(store filestore.ImageStore, logger zerolog.Logger, addr string) *APIServer {
	apiHandlers := api.New(store, logger)

	mux := http.NewServeMux()

	// Image collection
	mux.HandleFunc("GET /images", apiHandlers.ListImagesHandler)
	mux.HandleFunc("POST /images", api.RequireImageType(apiHandlers.UploadImageHandler))

	// Single image
	mux.HandleFunc("GET /images/{name}", apiHandlers.GetImageHandler)

	if addr == "" {
		addr = ":8080"
	}

	return &APIServer{
		server: &http.Server{
			Addr:    addr,
			Handler: LogRequests(logger, Recover(logger, mux)),
		},
		log: logger,
	}
}

func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *APIServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("server started")
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
