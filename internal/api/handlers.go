package api

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"

	"galerie/internal/filestore"
	"galerie/internal/models"
	"galerie/internal/stubs"

	"github.com/rs/zerolog"
)

const ContentTypeMsgpack = "application/msgpack"

// AllowedImageTypes lists the media types accepted for upload.
var AllowedImageTypes = []string{
	"image/gif",
	"image/jpeg",
	"image/png",
}

type API struct {
	store filestore.ImageStore
	log   zerolog.Logger
}

func New(store filestore.ImageStore, logger zerolog.Logger) *API {
	return &API{store: store, log: logger}
}

// RequireImageType rejects requests whose Content-Type is not an allowed image type
// before the body is read.
func RequireImageType(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !slices.Contains(AllowedImageTypes, filestore.MediaType(r.Header.Get("Content-Type"))) {
			http.Error(w, "Image type not allowed. Must be PNG, JPEG, or GIF", http.StatusBadRequest)
			return
		}
		next(w, r)
	}
}

func (a *API) ListImagesHandler(w http.ResponseWriter, r *http.Request) {
	doc := stubs.Images
	data, err := doc.MarshalBinary()
	if err != nil {
		a.log.Error().Err(err).Msg("failed to encode image list")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ContentTypeMsgpack)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		a.log.Debug().Err(err).Msg("failed to write image list")
	}
}

func (a *API) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	name, err := a.store.Save(r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnsupportedType):
			http.Error(w, "Image type not allowed. Must be PNG, JPEG, or GIF", http.StatusBadRequest)
		case errors.Is(err, models.ErrTooLarge):
			http.Error(w, "Image too large", http.StatusRequestEntityTooLarge)
		default:
			a.log.Error().Err(err).Msg("failed to save image")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	a.log.Info().Str("name", name).Msg("image stored")
	w.Header().Set("Location", "/images/"+name)
	w.WriteHeader(http.StatusCreated)
}

func (a *API) GetImageHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	rc, size, err := a.store.Open(name)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		a.log.Error().Err(err).Str("name", name).Msg("failed to open image")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", filestore.ContentTypeFor(name))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		a.log.Debug().Err(err).Str("name", name).Msg("failed to stream image")
	}
}
