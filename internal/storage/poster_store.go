package storage

import (
	"context"
	"errors"
	"io"

	"mitr-backend/internal/domain"
)

// PosterStore guarda las imagenes de portada de los cursos fuera de la base.
type PosterStore interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (domain.Poster, error)
	Delete(ctx context.Context, publicID string) error
}

var ErrStoreDisabled = errors.New("poster store disabled")

type disabledStore struct{}

// NewDisabledStore rechaza cualquier subida. Borrar no falla: no hay nada que borrar.
func NewDisabledStore() PosterStore {
	return disabledStore{}
}

func (disabledStore) Upload(context.Context, string, string, io.Reader) (domain.Poster, error) {
	return domain.Poster{}, ErrStoreDisabled
}

func (disabledStore) Delete(context.Context, string) error {
	return nil
}
