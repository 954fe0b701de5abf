// Package documents persists scanned-document metadata. File bodies live in
// object storage; only the storage key is recorded here.
package documents

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)

	// GetByID returns the document or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// List returns all documents, newest first.
	List(ctx context.Context) ([]models.Document, error)

	Count(ctx context.Context) (int64, error)
}
