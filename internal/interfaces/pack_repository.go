// internal/interfaces/pack_repository.go
package interfaces

import (
	"context"

	"packshop/internal/models"
)

// PackFilter narrows a pack listing. A zero filter lists everything.
type PackFilter struct {
	Category models.PackCategory
}

// PackRepository defines the catalog data operations
type PackRepository interface {
	Create(ctx context.Context, pack *models.Pack) error
	GetByID(ctx context.Context, id string) (*models.Pack, error)
	List(ctx context.Context, filter PackFilter) ([]*models.Pack, error)
	Update(ctx context.Context, id string, req *models.UpdatePackRequest) (*models.Pack, error)
	AppendImages(ctx context.Context, id string, urls []string, limit int) (*models.Pack, error)
	Delete(ctx context.Context, id string) error
}
