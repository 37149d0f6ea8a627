package ports

import (
	"context"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

// SectionRepository persists tenant-scoped section records. A nil owner
// selects seed content in every filter.
type SectionRepository interface {
	List(ctx context.Context, section domain.Section, owner *string) ([]*domain.Record, error)
	// FindByID returns the record only when it belongs to one of owners.
	FindByID(ctx context.Context, section domain.Section, id string, owners ...*string) (*domain.Record, error)
	Create(ctx context.Context, record *domain.Record) (*domain.Record, error)
	// Update applies fields to the record matching both id and owner. The
	// owner itself is never modified.
	Update(ctx context.Context, section domain.Section, id string, owner string, fields map[string]any) (*domain.Record, error)
	Delete(ctx context.Context, section domain.Section, id string, owner string) error
	// Replace removes every record of owner in section and inserts items.
	Replace(ctx context.Context, section domain.Section, owner string, items []map[string]any) ([]*domain.Record, error)
}
