package ports

import (
	"context"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

// SectionService applies the ownership contract on top of SectionRepository.
// id is the forwarded caller identity and may be nil for anonymous reads.
type SectionService interface {
	List(ctx context.Context, section domain.Section, id *domain.Identity, explicitTenant string) ([]*domain.Record, error)
	Get(ctx context.Context, section domain.Section, id *domain.Identity, explicitTenant, recordID string) (*domain.Record, error)
	Create(ctx context.Context, section domain.Section, id *domain.Identity, fields map[string]any) (*domain.Record, error)
	Update(ctx context.Context, section domain.Section, id *domain.Identity, recordID string, fields map[string]any) (*domain.Record, error)
	Delete(ctx context.Context, section domain.Section, id *domain.Identity, recordID string) error
	// Bulk upserts singleton sections and replaces list sections.
	Bulk(ctx context.Context, section domain.Section, id *domain.Identity, items []map[string]any) ([]*domain.Record, bool, error)
}
