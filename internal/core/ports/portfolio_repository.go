package ports

import (
	"context"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

// PortfolioRepository persists publication state.
type PortfolioRepository interface {
	FindByUserID(ctx context.Context, userID string) (*domain.Portfolio, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Portfolio, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Upsert(ctx context.Context, p *domain.Portfolio) (*domain.Portfolio, error)
}

// DisplayNameLookup returns the name a tenant shows on their intro section,
// or "" when none is set.
type DisplayNameLookup interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}
