package ports

import (
	"context"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

// PortfolioService manages publication state and public slugs.
type PortfolioService interface {
	// Publish sets userID's publication state on behalf of actor, who must be
	// that user or an admin.
	Publish(ctx context.Context, actor *domain.Identity, userID string, isPublished bool) (*domain.Portfolio, error)
	// Status reports userID's publication state, slug included, to the same
	// callers Publish accepts.
	Status(ctx context.Context, actor *domain.Identity, userID string) (*domain.Portfolio, error)
	// ResolveSlug returns the owner of a published slug.
	ResolveSlug(ctx context.Context, slug string) (string, error)
}

// PortfolioRecorder receives publication outcomes for monitoring.
type PortfolioRecorder interface {
	PublicationChanged(published bool)
	SlugCollision()
}
