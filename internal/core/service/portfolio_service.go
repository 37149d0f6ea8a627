package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/internal/core/ports"
)

// PortfolioService implements publish, status and slug resolution.
type PortfolioService struct {
	repo     ports.PortfolioRepository
	names    ports.DisplayNameLookup
	recorder ports.PortfolioRecorder
	logger   zerolog.Logger
	random   func(n int) string
}

// NewPortfolioService returns the service. A nil recorder discards outcomes.
func NewPortfolioService(repo ports.PortfolioRepository, names ports.DisplayNameLookup, recorder ports.PortfolioRecorder, logger zerolog.Logger) *PortfolioService {
	if recorder == nil {
		recorder = discardRecorder{}
	}
	return &PortfolioService{repo: repo, names: names, recorder: recorder, logger: logger, random: randomHex}
}

type discardRecorder struct{}

func (discardRecorder) PublicationChanged(bool) {}
func (discardRecorder) SlugCollision()          {}

// Publish flips userID's publication state. The first publish allocates a
// slug from the tenant's display name; the slug is kept from then on,
// including while unpublished, so re-publishing restores the same URL.
func (s *PortfolioService) Publish(ctx context.Context, actor *domain.Identity, userID string, isPublished bool) (*domain.Portfolio, error) {
	userID, err := authorize(actor, userID)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var slug *string
	if current != nil {
		slug = current.PublicSlug
	}

	for attempt := 0; ; attempt++ {
		allocated := false
		if isPublished && slug == nil {
			candidate, err := s.allocateSlug(ctx, userID)
			if err != nil {
				return nil, err
			}
			slug, allocated = &candidate, true
		}

		saved, err := s.repo.Upsert(ctx, &domain.Portfolio{
			UserID:      userID,
			IsPublished: isPublished,
			PublicSlug:  slug,
		})
		// Another tenant took the candidate between the check and the write.
		if errors.Is(err, domain.ErrSlugTaken) && allocated && attempt < maxSlugAttempts {
			s.recorder.SlugCollision()
			slug = nil
			continue
		}
		if err != nil {
			return nil, err
		}

		s.recorder.PublicationChanged(saved.IsPublished)

		s.logger.Info().
			Str("user_id", userID).
			Str("actor_id", actor.UserID).
			Bool("is_published", saved.IsPublished).
			Str("slug", deref(saved.PublicSlug)).
			Msg("portfolio publication updated")
		return saved, nil
	}
}

// Status returns userID's publication state, creating an unpublished row the
// first time a tenant is queried. The slug of an unpublished portfolio is
// only ever shown to its owner or an admin.
func (s *PortfolioService) Status(ctx context.Context, actor *domain.Identity, userID string) (*domain.Portfolio, error) {
	userID, err := authorize(actor, userID)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.repo.Upsert(ctx, &domain.Portfolio{UserID: userID})
}

// ResolveSlug returns the tenant behind a published slug. Unknown and
// unpublished slugs are indistinguishable.
func (s *PortfolioService) ResolveSlug(ctx context.Context, slug string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return "", fmt.Errorf("%w: slug is required", domain.ErrInvalidInput)
	}

	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrSlugNotFound
		}
		return "", err
	}
	if !p.Visible() {
		return "", domain.ErrSlugNotFound
	}
	return p.UserID, nil
}

// allocateSlug derives a free slug from the tenant's display name. On
// collision it appends a short random suffix, and after maxSlugAttempts
// collisions it gives up on the name and returns an opaque random slug.
func (s *PortfolioService) allocateSlug(ctx context.Context, userID string) (string, error) {
	name, err := s.names.DisplayName(ctx, userID)
	if err != nil {
		return "", err
	}
	base := Slugify(name)
	if base == "" {
		base = defaultSlugBase
	}

	candidate := base
	for i := 0; i < maxSlugAttempts; i++ {
		taken, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		s.recorder.SlugCollision()
		candidate = base + "-" + s.random(slugSuffixBytes)
	}
	return s.random(slugFallbackBytes), nil
}

// authorize admits actor to userID's portfolio when it is the owner or an
// admin, and returns the trimmed userID.
func authorize(actor *domain.Identity, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: userId is required", domain.ErrInvalidInput)
	}
	if actor == nil {
		return "", domain.ErrMissingIdentity
	}
	if actor.UserID != userID && !actor.IsAdmin() {
		return "", domain.ErrForbidden
	}
	return userID, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
