package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/internal/core/ports"
)

// SectionService serves every portfolio section through one repository,
// enforcing tenant scoping on reads and ownership on writes.
type SectionService struct {
	repo   ports.SectionRepository
	logger zerolog.Logger
}

func NewSectionService(repo ports.SectionRepository, logger zerolog.Logger) *SectionService {
	return &SectionService{repo: repo, logger: logger}
}

// List returns the tenant's records. A caller reading their own empty section
// sees the seed records instead.
func (s *SectionService) List(ctx context.Context, section domain.Section, id *domain.Identity, explicitTenant string) ([]*domain.Record, error) {
	if !section.Valid() {
		return nil, domain.ErrUnknownSection
	}

	tenant := ResolveTenant(id, explicitTenant)
	records, err := s.repo.List(ctx, section, tenant.OwnerID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 && tenant.Own {
		return s.repo.List(ctx, section, nil)
	}
	return records, nil
}

// Get returns one record visible to the tenant. Seed records are public and
// visible to every tenant.
func (s *SectionService) Get(ctx context.Context, section domain.Section, id *domain.Identity, explicitTenant, recordID string) (*domain.Record, error) {
	if !section.Valid() {
		return nil, domain.ErrUnknownSection
	}

	tenant := ResolveTenant(id, explicitTenant)
	owners := []*string{nil}
	if !tenant.IsSeed() {
		owners = append(owners, tenant.OwnerID)
	}
	return s.repo.FindByID(ctx, section, recordID, owners...)
}

func (s *SectionService) Create(ctx context.Context, section domain.Section, id *domain.Identity, fields map[string]any) (*domain.Record, error) {
	if !section.Valid() {
		return nil, domain.ErrUnknownSection
	}
	owner, err := writeOwner(id)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.Create(ctx, &domain.Record{
		Section: section,
		OwnerID: &owner,
		Fields:  domain.SanitizeFields(fields),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("section", string(section)).
		Str("user_id", owner).
		Str("record_id", rec.ID).
		Msg("record created")
	return rec, nil
}

// Update applies fields to a record the caller owns. A record owned by anyone
// else, seed content included, is reported as not found.
func (s *SectionService) Update(ctx context.Context, section domain.Section, id *domain.Identity, recordID string, fields map[string]any) (*domain.Record, error) {
	if !section.Valid() {
		return nil, domain.ErrUnknownSection
	}
	owner, err := writeOwner(id)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByID(ctx, section, recordID, &owner); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, section, recordID, owner, domain.SanitizeFields(fields))
}

func (s *SectionService) Delete(ctx context.Context, section domain.Section, id *domain.Identity, recordID string) error {
	if !section.Valid() {
		return domain.ErrUnknownSection
	}
	owner, err := writeOwner(id)
	if err != nil {
		return err
	}

	if _, err := s.repo.FindByID(ctx, section, recordID, &owner); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, section, recordID, owner); err != nil {
		return err
	}

	s.logger.Info().
		Str("section", string(section)).
		Str("user_id", owner).
		Str("record_id", recordID).
		Msg("record deleted")
	return nil
}

// Bulk writes a whole section for the caller. Singleton sections update the
// caller's record in place, or create it (created is then true); list
// sections replace every caller record with items.
func (s *SectionService) Bulk(ctx context.Context, section domain.Section, id *domain.Identity, items []map[string]any) ([]*domain.Record, bool, error) {
	if !section.Valid() {
		return nil, false, domain.ErrUnknownSection
	}
	owner, err := writeOwner(id)
	if err != nil {
		return nil, false, err
	}

	if section.Singleton() {
		return s.upsertSingleton(ctx, section, owner, items)
	}

	clean := make([]map[string]any, 0, len(items))
	for _, it := range items {
		clean = append(clean, domain.SanitizeFields(it))
	}
	records, err := s.repo.Replace(ctx, section, owner, clean)
	if err != nil {
		return nil, false, err
	}

	s.logger.Info().
		Str("section", string(section)).
		Str("user_id", owner).
		Int("count", len(records)).
		Msg("section replaced")
	return records, false, nil
}

func (s *SectionService) upsertSingleton(ctx context.Context, section domain.Section, owner string, items []map[string]any) ([]*domain.Record, bool, error) {
	if len(items) == 0 || items[0] == nil {
		return nil, false, fmt.Errorf("%w: invalid body", domain.ErrInvalidInput)
	}
	fields := domain.SanitizeFields(items[0])

	existing, err := s.repo.List(ctx, section, &owner)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		rec, err := s.repo.Update(ctx, section, existing[0].ID, owner, fields)
		if err != nil {
			return nil, false, err
		}
		return []*domain.Record{rec}, false, nil
	}

	rec, err := s.repo.Create(ctx, &domain.Record{Section: section, OwnerID: &owner, Fields: fields})
	if err != nil {
		return nil, false, err
	}
	return []*domain.Record{rec}, true, nil
}
