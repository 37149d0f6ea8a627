package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

// stubSectionRepo is an in-memory SectionRepository keyed by section.
type stubSectionRepo struct {
	records map[domain.Section][]*domain.Record
	seq     int
}

func newStubSectionRepo() *stubSectionRepo {
	return &stubSectionRepo{records: make(map[domain.Section][]*domain.Record)}
}

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneRecord(r *domain.Record) *domain.Record {
	c := *r
	c.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return &c
}

func (r *stubSectionRepo) seed(section domain.Section, owner *string, fields map[string]any) *domain.Record {
	r.seq++
	rec := &domain.Record{ID: fmt.Sprintf("rec-%d", r.seq), Section: section, OwnerID: owner, Fields: fields}
	r.records[section] = append(r.records[section], rec)
	return cloneRecord(rec)
}

func (r *stubSectionRepo) List(_ context.Context, section domain.Section, owner *string) ([]*domain.Record, error) {
	out := []*domain.Record{}
	for _, rec := range r.records[section] {
		if sameOwner(rec.OwnerID, owner) {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

func (r *stubSectionRepo) FindByID(_ context.Context, section domain.Section, id string, owners ...*string) (*domain.Record, error) {
	for _, rec := range r.records[section] {
		if rec.ID != id {
			continue
		}
		if len(owners) == 0 {
			return cloneRecord(rec), nil
		}
		for _, o := range owners {
			if sameOwner(rec.OwnerID, o) {
				return cloneRecord(rec), nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubSectionRepo) Create(_ context.Context, record *domain.Record) (*domain.Record, error) {
	return r.seed(record.Section, record.OwnerID, record.Fields), nil
}

func (r *stubSectionRepo) Update(_ context.Context, section domain.Section, id, owner string, fields map[string]any) (*domain.Record, error) {
	for _, rec := range r.records[section] {
		if rec.ID == id && sameOwner(rec.OwnerID, &owner) {
			for k, v := range fields {
				rec.Fields[k] = v
			}
			return cloneRecord(rec), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubSectionRepo) Delete(_ context.Context, section domain.Section, id, owner string) error {
	recs := r.records[section]
	for i, rec := range recs {
		if rec.ID == id && sameOwner(rec.OwnerID, &owner) {
			r.records[section] = append(recs[:i], recs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *stubSectionRepo) Replace(_ context.Context, section domain.Section, owner string, items []map[string]any) ([]*domain.Record, error) {
	kept := []*domain.Record{}
	for _, rec := range r.records[section] {
		if !sameOwner(rec.OwnerID, &owner) {
			kept = append(kept, rec)
		}
	}
	r.records[section] = kept

	out := make([]*domain.Record, 0, len(items))
	for _, it := range items {
		o := owner
		out = append(out, r.seed(section, &o, it))
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func user(id string) *domain.Identity {
	return &domain.Identity{UserID: id, Email: id + "@example.com", Role: domain.RoleUser}
}

func newTestSectionService() (*SectionService, *stubSectionRepo) {
	repo := newStubSectionRepo()
	return NewSectionService(repo, zerolog.Nop()), repo
}

func TestResolveTenant(t *testing.T) {
	anon := ResolveTenant(nil, "")
	if !anon.IsSeed() || anon.Own {
		t.Fatalf("anonymous request must read the seed tenant, got %+v", anon)
	}

	own := ResolveTenant(user("a"), "")
	if own.OwnerID == nil || *own.OwnerID != "a" || !own.Own {
		t.Fatalf("caller must read own tenant, got %+v", own)
	}

	explicit := ResolveTenant(user("a"), "b")
	if explicit.OwnerID == nil || *explicit.OwnerID != "b" || explicit.Own {
		t.Fatalf("explicit tenant must win, got %+v", explicit)
	}

	visitor := ResolveTenant(nil, "b")
	if visitor.OwnerID == nil || *visitor.OwnerID != "b" {
		t.Fatalf("anonymous visitor must read explicit tenant, got %+v", visitor)
	}
}

func TestSectionService_List_SeedFallbackThenOwn(t *testing.T) {
	svc, repo := newTestSectionService()
	ctx := context.Background()
	repo.seed(domain.SectionAbout, nil, map[string]any{"text": "seed"})

	anon, err := svc.List(ctx, domain.SectionAbout, nil, "")
	if err != nil || len(anon) != 1 || anon[0].OwnerID != nil {
		t.Fatalf("anonymous read must return seed record, got %v %v", anon, err)
	}

	fresh, err := svc.List(ctx, domain.SectionAbout, user("42"), "")
	if err != nil || len(fresh) != 1 || fresh[0].Fields["text"] != "seed" {
		t.Fatalf("new account must fall back to seed content, got %v %v", fresh, err)
	}

	if _, err := svc.Create(ctx, domain.SectionAbout, user("42"), map[string]any{"text": "mine"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	own, err := svc.List(ctx, domain.SectionAbout, user("42"), "")
	if err != nil || len(own) != 1 || own[0].Fields["text"] != "mine" {
		t.Fatalf("expected own record after create, got %v %v", own, err)
	}
}

func TestSectionService_List_NoFallbackForExplicitTenant(t *testing.T) {
	svc, repo := newTestSectionService()
	repo.seed(domain.SectionSkills, nil, map[string]any{"name": "seed"})

	got, err := svc.List(context.Background(), domain.SectionSkills, nil, "someone")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("viewing another tenant must not fall back to seed, got %d records", len(got))
	}
}

func TestSectionService_Writes_RequireIdentity(t *testing.T) {
	svc, repo := newTestSectionService()
	ctx := context.Background()
	rec := repo.seed(domain.SectionProjects, strPtr("a"), map[string]any{})

	if _, err := svc.Create(ctx, domain.SectionProjects, nil, map[string]any{}); !errors.Is(err, domain.ErrMissingIdentity) {
		t.Fatalf("Create: expected ErrMissingIdentity, got %v", err)
	}
	if _, err := svc.Update(ctx, domain.SectionProjects, nil, rec.ID, map[string]any{}); !errors.Is(err, domain.ErrMissingIdentity) {
		t.Fatalf("Update: expected ErrMissingIdentity, got %v", err)
	}
	if err := svc.Delete(ctx, domain.SectionProjects, nil, rec.ID); !errors.Is(err, domain.ErrMissingIdentity) {
		t.Fatalf("Delete: expected ErrMissingIdentity, got %v", err)
	}
	if _, _, err := svc.Bulk(ctx, domain.SectionProjects, nil, nil); !errors.Is(err, domain.ErrMissingIdentity) {
		t.Fatalf("Bulk: expected ErrMissingIdentity, got %v", err)
	}
}

func TestSectionService_CrossTenantMutationIsNotFound(t *testing.T) {
	svc, repo := newTestSectionService()
	ctx := context.Background()
	owned := repo.seed(domain.SectionExperience, strPtr("B"), map[string]any{"title": "b's job"})
	seed := repo.seed(domain.SectionExperience, nil, map[string]any{"title": "seed job"})

	for _, id := range []string{owned.ID, seed.ID} {
		if _, err := svc.Update(ctx, domain.SectionExperience, user("A"), id, map[string]any{"title": "hijack"}); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Update of %s: expected ErrNotFound, got %v", id, err)
		}
		if err := svc.Delete(ctx, domain.SectionExperience, user("A"), id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Delete of %s: expected ErrNotFound, got %v", id, err)
		}
	}

	still, _ := repo.FindByID(ctx, domain.SectionExperience, owned.ID)
	if still.Fields["title"] != "b's job" {
		t.Fatalf("record of another tenant was modified: %v", still.Fields)
	}
}

func TestSectionService_UpdateNeverReassignsOwner(t *testing.T) {
	svc, repo := newTestSectionService()
	ctx := context.Background()
	rec := repo.seed(domain.SectionContact, strPtr("A"), map[string]any{"email": "a@x"})

	got, err := svc.Update(ctx, domain.SectionContact, user("A"), rec.ID, map[string]any{
		"email":  "new@x",
		"userId": "B",
		"_id":    "other",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.OwnerID == nil || *got.OwnerID != "A" {
		t.Fatalf("owner changed to %v", got.OwnerID)
	}
	if _, ok := got.Fields["userId"]; ok {
		t.Fatalf("reserved field leaked into payload")
	}
	if got.Fields["email"] != "new@x" {
		t.Fatalf("expected email updated, got %v", got.Fields["email"])
	}
}

func TestSectionService_CreateIgnoresExplicitOwnerInBody(t *testing.T) {
	svc, _ := newTestSectionService()

	rec, err := svc.Create(context.Background(), domain.SectionCertificates, user("A"), map[string]any{"userId": "B", "name": "cert"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if *rec.OwnerID != "A" {
		t.Fatalf("record must belong to caller, got %s", *rec.OwnerID)
	}
}

func TestSectionService_Get_ScopedToTenantAndSeed(t *testing.T) {
	svc, repo := newTestSectionService()
	ctx := context.Background()
	mine := repo.seed(domain.SectionEducation, strPtr("A"), map[string]any{})
	theirs := repo.seed(domain.SectionEducation, strPtr("B"), map[string]any{})
	seed := repo.seed(domain.SectionEducation, nil, map[string]any{})

	if _, err := svc.Get(ctx, domain.SectionEducation, user("A"), "", mine.ID); err != nil {
		t.Fatalf("own record: %v", err)
	}
	if _, err := svc.Get(ctx, domain.SectionEducation, user("A"), "", seed.ID); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if _, err := svc.Get(ctx, domain.SectionEducation, user("A"), "", theirs.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("other tenant's record: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, domain.SectionEducation, nil, "B", theirs.ID); err != nil {
		t.Fatalf("explicit tenant record: %v", err)
	}
}

func TestSectionService_Bulk_SingletonUpsert(t *testing.T) {
	svc, _ := newTestSectionService()
	ctx := context.Background()

	recs, created, err := svc.Bulk(ctx, domain.SectionIntro, user("A"), []map[string]any{{"name": "Ada"}})
	if err != nil || !created || len(recs) != 1 {
		t.Fatalf("first bulk must create, got %v %v %v", recs, created, err)
	}

	recs, created, err = svc.Bulk(ctx, domain.SectionIntro, user("A"), []map[string]any{{"name": "Ada L."}})
	if err != nil || created {
		t.Fatalf("second bulk must update, got created=%v err=%v", created, err)
	}
	if recs[0].Fields["name"] != "Ada L." {
		t.Fatalf("expected name updated, got %v", recs[0].Fields["name"])
	}

	all, _ := svc.List(ctx, domain.SectionIntro, user("A"), "")
	if len(all) != 1 {
		t.Fatalf("singleton section must hold one record, got %d", len(all))
	}

	if _, _, err := svc.Bulk(ctx, domain.SectionIntro, user("A"), nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty body, got %v", err)
	}
}

func TestSectionService_Bulk_ListReplace(t *testing.T) {
	svc, repo := newTestSectionService()
	ctx := context.Background()
	repo.seed(domain.SectionSkills, strPtr("A"), map[string]any{"name": "old"})
	repo.seed(domain.SectionSkills, strPtr("B"), map[string]any{"name": "b's"})

	recs, created, err := svc.Bulk(ctx, domain.SectionSkills, user("A"), []map[string]any{
		{"name": "go", "id": "ignored"},
		{"name": "sql"},
	})
	if err != nil || created || len(recs) != 2 {
		t.Fatalf("unexpected replace result: %v %v %v", recs, created, err)
	}

	mine, _ := repo.List(ctx, domain.SectionSkills, strPtr("A"))
	if len(mine) != 2 || mine[0].Fields["name"] != "go" {
		t.Fatalf("expected caller records replaced, got %v", mine)
	}
	theirs, _ := repo.List(ctx, domain.SectionSkills, strPtr("B"))
	if len(theirs) != 1 {
		t.Fatalf("other tenant records must survive, got %d", len(theirs))
	}
}

func TestSectionService_UnknownSection(t *testing.T) {
	svc, _ := newTestSectionService()
	if _, err := svc.List(context.Background(), "hobbies", nil, ""); !errors.Is(err, domain.ErrUnknownSection) {
		t.Fatalf("expected ErrUnknownSection, got %v", err)
	}
}
