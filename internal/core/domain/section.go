package domain

import "time"

// Section names a portfolio section served by the sections service.
type Section string

const (
	SectionIntro        Section = "intro"
	SectionAbout        Section = "about"
	SectionExperience   Section = "experience"
	SectionProjects     Section = "projects"
	SectionSkills       Section = "skills"
	SectionCertificates Section = "certificates"
	SectionEducation    Section = "education"
	SectionContact      Section = "contact"
)

// Sections lists every section in display order.
var Sections = []Section{
	SectionIntro,
	SectionAbout,
	SectionExperience,
	SectionProjects,
	SectionSkills,
	SectionCertificates,
	SectionEducation,
	SectionContact,
}

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

// Singleton reports whether a tenant holds at most one record of this section.
// A bulk PUT upserts singleton sections and replaces list sections.
func (s Section) Singleton() bool {
	return s == SectionIntro || s == SectionAbout
}

// HasAdminMount reports whether the backend exposes the section's identity
// gated routes under a distinct "/admin" sub-mount instead of the bare prefix.
func (s Section) HasAdminMount() bool {
	return s == SectionEducation || s == SectionContact
}

// Tenant is the data-scoping filter produced by the ownership resolver.
// A nil OwnerID selects the canonical seed/public content.
type Tenant struct {
	OwnerID *string
	// Own is true when the tenant is the verified caller's own data. Only then
	// may an empty read fall back to seed content.
	Own bool
}

// SeedTenant is the canonical public tenant.
var SeedTenant = Tenant{}

// IsSeed reports whether t selects seed content.
func (t Tenant) IsSeed() bool {
	return t.OwnerID == nil
}

// Record is one tenant-scoped section entry. Fields holds the
// section-specific payload; ownership and bookkeeping live outside it.
type Record struct {
	ID        string         `json:"id"`
	Section   Section        `json:"-"`
	OwnerID   *string        `json:"userId"`
	Fields    map[string]any `json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Flatten merges the payload with the bookkeeping fields for rendering.
func (r *Record) Flatten() map[string]any {
	out := make(map[string]any, len(r.Fields)+4)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	out["userId"] = r.OwnerID
	out["createdAt"] = r.CreatedAt
	out["updatedAt"] = r.UpdatedAt
	return out
}

// reservedFields are never accepted from a client payload.
var reservedFields = []string{"id", "_id", "userId", "user_id", "owner_id", "createdAt", "updatedAt"}

// SanitizeFields drops bookkeeping keys from a client payload so callers can
// never set or reassign ownership through the body.
func SanitizeFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	for _, k := range reservedFields {
		delete(out, k)
	}
	return out
}
