package service

import "github.com/folioforge/portfolio-platform/internal/core/domain"

// ResolveTenant computes the read scope for a request. An explicit tenant
// (the userId query parameter) wins, so a visitor can view someone else's
// portfolio; otherwise the verified caller reads their own data; a fully
// anonymous request reads the seed tenant.
func ResolveTenant(id *domain.Identity, explicit string) domain.Tenant {
	if explicit != "" {
		owner := explicit
		return domain.Tenant{OwnerID: &owner, Own: id != nil && id.UserID == explicit}
	}
	if id != nil && id.UserID != "" {
		owner := id.UserID
		return domain.Tenant{OwnerID: &owner, Own: true}
	}
	return domain.SeedTenant
}

// writeOwner is the only scope a mutation may use: the caller's own id. An
// explicit tenant never widens a write.
func writeOwner(id *domain.Identity) (string, error) {
	if id == nil || id.UserID == "" {
		return "", domain.ErrMissingIdentity
	}
	return id.UserID, nil
}
