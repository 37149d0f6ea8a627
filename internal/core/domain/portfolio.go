package domain

import "time"

// Portfolio is a tenant's publication state. PublicSlug is allocated on the
// first publish and kept afterwards, including across un-publish.
type Portfolio struct {
	UserID      string    `json:"userId"`
	IsPublished bool      `json:"isPublished"`
	PublicSlug  *string   `json:"publicSlug"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Visible reports whether the portfolio may be served through its slug.
func (p *Portfolio) Visible() bool {
	return p != nil && p.IsPublished && p.PublicSlug != nil
}
