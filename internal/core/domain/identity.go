package domain

import "time"

// Role is the coarse permission level carried in every identity token.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is one of the two known roles. There is no default:
// anything else is a verification failure.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Claims is the identity payload signed into an access token.
type Claims struct {
	Subject   string
	Email     string
	Role      Role
	Name      string // optional
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity is the verified caller identity forwarded by the gateway to the
// resource services. Services receive it as a typed value and never read the
// transport headers directly.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the identity carries the ADMIN role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
