package model

import "time"

// Role is used both as a user's global role and as a workspace member role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// Presence of a user
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceAway    Presence = "away"
	PresenceOffline Presence = "offline"
)

// DefaultAvatar is given to every new account
const DefaultAvatar = "👤"

// User represents an account
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Avatar        string    `json:"avatar"`
	Role          Role      `json:"role"`
	Status        Presence  `json:"status"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`

	VerificationTokenHash string     `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	VerificationSentAt    *time.Time `json:"-"`
}

// VerificationExpired returns true if the pending verification token is no longer usable
func (u *User) VerificationExpired(now time.Time) bool {
	return u.VerificationExpiresAt == nil || now.After(*u.VerificationExpiresAt)
}
