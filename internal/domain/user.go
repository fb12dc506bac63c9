package domain

import "time"

// Role is a user's permission level.
type Role string

// Roles, in increasing order of privilege.
const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// User is consumed, not owned, by this server — accounts are managed by the
// external auth collaborator. Blacklist holds tag names (normalized form)
// that are always excluded from this user's search and listing results.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Blacklist []string  `json:"blacklist,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsModerator reports whether the user has moderator privileges or above.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

// CanManagePost reports whether the user may edit or delete the given post:
// the uploader, moderators, and admins.
func (u *User) CanManagePost(p *Post) bool {
	return u.ID == p.UploaderID || u.IsModerator()
}
