package models

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
)

// ParseRole maps a raw role marker to a Role. Only an exact "moderator"
// yields RoleModerator; anything else, including empty, is RoleUser.
func ParseRole(raw string) Role {
	if Role(raw) == RoleModerator {
		return RoleModerator
	}
	return RoleUser
}

// Identity is the caller derived from a single request. It is never cached.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (i Identity) IsModerator() bool {
	return i.Role == RoleModerator
}
