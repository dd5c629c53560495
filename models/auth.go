package models

// Console roles. Keep these stable; they are part of the auth contract
// with core-banking.
const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
)

// AuthUser is the authenticated identity returned by the core-banking
// admin identity endpoint.
type AuthUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// HasRole returns true if the user's role matches one of the given roles.
func (u AuthUser) HasRole(roles ...string) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// TokenPair holds the bearer credentials persisted between console runs.
// The JSON keys match the storage slot names used by the web console so
// both frontends can share a sign-in on the same machine.
type TokenPair struct {
	AccessToken  string `json:"sentinel-access-token"`
	RefreshToken string `json:"sentinel-refresh-token"`
}

// IsZero returns true when neither token is set.
func (p TokenPair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}
