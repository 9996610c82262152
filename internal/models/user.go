package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// User is the authenticated caller as produced by the identity provider.
type User struct {
	ID        string   `json:"id"`
	Email     string   `json:"email,omitempty"`
	FullName  string   `json:"full_name,omitempty"`
	Role      UserRole `json:"role"`
	Institute string   `json:"institute,omitempty"`
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
