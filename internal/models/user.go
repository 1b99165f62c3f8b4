package models

// UserRole represents the roles issued by the authentication provider.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleCreator    UserRole = "CREATOR"
	RoleStudent    UserRole = "STUDENT"
)

// StaffRoles may mutate sessions, registrations and leads.
var StaffRoles = []UserRole{RoleSuperAdmin, RoleAdmin, RoleCreator}

// IsStaff reports whether the role belongs to the back office.
func (r UserRole) IsStaff() bool {
	for _, staff := range StaffRoles {
		if r == staff {
			return true
		}
	}
	return false
}

// Actor identifies the caller of a mutating operation.
type Actor struct {
	UserID   string   `json:"user_id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
