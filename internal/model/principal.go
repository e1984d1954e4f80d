package model

// Role is one of the closed set of roles carried in access tokens.
type Role string

const (
	RoleUser       Role = "USER"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

// ParseRole matches the exact role name. Unknown names are rejected.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleInstructor, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Capability is a permission granted through roles.
type Capability int

const (
	// CapAuthorCourses allows creating courses the principal then instructs.
	CapAuthorCourses Capability = iota + 1
	// CapManageAnyCourse allows mutating content of any course.
	CapManageAnyCourse
)

var roleCapabilities = map[Role][]Capability{
	RoleUser:       nil,
	RoleInstructor: {CapAuthorCourses},
	RoleAdmin:      {CapAuthorCourses, CapManageAnyCourse},
}

// Principal is the authenticated caller of a service operation.
type Principal struct {
	UserID string
	Roles  []Role
}

// NewPrincipal builds a principal from token claims, dropping unknown roles.
func NewPrincipal(userID string, roleNames []string) Principal {
	p := Principal{UserID: userID}
	for _, name := range roleNames {
		if r, ok := ParseRole(name); ok {
			p.Roles = append(p.Roles, r)
		}
	}
	return p
}

func (p Principal) Has(c Capability) bool {
	for _, r := range p.Roles {
		for _, granted := range roleCapabilities[r] {
			if granted == c {
				return true
			}
		}
	}
	return false
}

// IsOwner reports whether the principal instructs the course.
func (p Principal) IsOwner(c *Course) bool {
	return c != nil && p.UserID != "" && c.InstructorID == p.UserID
}
