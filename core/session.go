package core

// Roles
const (
	RoleAdmin       = "Admin"
	RoleInstructor  = "Instructor"
	RoleStudent     = "Student"
	RoleDataAnalyst = "Data Analyst"
)

var AllRoles = []string{RoleAdmin, RoleInstructor, RoleStudent, RoleDataAnalyst}

func IsRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Session identifies the authenticated caller of an operation.
// It is built from verified token claims and passed explicitly to every operation that needs it.
type Session struct {
	UserID int
	Email  string
	Name   string
	Role   string
}

func (s Session) IsAuthenticated() bool { return s.UserID > 0 }
func (s Session) IsAdmin() bool         { return s.Role == RoleAdmin }
func (s Session) IsInstructor() bool    { return s.Role == RoleInstructor }
func (s Session) IsStudent() bool       { return s.Role == RoleStudent }
func (s Session) IsDataAnalyst() bool   { return s.Role == RoleDataAnalyst }

// HasAnyRole reports whether the session holds one of roles; no roles means any authenticated session.
func (s Session) HasAnyRole(roles ...string) bool {
	if !s.IsAuthenticated() {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}
