package domain

import dErrors "givebridge/pkg/domain-errors"

// Role is the authorization role of a principal.
// Invariant: the value must be one of the supported roles.
//
// Construct via ParseRole at trust boundaries; direct casting bypasses validation.
type Role string

const (
	RoleDonor Role = "donor"
	RoleNGO   Role = "ngo"
	RoleAdmin Role = "admin"
)

var validRoles = map[Role]bool{
	RoleDonor: true,
	RoleNGO:   true,
	RoleAdmin: true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role: "+s)
	}
	return r, nil
}

func (r Role) IsValid() bool { return validRoles[r] }

func (r Role) String() string { return string(r) }

// Principal is the authenticated actor of a request. It is passed explicitly
// into every engine operation.
type Principal struct {
	ID   UserID
	Role Role
}

func (p Principal) IsDonor() bool { return p.Role == RoleDonor }
func (p Principal) IsNGO() bool   { return p.Role == RoleNGO }
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Valid reports whether the principal has an id and a known role.
func (p Principal) Valid() bool {
	return !p.ID.IsNil() && p.Role.IsValid()
}
