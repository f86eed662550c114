package enums

import "fmt"

// ActorRole is the role carried in an access token. Issuing and revoking
// tokens belongs to the identity service; this backend only reads the role.
type ActorRole string

const (
	RoleTechnician ActorRole = "technician"
	RoleReviewer   ActorRole = "reviewer"
	RoleAdmin      ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	RoleTechnician,
	RoleReviewer,
	RoleAdmin,
}

// IsValid reports whether the value matches the canonical actor role enum.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts the raw string to ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
