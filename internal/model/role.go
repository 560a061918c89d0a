package model

import (
	"encoding/json"
	"strings"
)

// Role is one of the server's authorization roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Known reports whether r is one of the roles the client understands.
func (r Role) Known() bool {
	return r == RoleUser || r == RoleAdmin
}

// Roles is the role set of a user. Unknown strings from the server are kept
// so a profile round-trips unchanged, but Has only matches known roles.
type Roles []Role

func (rs Roles) Has(role Role) bool {
	if !role.Known() {
		return false
	}
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// With returns a copy of rs that contains role.
func (rs Roles) With(role Role) Roles {
	if rs.Has(role) {
		return append(Roles(nil), rs...)
	}
	return append(append(Roles(nil), rs...), role)
}

// Without returns a copy of rs with role removed.
func (rs Roles) Without(role Role) Roles {
	out := make(Roles, 0, len(rs))
	for _, r := range rs {
		if r != role {
			out = append(out, r)
		}
	}
	return out
}

func (rs Roles) String() string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

func (rs *Roles) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Roles, 0, len(raw))
	for _, s := range raw {
		out = append(out, Role(s))
	}
	*rs = out
	return nil
}
