package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the access level carried by a caller token.
type Role string

const (
	// RoleAdmin reads every zone.
	RoleAdmin Role = "Administrador"
	// RoleLeader reads only the zone named in its token.
	RoleLeader Role = "Lider"
	// RoleViewer reads every zone without write access.
	RoleViewer Role = "Visualizador"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLeader, RoleViewer:
		return true
	}
	return false
}

// Caller identifies the user behind a request.
type Caller struct {
	UserID string
	Name   string
	Role   Role
	ZoneID *uuid.UUID
}

// ZoneRestriction returns the only zone the caller may read, or nil when the
// caller may read every zone.
func (c *Caller) ZoneRestriction() (*uuid.UUID, error) {
	if c == nil {
		return nil, ErrUnauthenticated
	}
	if c.Role != RoleLeader {
		return nil, nil
	}
	if c.ZoneID == nil {
		return nil, fmt.Errorf("%w: leader without zone", ErrForbidden)
	}
	zone := *c.ZoneID
	return &zone, nil
}
