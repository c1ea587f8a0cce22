package admin

import (
	"errors"
	"fmt"
	"time"
)

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

var ErrAdminNotFound = errors.New("admin not found")

// Record is one roster entry. Super-admin records are synthesized from
// configuration and never stored.
type Record struct {
	userID  int64
	role    Role
	addedBy *int64
	addedAt time.Time
}

func NewAdmin(userID, addedBy int64, now time.Time) (*Record, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("admin user id must be positive")
	}
	return &Record{userID: userID, role: RoleAdmin, addedBy: &addedBy, addedAt: now}, nil
}

// NewSuperAdmin describes a configuration-supplied super-admin.
func NewSuperAdmin(userID int64, since time.Time) *Record {
	return &Record{userID: userID, role: RoleSuperAdmin, addedAt: since}
}

func ReconstructAdmin(userID int64, role Role, addedBy *int64, addedAt time.Time) (*Record, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("admin user id must be positive")
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid admin role: %s", role)
	}
	return &Record{userID: userID, role: role, addedBy: addedBy, addedAt: addedAt}, nil
}

func (a *Record) UserID() int64 {
	return a.userID
}

func (a *Record) Role() Role {
	return a.role
}

func (a *Record) AddedBy() *int64 {
	return a.addedBy
}

func (a *Record) AddedAt() time.Time {
	return a.addedAt
}

func (a *Record) IsSuperAdmin() bool {
	return a.role == RoleSuperAdmin
}
