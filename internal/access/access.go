// Package access models the authenticated caller and what it may do.
package access

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized means no session is present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means a session is present but lacks the capability.
	ErrForbidden = errors.New("forbidden")
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// ParseRole maps a free-form role claim onto a known role; unknown values are staff.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleStaff
}

// Capability names an action checked at the service boundary.
type Capability string

const (
	ManageDocuments    Capability = "documents:manage"
	AssignDocuments    Capability = "documents:assign"
	ReviewSubmissions  Capability = "submissions:review"
	ManageHRRecords    Capability = "hr_records:manage"
	ManageTraining     Capability = "training:manage"
	CompleteOwnWork    Capability = "self:complete"
	ViewSubmissionFeed Capability = "submissions:view"
	ManageUsers        Capability = "users:manage"
	ViewAuditLog       Capability = "audit:view"
)

// Principal is the authenticated caller.
type Principal struct {
	ID   string
	Role Role
	Name string
}

func (p *Principal) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

// Authorizer decides whether a principal holds a capability.
type Authorizer interface {
	Require(p *Principal, c Capability) error
}

// RoleAuthorizer grants capabilities from a static role table.
type RoleAuthorizer struct {
	grants map[Role]map[Capability]bool
}

// DefaultAuthorizer grants every capability to admins and self-service to staff.
func DefaultAuthorizer() *RoleAuthorizer {
	admin := map[Capability]bool{}
	for _, c := range []Capability{ManageDocuments, AssignDocuments, ReviewSubmissions, ManageHRRecords, ManageTraining, CompleteOwnWork, ViewSubmissionFeed, ManageUsers, ViewAuditLog} {
		admin[c] = true
	}
	return &RoleAuthorizer{grants: map[Role]map[Capability]bool{
		RoleAdmin: admin,
		RoleStaff: {CompleteOwnWork: true},
	}}
}

func (a *RoleAuthorizer) Require(p *Principal, c Capability) error {
	if p == nil || p.ID == "" {
		return ErrUnauthorized
	}
	if a.grants[p.Role][c] {
		return nil
	}
	return ErrForbidden
}

type ctxKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored on ctx, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKey{}).(*Principal)
	return p
}
