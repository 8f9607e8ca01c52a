package service

import "strings"

// Authorizer answers capability questions about a role.
type Authorizer interface {
	CanClockInOut(role string) bool
	IsAdmin(role string) bool
}

// RolePolicy is a set-membership Authorizer built from configured role
// names. Admin roles may always clock in and out.
type RolePolicy struct {
	AllowAll   bool
	ClockRoles map[string]struct{}
	AdminRoles map[string]struct{}
}

func NewRolePolicy(clockRoles, adminRoles []string) RolePolicy {
	return RolePolicy{
		ClockRoles: roleSet(clockRoles),
		AdminRoles: roleSet(adminRoles),
	}
}

func roleSet(roles []string) map[string]struct{} {
	out := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			out[r] = struct{}{}
		}
	}
	return out
}

func (p RolePolicy) CanClockInOut(role string) bool {
	if p.AllowAll {
		return true
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if _, ok := p.ClockRoles[role]; ok {
		return true
	}
	_, ok := p.AdminRoles[role]
	return ok
}

func (p RolePolicy) IsAdmin(role string) bool {
	_, ok := p.AdminRoles[strings.ToLower(strings.TrimSpace(role))]
	return ok
}
