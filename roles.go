package msr

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-msr/pkg/activity"
)

type roleMembers map[Role]map[Principal]struct{}

func (m roleMembers) has(role Role, p Principal) bool {
	_, ok := m[role][p]
	return ok
}

func (m roleMembers) hasAny(p Principal, roles ...Role) bool {
	for _, role := range roles {
		if m.has(role, p) {
			return true
		}
	}
	return false
}

func (m roleMembers) add(role Role, p Principal) {
	holders, ok := m[role]
	if !ok {
		holders = map[Principal]struct{}{}
		m[role] = holders
	}
	holders[p] = struct{}{}
}

func (m roleMembers) remove(role Role, p Principal) {
	delete(m[role], p)
	if len(m[role]) == 0 {
		delete(m, role)
	}
}

func (m roleMembers) clone() roleMembers {
	out := make(roleMembers, len(m))
	for role, holders := range m {
		copied := make(map[Principal]struct{}, len(holders))
		for p := range holders {
			copied[p] = struct{}{}
		}
		out[role] = copied
	}
	return out
}

// roleTable publishes an immutable membership map; writers copy, mutate and
// swap under mu, readers load without locking.
type roleTable struct {
	mu      sync.Mutex
	members atomic.Pointer[roleMembers]
}

func newRoleTable() *roleTable {
	t := &roleTable{}
	empty := roleMembers{}
	t.members.Store(&empty)
	return t
}

func (t *roleTable) load() roleMembers {
	return *t.members.Load()
}

func (t *roleTable) has(role Role, p Principal) bool {
	return t.load().has(role, p)
}

func (t *roleTable) hasAny(p Principal, roles ...Role) bool {
	return t.load().hasAny(p, roles...)
}

// mutate applies fn to a private copy and publishes it when fn reports a
// change without error.
func (t *roleTable) mutate(fn func(roleMembers) (bool, error)) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := t.load().clone()
	changed, err := fn(next)
	if err != nil || !changed {
		return false, err
	}
	t.members.Store(&next)
	return true, nil
}

func (t *roleTable) seed(role Role, p Principal) {
	_, _ = t.mutate(func(m roleMembers) (bool, error) {
		m.add(role, p)
		return true, nil
	})
}

func (t *roleTable) holders(role Role) []Principal {
	holders := t.load()[role]
	out := make([]Principal, 0, len(holders))
	for p := range holders {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *roleTable) assignments() []RoleAssignment {
	members := t.load()
	out := make([]RoleAssignment, 0)
	for role, holders := range members {
		for p := range holders {
			out = append(out, RoleAssignment{Role: role, Principal: p})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Principal < out[j].Principal
	})
	return out
}

func (t *roleTable) reset(assignments []RoleAssignment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := roleMembers{}
	for _, a := range assignments {
		next.add(a.Role, a.Principal)
	}
	t.members.Store(&next)
}

// dropRole removes role from p unless p is the last admin.
func dropRole(m roleMembers, role Role, p Principal) (bool, error) {
	if !m.has(role, p) {
		return false, nil
	}
	if role == RoleAdmin && len(m[RoleAdmin]) == 1 {
		return false, failf(ErrInvariantViolation, "%s is the last holder of %s", p, RoleAdmin)
	}
	m.remove(role, p)
	return true, nil
}

func validateRoleArgs(role Role, principal Principal) error {
	if strings.TrimSpace(string(role)) == "" {
		return failf(ErrInvalidArgument, "role must not be empty")
	}
	if strings.TrimSpace(string(principal)) == "" {
		return failf(ErrInvalidArgument, "principal must not be empty")
	}
	return nil
}

func roleTarget(role Role, principal Principal) string {
	return string(role) + ":" + string(principal)
}

// GrantRole gives role to principal. The caller must hold RoleAdmin or
// RoleBootstrap. Granting a role that is already held is a no-op and emits
// nothing.
func (r *Registry) GrantRole(ctx context.Context, caller Principal, role Role, principal Principal) error {
	start := time.Now()
	principal = normalizePrincipal(principal)
	granted, err := r.grantRole(caller, role, principal)
	if err = r.finish("GrantRole", caller, roleTarget(role, principal), start, err); err != nil {
		return err
	}
	if granted {
		r.emit(ctx, activity.BuildRoleGrantedEvent(r.roleEventInput(caller, role, principal)))
	}
	return nil
}

func (r *Registry) grantRole(caller Principal, role Role, principal Principal) (bool, error) {
	if err := validateRoleArgs(role, principal); err != nil {
		return false, err
	}
	r.commit.RLock()
	defer r.commit.RUnlock()
	return r.roles.mutate(func(m roleMembers) (bool, error) {
		if !m.hasAny(caller, RoleAdmin, RoleBootstrap) {
			return false, failf(ErrUnauthorized, "granting roles requires %s", RoleAdmin)
		}
		if m.has(role, principal) {
			return false, nil
		}
		m.add(role, principal)
		return true, nil
	})
}

// RevokeRole removes role from principal. The caller must hold RoleAdmin.
// Revoking the last RoleAdmin fails with ErrInvariantViolation; revoking a
// role that is not held is a no-op.
func (r *Registry) RevokeRole(ctx context.Context, caller Principal, role Role, principal Principal) error {
	start := time.Now()
	principal = normalizePrincipal(principal)
	revoked, err := r.revokeRole(caller, role, principal)
	if err = r.finish("RevokeRole", caller, roleTarget(role, principal), start, err); err != nil {
		return err
	}
	if revoked {
		r.emit(ctx, activity.BuildRoleRevokedEvent(r.roleEventInput(caller, role, principal)))
	}
	return nil
}

func (r *Registry) revokeRole(caller Principal, role Role, principal Principal) (bool, error) {
	if err := validateRoleArgs(role, principal); err != nil {
		return false, err
	}
	r.commit.RLock()
	defer r.commit.RUnlock()
	return r.roles.mutate(func(m roleMembers) (bool, error) {
		if !m.has(RoleAdmin, caller) {
			return false, failf(ErrUnauthorized, "revoking roles requires %s", RoleAdmin)
		}
		return dropRole(m, role, principal)
	})
}

// RenounceRole drops role from the caller itself, subject to the same
// last-admin rule as RevokeRole.
func (r *Registry) RenounceRole(ctx context.Context, caller Principal, role Role) error {
	start := time.Now()
	renounced, err := r.renounceRole(caller, role)
	if err = r.finish("RenounceRole", caller, roleTarget(role, caller), start, err); err != nil {
		return err
	}
	if renounced {
		r.emit(ctx, activity.BuildRoleRenouncedEvent(r.roleEventInput(caller, role, caller)))
	}
	return nil
}

func (r *Registry) renounceRole(caller Principal, role Role) (bool, error) {
	if err := validateRoleArgs(role, caller); err != nil {
		return false, err
	}
	r.commit.RLock()
	defer r.commit.RUnlock()
	return r.roles.mutate(func(m roleMembers) (bool, error) {
		return dropRole(m, role, caller)
	})
}

// HasRole reports whether principal holds role.
func (r *Registry) HasRole(role Role, principal Principal) bool {
	return r.roles.has(role, principal)
}

// RoleMembers lists the holders of role, sorted.
func (r *Registry) RoleMembers(role Role) []Principal {
	return r.roles.holders(role)
}

func (r *Registry) roleEventInput(caller Principal, role Role, principal Principal) activity.RoleEventInput {
	return activity.RoleEventInput{
		ActorID:    string(caller),
		Role:       string(role),
		Principal:  string(principal),
		OccurredAt: r.now(),
	}
}
