package msr

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-msr/pkg/activity"
)

const kindMsr = "msr"

// AddMsr registers an operator record. Only RoleAdmin holders may call it.
func (r *Registry) AddMsr(ctx context.Context, caller Principal, name, url string, operator Principal) (uint64, error) {
	start := time.Now()
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	operator = normalizePrincipal(operator)

	record, err := r.addMsr(caller, name, url, operator)
	if err = r.finish("AddMsr", caller, name, start, err); err != nil {
		return 0, err
	}
	r.emit(ctx, activity.BuildMsrAddedEvent(r.msrEventInput(caller, record)))
	return record.ID, nil
}

func (r *Registry) addMsr(caller Principal, name, url string, operator Principal) (MSR, error) {
	if !r.roles.has(RoleAdmin, caller) {
		return MSR{}, failf(ErrUnauthorized, "adding an MSR requires %s", RoleAdmin)
	}
	if name == "" {
		return MSR{}, failf(ErrInvalidArgument, "msr name must not be empty")
	}
	if operator == "" {
		return MSR{}, failf(ErrInvalidArgument, "msr operator must not be empty")
	}

	r.commit.RLock()
	defer r.commit.RUnlock()
	return r.msrs.Append(func(index uint64) MSR {
		return MSR{
			ID:       r.sequences.Next(seqMsr),
			Name:     name,
			URL:      url,
			Operator: operator,
		}
	}), nil
}

// UpdateMsr edits the name and url of an MSR. Instances registered earlier
// keep the values captured at their registration.
func (r *Registry) UpdateMsr(ctx context.Context, caller Principal, id uint64, name, url string) error {
	start := time.Now()
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)

	record, err := r.updateMsr(caller, id, name, url)
	if err = r.finish("UpdateMsr", caller, strconv.FormatUint(id, 10), start, err); err != nil {
		return err
	}
	r.emit(ctx, activity.BuildMsrUpdatedEvent(r.msrEventInput(caller, record)))
	return nil
}

func (r *Registry) updateMsr(caller Principal, id uint64, name, url string) (MSR, error) {
	if !r.roles.has(RoleAdmin, caller) {
		return MSR{}, failf(ErrUnauthorized, "updating an MSR requires %s", RoleAdmin)
	}
	if name == "" {
		return MSR{}, failf(ErrInvalidArgument, "msr name must not be empty")
	}

	r.commit.RLock()
	defer r.commit.RUnlock()

	key := recordKey{kind: kindMsr, id: id}
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	record, found, err := r.msrs.Update(id, func(m MSR) (MSR, error) {
		m.Name = name
		m.URL = url
		return m, nil
	})
	if err != nil {
		return MSR{}, err
	}
	if !found {
		return MSR{}, failf(ErrNotFound, "msr %d", id)
	}
	return record, nil
}

// GetMsrs returns every MSR in creation order.
func (r *Registry) GetMsrs() []MSR {
	return r.msrs.All()
}

// GetMsr returns the MSR with id.
func (r *Registry) GetMsr(id uint64) (MSR, bool) {
	return r.msrs.Get(id)
}

// MsrForPrincipal returns the first MSR, in creation order, operated by
// principal.
func (r *Registry) MsrForPrincipal(principal Principal) (MSR, bool) {
	principal = normalizePrincipal(principal)
	if principal == "" {
		return MSR{}, false
	}
	return r.msrs.Find(func(m MSR) bool { return m.Operator == principal })
}

// operatorMsr resolves caller to its MSR or fails with ErrUnauthorized.
func (r *Registry) operatorMsr(caller Principal) (MSR, error) {
	record, ok := r.MsrForPrincipal(caller)
	if !ok {
		return MSR{}, failf(ErrUnauthorized, "%s is not a registered MSR operator", describeCaller(caller))
	}
	return record, nil
}

func (r *Registry) msrEventInput(caller Principal, record MSR) activity.MsrEventInput {
	return activity.MsrEventInput{
		ActorID:    string(caller),
		MsrID:      record.ID,
		Name:       record.Name,
		URL:        record.URL,
		Operator:   string(record.Operator),
		OccurredAt: r.now(),
	}
}
