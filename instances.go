package msr

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-msr/pkg/activity"
)

const kindInstance = "instance"

// RegisterServiceInstance records an instance under the caller's MSR. The
// status is always StatusProvisional and the MSR name and url are copied from
// the caller's MSR; the matching fields of input are ignored. Design
// references are stored as given and are not checked against the
// specification catalog.
func (r *Registry) RegisterServiceInstance(ctx context.Context, caller Principal, input ServiceInstanceInput, keywords []string) (uint64, error) {
	start := time.Now()
	input = trimInstanceInput(input)

	record, err := r.registerInstance(caller, input, keywords)
	if err = r.finish("RegisterServiceInstance", caller, input.MRN, start, err); err != nil {
		return 0, err
	}
	r.emit(ctx, activity.BuildInstanceRegisteredEvent(activity.InstanceEventInput{
		ActorID:    string(caller),
		InstanceID: record.ID,
		MsrID:      record.MsrID,
		Name:       record.Name,
		MRN:        record.MRN,
		Version:    record.Version,
		Status:     record.Status.String(),
		OccurredAt: r.now(),
	}))
	return record.ID, nil
}

func trimInstanceInput(input ServiceInstanceInput) ServiceInstanceInput {
	input.Name = strings.TrimSpace(input.Name)
	input.MRN = strings.TrimSpace(input.MRN)
	input.Version = strings.TrimSpace(input.Version)
	input.CoverageArea = strings.TrimSpace(input.CoverageArea)
	input.ImplementsDesignMRN = strings.TrimSpace(input.ImplementsDesignMRN)
	input.ImplementsDesignVersion = strings.TrimSpace(input.ImplementsDesignVersion)
	return input
}

func (r *Registry) registerInstance(caller Principal, input ServiceInstanceInput, keywords []string) (ServiceInstance, error) {
	owner, err := r.operatorMsr(caller)
	if err != nil {
		return ServiceInstance{}, err
	}
	switch {
	case input.Name == "":
		return ServiceInstance{}, failf(ErrInvalidArgument, "instance name must not be empty")
	case input.MRN == "":
		return ServiceInstance{}, failf(ErrInvalidArgument, "instance mrn must not be empty")
	case input.Version == "":
		return ServiceInstance{}, failf(ErrInvalidArgument, "instance version must not be empty")
	}
	sequence := keywordSequence(keywords)

	r.commit.RLock()
	defer r.commit.RUnlock()
	return r.instances.Append(func(index uint64) ServiceInstance {
		return ServiceInstance{
			ID:                      r.sequences.Next(seqInstance),
			Name:                    input.Name,
			MRN:                     input.MRN,
			Version:                 input.Version,
			Keywords:                sequence,
			CoverageArea:            input.CoverageArea,
			Status:                  StatusProvisional,
			ImplementsDesignMRN:     input.ImplementsDesignMRN,
			ImplementsDesignVersion: input.ImplementsDesignVersion,
			MsrName:                 owner.Name,
			MsrURL:                  owner.URL,
			MsrID:                   owner.ID,
			Registrant:              owner.Operator,
		}
	}), nil
}

// UpdateStatus moves an instance one step along its lifecycle. The caller
// must be the registering operator or hold RoleAdmin. Concurrent updates to
// the same instance are applied one at a time; a caller that loses the race
// sees the winner's status and fails with ErrInvalidTransition when its
// request is no longer the next step.
func (r *Registry) UpdateStatus(ctx context.Context, caller Principal, id uint64, status Status) error {
	return r.updateStatus(ctx, "UpdateStatus", caller, id, nil, status)
}

// UpdateStatusFrom is UpdateStatus with a precondition: it fails with
// ErrConflict unless the instance currently has status from.
func (r *Registry) UpdateStatusFrom(ctx context.Context, caller Principal, id uint64, from, to Status) error {
	return r.updateStatus(ctx, "UpdateStatusFrom", caller, id, &from, to)
}

func (r *Registry) updateStatus(ctx context.Context, op string, caller Principal, id uint64, expect *Status, to Status) error {
	start := time.Now()
	before, after, err := r.applyStatus(caller, id, expect, to)
	if err = r.finish(op, caller, strconv.FormatUint(id, 10), start, err); err != nil {
		return err
	}
	r.emit(ctx, activity.BuildInstanceStatusUpdatedEvent(activity.StatusEventInput{
		ActorID:    string(caller),
		InstanceID: after.ID,
		MsrID:      after.MsrID,
		MRN:        after.MRN,
		From:       before.String(),
		To:         after.Status.String(),
		OccurredAt: r.now(),
	}))
	return nil
}

func (r *Registry) applyStatus(caller Principal, id uint64, expect *Status, to Status) (Status, ServiceInstance, error) {
	if !to.Valid() {
		return 0, ServiceInstance{}, failf(ErrInvalidArgument, "unknown status %d", uint8(to))
	}

	r.commit.RLock()
	defer r.commit.RUnlock()

	key := recordKey{kind: kindInstance, id: id}
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	var before Status
	record, found, err := r.instances.Update(id, func(instance ServiceInstance) (ServiceInstance, error) {
		if instance.Registrant != caller && !r.roles.has(RoleAdmin, caller) {
			return instance, failf(ErrUnauthorized, "only the registrant or %s may update instance %d", RoleAdmin, id)
		}
		if expect != nil && instance.Status != *expect {
			return instance, failf(ErrConflict, "instance %d is %s, expected %s", id, instance.Status, *expect)
		}
		if !instance.Status.CanTransitionTo(to) {
			return instance, failf(ErrInvalidTransition, "instance %d cannot move from %s to %s", id, instance.Status, to)
		}
		before = instance.Status
		instance.Status = to
		return instance, nil
	})
	if !found {
		return 0, ServiceInstance{}, failf(ErrNotFound, "instance %d", id)
	}
	if err != nil {
		return 0, ServiceInstance{}, err
	}
	return before, record, nil
}

// GetServiceInstances returns every instance in creation order, whatever its
// status.
func (r *Registry) GetServiceInstances() []ServiceInstance {
	return r.instances.All()
}

// GetServiceInstance returns the instance with id.
func (r *Registry) GetServiceInstance(id uint64) (ServiceInstance, bool) {
	return r.instances.Get(id)
}
