package activity

import (
	"strconv"
	"time"
)

// Object types carried by registry events.
const (
	ObjectRole          = "role"
	ObjectMsr           = "msr"
	ObjectSpecification = "service_specification"
	ObjectInstance      = "service_instance"
)

// Verbs emitted by the registry.
const (
	VerbRoleGranted             = "role.granted"
	VerbRoleRevoked             = "role.revoked"
	VerbRoleRenounced           = "role.renounced"
	VerbMsrAdded                = "msr.added"
	VerbMsrUpdated              = "msr.updated"
	VerbSpecificationRegistered = "specification.registered"
	VerbInstanceRegistered      = "instance.registered"
	VerbInstanceStatusUpdated   = "instance.status.updated"
)

// RoleEventInput describes a role table change.
type RoleEventInput struct {
	ActorID    string
	Role       string
	Principal  string
	OccurredAt time.Time
}

// BuildRoleGrantedEvent constructs the event for a role grant.
func BuildRoleGrantedEvent(input RoleEventInput) Event {
	return buildRoleEvent(VerbRoleGranted, input)
}

// BuildRoleRevokedEvent constructs the event for a role revocation.
func BuildRoleRevokedEvent(input RoleEventInput) Event {
	return buildRoleEvent(VerbRoleRevoked, input)
}

// BuildRoleRenouncedEvent constructs the event for a principal dropping its
// own role.
func BuildRoleRenouncedEvent(input RoleEventInput) Event {
	return buildRoleEvent(VerbRoleRenounced, input)
}

func buildRoleEvent(verb string, input RoleEventInput) Event {
	return NormalizeEvent(Event{
		Verb:       verb,
		ActorID:    input.ActorID,
		ObjectType: ObjectRole,
		ObjectID:   input.Role + ":" + input.Principal,
		Metadata: map[string]any{
			"role":      input.Role,
			"principal": input.Principal,
		},
		OccurredAt: input.OccurredAt,
	})
}

// MsrEventInput describes an MSR record change.
type MsrEventInput struct {
	ActorID    string
	MsrID      uint64
	Name       string
	URL        string
	Operator   string
	OccurredAt time.Time
}

// BuildMsrAddedEvent constructs the event for a new MSR.
func BuildMsrAddedEvent(input MsrEventInput) Event {
	return buildMsrEvent(VerbMsrAdded, input)
}

// BuildMsrUpdatedEvent constructs the event for an MSR edit.
func BuildMsrUpdatedEvent(input MsrEventInput) Event {
	return buildMsrEvent(VerbMsrUpdated, input)
}

func buildMsrEvent(verb string, input MsrEventInput) Event {
	id := formatID(input.MsrID)
	return NormalizeEvent(Event{
		Verb:       verb,
		ActorID:    input.ActorID,
		ObjectType: ObjectMsr,
		ObjectID:   id,
		MsrID:      id,
		Metadata: map[string]any{
			"name":     input.Name,
			"url":      input.URL,
			"operator": input.Operator,
		},
		OccurredAt: input.OccurredAt,
	})
}

// SpecificationEventInput describes a specification registration.
type SpecificationEventInput struct {
	ActorID         string
	SpecificationID uint64
	MsrID           uint64
	Name            string
	Version         string
	Keywords        []string
	OccurredAt      time.Time
}

// BuildSpecificationRegisteredEvent constructs the event for a new
// specification.
func BuildSpecificationRegisteredEvent(input SpecificationEventInput) Event {
	metadata := map[string]any{
		"name":    input.Name,
		"version": input.Version,
	}
	if len(input.Keywords) > 0 {
		metadata["keywords"] = input.Keywords
	}
	return NormalizeEvent(Event{
		Verb:       VerbSpecificationRegistered,
		ActorID:    input.ActorID,
		ObjectType: ObjectSpecification,
		ObjectID:   formatID(input.SpecificationID),
		MsrID:      formatID(input.MsrID),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	})
}

// InstanceEventInput describes a service instance registration.
type InstanceEventInput struct {
	ActorID    string
	InstanceID uint64
	MsrID      uint64
	Name       string
	MRN        string
	Version    string
	Status     string
	OccurredAt time.Time
}

// BuildInstanceRegisteredEvent constructs the event for a new instance.
func BuildInstanceRegisteredEvent(input InstanceEventInput) Event {
	return NormalizeEvent(Event{
		Verb:       VerbInstanceRegistered,
		ActorID:    input.ActorID,
		ObjectType: ObjectInstance,
		ObjectID:   formatID(input.InstanceID),
		MsrID:      formatID(input.MsrID),
		Metadata: map[string]any{
			"name":    input.Name,
			"mrn":     input.MRN,
			"version": input.Version,
			"status":  input.Status,
		},
		OccurredAt: input.OccurredAt,
	})
}

// StatusEventInput describes an instance status change.
type StatusEventInput struct {
	ActorID    string
	InstanceID uint64
	MsrID      uint64
	MRN        string
	From       string
	To         string
	OccurredAt time.Time
}

// BuildInstanceStatusUpdatedEvent constructs the event for a status change.
func BuildInstanceStatusUpdatedEvent(input StatusEventInput) Event {
	return NormalizeEvent(Event{
		Verb:       VerbInstanceStatusUpdated,
		ActorID:    input.ActorID,
		ObjectType: ObjectInstance,
		ObjectID:   formatID(input.InstanceID),
		MsrID:      formatID(input.MsrID),
		Metadata: map[string]any{
			"mrn":  input.MRN,
			"from": input.From,
			"to":   input.To,
		},
		OccurredAt: input.OccurredAt,
	})
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
