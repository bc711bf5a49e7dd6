package msr

import (
	"strings"
	"time"
)

// Snapshot is a point-in-time export of the whole registry: the role table,
// the three collections in creation order and the id counters.
type Snapshot struct {
	Roles          []RoleAssignment       `json:"roles" yaml:"roles"`
	Msrs           []MSR                  `json:"msrs" yaml:"msrs"`
	Specifications []ServiceSpecification `json:"specifications" yaml:"specifications"`
	Instances      []ServiceInstance      `json:"instances" yaml:"instances"`
	Sequences      map[string]uint64      `json:"sequences" yaml:"sequences"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Roles:          append([]RoleAssignment{}, s.Roles...),
		Msrs:           append([]MSR{}, s.Msrs...),
		Specifications: make([]ServiceSpecification, 0, len(s.Specifications)),
		Instances:      make([]ServiceInstance, 0, len(s.Instances)),
		Sequences:      make(map[string]uint64, len(s.Sequences)),
	}
	for _, spec := range s.Specifications {
		out.Specifications = append(out.Specifications, cloneSpecification(spec))
	}
	for _, instance := range s.Instances {
		out.Instances = append(out.Instances, cloneInstance(instance))
	}
	for name, value := range s.Sequences {
		out.Sequences[name] = value
	}
	return out
}

// Snapshot exports the registry. It waits for in-flight mutations and blocks
// new ones while copying, so the result never mixes states.
func (r *Registry) Snapshot() Snapshot {
	r.commit.Lock()
	defer r.commit.Unlock()

	sequences := map[string]uint64{
		string(seqMsr):           r.sequences.Peek(seqMsr),
		string(seqSpecification): r.sequences.Peek(seqSpecification),
		string(seqInstance):      r.sequences.Peek(seqInstance),
	}
	return Snapshot{
		Roles:          r.roles.assignments(),
		Msrs:           r.msrs.All(),
		Specifications: r.specs.All(),
		Instances:      r.instances.All(),
		Sequences:      sequences,
	}
}

// Restore builds a registry from snapshot. The snapshot's role table
// replaces any roles seeded by opts unless it is empty. Records must carry
// ids equal to their position and counters must match collection sizes.
func Restore(snapshot Snapshot, opts ...Option) (*Registry, error) {
	start := time.Now()
	r := New(opts...)
	if err := validateSnapshot(snapshot); err != nil {
		return nil, r.finish("Restore", "", "snapshot", start, err)
	}

	snapshot = snapshot.Clone()
	if len(snapshot.Roles) > 0 {
		r.roles.reset(snapshot.Roles)
	}
	r.msrs.Reset(snapshot.Msrs)
	r.specs.Reset(snapshot.Specifications)
	r.instances.Reset(snapshot.Instances)
	r.sequences.Restore(map[string]uint64{
		string(seqMsr):           uint64(len(snapshot.Msrs)),
		string(seqSpecification): uint64(len(snapshot.Specifications)),
		string(seqInstance):      uint64(len(snapshot.Instances)),
	})
	_ = r.finish("Restore", "", "snapshot", start, nil)
	return r, nil
}

func validateSnapshot(s Snapshot) error {
	for _, role := range s.Roles {
		if strings.TrimSpace(string(role.Role)) == "" || strings.TrimSpace(string(role.Principal)) == "" {
			return failf(ErrInvalidArgument, "role assignment %q/%q is incomplete", role.Role, role.Principal)
		}
	}
	msrCount := uint64(len(s.Msrs))
	for i, m := range s.Msrs {
		if m.ID != uint64(i) {
			return failf(ErrInvalidArgument, "msr at position %d has id %d", i, m.ID)
		}
	}
	for i, spec := range s.Specifications {
		if spec.ID != uint64(i) {
			return failf(ErrInvalidArgument, "specification at position %d has id %d", i, spec.ID)
		}
		if spec.MsrID >= msrCount {
			return failf(ErrInvalidArgument, "specification %d references unknown msr %d", spec.ID, spec.MsrID)
		}
	}
	for i, instance := range s.Instances {
		if instance.ID != uint64(i) {
			return failf(ErrInvalidArgument, "instance at position %d has id %d", i, instance.ID)
		}
		if instance.MsrID >= msrCount {
			return failf(ErrInvalidArgument, "instance %d references unknown msr %d", instance.ID, instance.MsrID)
		}
		if !instance.Status.Valid() {
			return failf(ErrInvalidArgument, "instance %d has unknown status %d", instance.ID, uint8(instance.Status))
		}
	}
	expected := map[string]int{
		string(seqMsr):           len(s.Msrs),
		string(seqSpecification): len(s.Specifications),
		string(seqInstance):      len(s.Instances),
	}
	for name, value := range s.Sequences {
		size, known := expected[name]
		if !known {
			return failf(ErrInvalidArgument, "unknown sequence %q", name)
		}
		if value != uint64(size) {
			return failf(ErrInvalidArgument, "sequence %q is %d but the collection holds %d records", name, value, size)
		}
	}
	return nil
}
