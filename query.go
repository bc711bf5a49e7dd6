package msr

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ListByOperator returns the MSRs operated by principal together with the
// specifications and instances it registered.
func (r *Registry) ListByOperator(principal Principal) OperatorRecords {
	principal = normalizePrincipal(principal)
	return OperatorRecords{
		Msrs: r.msrs.Select(func(m MSR) bool {
			return m.Operator == principal
		}),
		Specifications: r.specs.Select(func(s ServiceSpecification) bool {
			return s.Registrant == principal
		}),
		Instances: r.instances.Select(func(i ServiceInstance) bool {
			return i.Registrant == principal
		}),
	}
}

// ListByStatus returns the instances currently in status.
func (r *Registry) ListByStatus(status Status) []ServiceInstance {
	return r.instances.Select(func(i ServiceInstance) bool {
		return i.Status == status
	})
}

// FindByMrn returns the most recently registered instance carrying mrn.
func (r *Registry) FindByMrn(mrn string) (ServiceInstance, bool) {
	mrn = strings.TrimSpace(mrn)
	if mrn == "" {
		return ServiceInstance{}, false
	}
	return r.instances.FindLast(func(i ServiceInstance) bool {
		return i.MRN == mrn
	})
}

// ListByMrn returns every instance carrying mrn in creation order.
func (r *Registry) ListByMrn(mrn string) []ServiceInstance {
	mrn = strings.TrimSpace(mrn)
	return r.instances.Select(func(i ServiceInstance) bool {
		return mrn != "" && i.MRN == mrn
	})
}

// ListImplementing returns the instances that reference the given design.
// An empty designVersion matches every version.
func (r *Registry) ListImplementing(designMRN, designVersion string) []ServiceInstance {
	designMRN = strings.TrimSpace(designMRN)
	designVersion = strings.TrimSpace(designVersion)
	return r.instances.Select(func(i ServiceInstance) bool {
		if designMRN == "" || i.ImplementsDesignMRN != designMRN {
			return false
		}
		return designVersion == "" || i.ImplementsDesignVersion == designVersion
	})
}

// LatestSpecification returns the specification named name with the highest
// version. Semantic versions sort above versions that do not parse, which
// compare as plain strings; equal versions resolve to the newest record.
func (r *Registry) LatestSpecification(name string) (ServiceSpecification, bool) {
	name = strings.TrimSpace(name)
	candidates := r.specs.Select(func(s ServiceSpecification) bool {
		return s.Name == name
	})
	if len(candidates) == 0 {
		return ServiceSpecification{}, false
	}
	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if compareVersions(candidate.Version, best.Version) >= 0 {
			best = candidate
		}
	}
	return best, true
}

func compareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}
