package msr

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-msr/pkg/activity"
)

// RegisterServiceSpecification records a specification under the caller's
// MSR. It returns the new specification id and the owning MSR id.
func (r *Registry) RegisterServiceSpecification(ctx context.Context, caller Principal, name, version string, keywords []string) (uint64, uint64, error) {
	start := time.Now()
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)

	record, err := r.registerSpecification(caller, name, version, keywords)
	if err = r.finish("RegisterServiceSpecification", caller, name+"@"+version, start, err); err != nil {
		return 0, 0, err
	}
	r.emit(ctx, activity.BuildSpecificationRegisteredEvent(activity.SpecificationEventInput{
		ActorID:         string(caller),
		SpecificationID: record.ID,
		MsrID:           record.MsrID,
		Name:            record.Name,
		Version:         record.Version,
		Keywords:        record.Keywords,
		OccurredAt:      r.now(),
	}))
	return record.ID, record.MsrID, nil
}

func (r *Registry) registerSpecification(caller Principal, name, version string, keywords []string) (ServiceSpecification, error) {
	owner, err := r.operatorMsr(caller)
	if err != nil {
		return ServiceSpecification{}, err
	}
	if name == "" {
		return ServiceSpecification{}, failf(ErrInvalidArgument, "specification name must not be empty")
	}
	if version == "" {
		return ServiceSpecification{}, failf(ErrInvalidArgument, "specification version must not be empty")
	}
	set := keywordSet(keywords)

	r.commit.RLock()
	defer r.commit.RUnlock()
	return r.specs.Append(func(index uint64) ServiceSpecification {
		return ServiceSpecification{
			ID:         r.sequences.Next(seqSpecification),
			Name:       name,
			Version:    version,
			Keywords:   set,
			MsrID:      owner.ID,
			Registrant: owner.Operator,
		}
	}), nil
}

// GetServiceSpecifications returns every specification in creation order.
func (r *Registry) GetServiceSpecifications() []ServiceSpecification {
	return r.specs.All()
}
