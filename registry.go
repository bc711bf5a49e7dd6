package msr

import (
	"context"
	"sync"
	"time"

	"github.com/im7mortal/kmutex"

	"github.com/goliatone/go-msr/internal/ledger"
	"github.com/goliatone/go-msr/internal/sequence"
	"github.com/goliatone/go-msr/pkg/activity"
)

// RoleManager owns the principal to role table and gates every mutation.
type RoleManager interface {
	GrantRole(ctx context.Context, caller Principal, role Role, principal Principal) error
	RevokeRole(ctx context.Context, caller Principal, role Role, principal Principal) error
	RenounceRole(ctx context.Context, caller Principal, role Role) error
	HasRole(role Role, principal Principal) bool
	RoleMembers(role Role) []Principal
}

// MsrDirectory registers operators.
type MsrDirectory interface {
	AddMsr(ctx context.Context, caller Principal, name, url string, operator Principal) (uint64, error)
	UpdateMsr(ctx context.Context, caller Principal, id uint64, name, url string) error
	GetMsrs() []MSR
	GetMsr(id uint64) (MSR, bool)
	MsrForPrincipal(principal Principal) (MSR, bool)
}

// SpecificationCatalog registers service specifications.
type SpecificationCatalog interface {
	RegisterServiceSpecification(ctx context.Context, caller Principal, name, version string, keywords []string) (specID uint64, msrID uint64, err error)
	GetServiceSpecifications() []ServiceSpecification
}

// InstanceCatalog registers service instances and moves them through their
// lifecycle.
type InstanceCatalog interface {
	RegisterServiceInstance(ctx context.Context, caller Principal, input ServiceInstanceInput, keywords []string) (uint64, error)
	UpdateStatus(ctx context.Context, caller Principal, id uint64, status Status) error
	UpdateStatusFrom(ctx context.Context, caller Principal, id uint64, from, to Status) error
	GetServiceInstances() []ServiceInstance
	GetServiceInstance(id uint64) (ServiceInstance, bool)
}

// QueryFacade composes read-only views across the catalogs.
type QueryFacade interface {
	ListByOperator(principal Principal) OperatorRecords
	ListByStatus(status Status) []ServiceInstance
	FindByMrn(mrn string) (ServiceInstance, bool)
	ListByMrn(mrn string) []ServiceInstance
	ListImplementing(designMRN, designVersion string) []ServiceInstance
	LatestSpecification(name string) (ServiceSpecification, bool)
	FilterInstances(expression string) ([]ServiceInstance, error)
}

// Service is the full registry surface consumed by transports.
type Service interface {
	RoleManager
	MsrDirectory
	SpecificationCatalog
	InstanceCatalog
	QueryFacade
	Snapshot() Snapshot
}

var _ Service = (*Registry)(nil)

const (
	seqMsr           sequence.Namespace = "msr"
	seqSpecification sequence.Namespace = "specification"
	seqInstance      sequence.Namespace = "instance"
)

// Registry is the in-memory authoritative store. The zero value is not
// usable; construct one with New or Restore.
type Registry struct {
	cfg     registryConfig
	emitter *activity.Emitter

	// commit is held shared by every mutation and exclusively by Snapshot.
	commit sync.RWMutex

	roles     *roleTable
	sequences *sequence.Table
	msrs      *ledger.Ledger[MSR]
	specs     *ledger.Ledger[ServiceSpecification]
	instances *ledger.Ledger[ServiceInstance]
	locks     *kmutex.Kmutex

	filterOnce sync.Once
	filter     Evaluator
}

// New constructs an empty registry.
func New(opts ...Option) *Registry {
	cfg := applyOptions(opts)
	r := &Registry{
		cfg:       cfg,
		emitter:   activity.NewEmitter(cfg.hooks, activity.Config{Enabled: true, Channel: cfg.channel}),
		roles:     newRoleTable(),
		sequences: sequence.New(),
		msrs:      ledger.New[MSR](cloneMSR),
		specs:     ledger.New[ServiceSpecification](cloneSpecification),
		instances: ledger.New[ServiceInstance](cloneInstance),
		locks:     kmutex.New(),
	}
	for _, p := range cfg.bootstrap {
		r.roles.seed(RoleBootstrap, p)
	}
	for _, p := range cfg.admins {
		r.roles.seed(RoleAdmin, p)
	}
	return r
}

// recordKey identifies one record for the keyed mutex.
type recordKey struct {
	kind string
	id   uint64
}

func (r *Registry) now() time.Time {
	if r.cfg.now != nil {
		return r.cfg.now()
	}
	return time.Now()
}

func (r *Registry) logger() Logger {
	if r.cfg.logger != nil {
		return r.cfg.logger
	}
	return noopLogger{}
}

// finish wraps err with operation metadata and logs the outcome.
func (r *Registry) finish(op string, caller Principal, target string, start time.Time, err error) error {
	err = wrapOperationError(op, caller, target, err)
	r.logger().LogOperation(OperationLogEvent{
		Op:       op,
		Caller:   caller,
		Target:   target,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

// emit notifies hooks about a committed change. Hook failures are logged;
// the mutation already happened and is not rolled back.
func (r *Registry) emit(ctx context.Context, event activity.Event) {
	if !r.emitter.Enabled() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.emitter.Emit(ctx, event); err != nil {
		r.logger().LogOperation(OperationLogEvent{
			Op:     "activity:" + event.Verb,
			Caller: Principal(event.ActorID),
			Target: event.ObjectType + ":" + event.ObjectID,
			Err:    err,
		})
	}
}
