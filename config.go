package msr

import (
	"strings"
	"time"

	"github.com/goliatone/go-msr/pkg/activity"
)

// Option configures a Registry at construction.
type Option func(*registryConfig)

type registryConfig struct {
	bootstrap    []Principal
	admins       []Principal
	hooks        activity.Hooks
	channel      string
	logger       Logger
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	now          func() time.Time
}

func applyOptions(opts []Option) registryConfig {
	cfg := registryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithBootstrapAdmin grants RoleBootstrap to principal at construction. The
// bootstrap holder may grant roles, typically RoleAdmin to itself, but may
// not revoke them.
func WithBootstrapAdmin(principal Principal) Option {
	return func(cfg *registryConfig) {
		if p := normalizePrincipal(principal); p != "" {
			cfg.bootstrap = append(cfg.bootstrap, p)
		}
	}
}

// WithAdmin grants RoleAdmin to principal at construction. Seeded grants do
// not emit activity events.
func WithAdmin(principal Principal) Option {
	return func(cfg *registryConfig) {
		if p := normalizePrincipal(principal); p != "" {
			cfg.admins = append(cfg.admins, p)
		}
	}
}

// WithActivityHooks appends hooks notified after every committed mutation.
// Nil hooks are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.CloneHooks(hooks)
	return func(cfg *registryConfig) {
		cfg.hooks = append(cfg.hooks, normalized...)
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *registryConfig) {
		cfg.channel = strings.TrimSpace(channel)
	}
}

// WithLogger attaches an operation logger. A nil logger silences logging.
func WithLogger(logger Logger) Option {
	return func(cfg *registryConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithEvaluator selects the engine used by FilterInstances. The default is
// the expr engine.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *registryConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a cache for compiled filter programs.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *registryConfig) {
		cfg.programCache = cache
	}
}

// WithClock overrides the clock used to stamp events and filter contexts.
func WithClock(now func() time.Time) Option {
	return func(cfg *registryConfig) {
		cfg.now = now
	}
}

func normalizePrincipal(p Principal) Principal {
	return Principal(strings.TrimSpace(string(p)))
}
