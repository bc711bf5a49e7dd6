package msr

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Function is a helper callable from filter expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry stores filter helpers keyed by name. Names are case
// sensitive.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// DefaultFunctions returns a registry holding the built-in helpers
// hasKeyword and statusAtLeast.
func DefaultFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	r.functions["hasKeyword"] = hasKeywordFunction
	r.functions["statusAtLeast"] = statusAtLeastFunction
	return r
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("msr: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("msr: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("msr: function %q already registered", name)
	}
	r.functions[name] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// merge copies the functions of other into r, replacing same-named entries.
func (r *FunctionRegistry) merge(other *FunctionRegistry) {
	if other == nil {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, fn := range other.functions {
		r.functions[name] = fn
	}
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("msr: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[name]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("msr: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry adds the functions of registry to the filter helpers.
// Built-ins with the same name are replaced.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *registryConfig) {
		if registry == nil {
			return
		}
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		cfg.functions.merge(registry)
	}
}

// WithCustomFunction registers fn under name for filter expressions.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *registryConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// filterFunctions returns the built-ins overlaid with configured helpers.
func (c registryConfig) filterFunctions() *FunctionRegistry {
	functions := DefaultFunctions()
	functions.merge(c.functions)
	return functions
}

func hasKeywordFunction(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("hasKeyword expects 2 arguments, got %d", len(args))
	}
	want, ok := nativeValue(args[1]).(string)
	if !ok {
		return nil, fmt.Errorf("hasKeyword keyword must be a string")
	}
	for _, keyword := range stringsOf(args[0]) {
		if keyword == want {
			return true, nil
		}
	}
	return false, nil
}

func statusAtLeastFunction(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("statusAtLeast expects 2 arguments, got %d", len(args))
	}
	current, err := statusArg(args[0])
	if err != nil {
		return nil, err
	}
	minimum, err := statusArg(args[1])
	if err != nil {
		return nil, err
	}
	return current >= minimum, nil
}

func statusArg(value any) (Status, error) {
	switch v := nativeValue(value).(type) {
	case Status:
		return v, nil
	case string:
		return ParseStatus(v)
	default:
		return 0, fmt.Errorf("status argument must be a string, got %T", value)
	}
}

// valuer matches engine wrapper values that expose their Go value.
type valuer interface {
	Value() any
}

func nativeValue(value any) any {
	if v, ok := value.(valuer); ok {
		return v.Value()
	}
	return value
}

func stringsOf(value any) []string {
	value = nativeValue(value)
	switch v := value.(type) {
	case []string:
		return v
	case nil:
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if s, ok := nativeValue(rv.Index(i).Interface()).(string); ok {
			out = append(out, s)
		}
	}
	return out
}
