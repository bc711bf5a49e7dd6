package msr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FilterContext carries one record and its surroundings into an evaluator.
type FilterContext struct {
	Record map[string]any
	Now    time.Time
	Args   map[string]any
}

func (c FilterContext) withDefaults() FilterContext {
	if c.Now.IsZero() {
		c.Now = time.Now()
	}
	if c.Record == nil {
		c.Record = map[string]any{}
	}
	if c.Args == nil {
		c.Args = map[string]any{}
	}
	return c
}

// Evaluator runs filter expressions.
type Evaluator interface {
	Evaluate(ctx FilterContext, expression string) (any, error)
	Compile(expression string) (CompiledFilter, error)
}

// CompiledFilter is an expression prepared for repeated evaluation.
type CompiledFilter interface {
	Evaluate(ctx FilterContext) (any, error)
}

// FilterError reports an expression that failed to compile, failed to run or
// did not produce a boolean. It matches ErrInvalidArgument.
type FilterError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *FilterError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("msr: %s filter %s: %v", e.Engine, describeExpression(e.Expr), e.Err)
}

func (e *FilterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports ErrInvalidArgument as a match.
func (e *FilterError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapFilterError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}

	var filterErr *FilterError
	if errors.As(err, &filterErr) {
		if filterErr.Engine == "" {
			filterErr.Engine = engine
		}
		if filterErr.Expr == "" {
			filterErr.Expr = expr
		}
		return filterErr
	}

	return &FilterError{
		Engine: engine,
		Expr:   expr,
		Err:    err,
	}
}

var errEmptyExpression = errors.New("expression must not be empty")

// instanceBinding flattens an instance into the variables visible to filter
// expressions.
func instanceBinding(i ServiceInstance) map[string]any {
	keywords := cloneStrings(i.Keywords)
	if keywords == nil {
		keywords = []string{}
	}
	return map[string]any{
		"id":                      i.ID,
		"name":                    i.Name,
		"mrn":                     i.MRN,
		"version":                 i.Version,
		"keywords":                keywords,
		"coverageArea":            i.CoverageArea,
		"status":                  i.Status.String(),
		"implementsDesignMRN":     i.ImplementsDesignMRN,
		"implementsDesignVersion": i.ImplementsDesignVersion,
		"msrId":                   i.MsrID,
		"msrName":                 i.MsrName,
		"msrUrl":                  i.MsrURL,
		"registrant":              string(i.Registrant),
	}
}

// bindingNames lists every variable instanceBinding produces.
var bindingNames = []string{
	"id", "name", "mrn", "version", "keywords", "coverageArea", "status",
	"implementsDesignMRN", "implementsDesignVersion", "msrId", "msrName",
	"msrUrl", "registrant",
}

// FilterInstances returns the instances for which expression evaluates to
// true, in creation order. The expression sees the instance fields listed in
// the package documentation plus now, and may call the configured helper
// functions.
func (r *Registry) FilterInstances(expression string) ([]ServiceInstance, error) {
	start := time.Now()
	expression = strings.TrimSpace(expression)
	evaluator := r.filterEvaluator()
	engine := evaluatorEngineName(evaluator)

	matches, err := r.filterInstances(evaluator, engine, expression)
	err = wrapFilterError(engine, expression, err)
	r.logger().LogOperation(OperationLogEvent{
		Op:       "FilterInstances",
		Target:   expression,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *Registry) filterInstances(evaluator Evaluator, engine, expression string) ([]ServiceInstance, error) {
	if evaluator == nil {
		return nil, errors.New("filter evaluator not configured")
	}
	if expression == "" {
		return nil, errEmptyExpression
	}
	compiled, err := evaluator.Compile(expression)
	if err != nil {
		return nil, err
	}

	now := r.now()
	matches := make([]ServiceInstance, 0)
	for _, instance := range r.instances.All() {
		out, err := compiled.Evaluate(FilterContext{Record: instanceBinding(instance), Now: now})
		if err != nil {
			return nil, err
		}
		keep, ok := out.(bool)
		if !ok {
			return nil, fmt.Errorf("%s filter returned %T, want bool", engine, out)
		}
		if keep {
			matches = append(matches, instance)
		}
	}
	return matches, nil
}

func (r *Registry) filterEvaluator() Evaluator {
	r.filterOnce.Do(func() {
		if r.cfg.evaluator != nil {
			r.filter = r.cfg.evaluator
			return
		}
		r.filter = NewExprEvaluator(
			ExprWithProgramCache(r.cfg.programCache),
			ExprWithFunctionRegistry(r.cfg.filterFunctions()),
		)
	})
	return r.filter
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	}
	if named, ok := e.(interface{ engineName() string }); ok {
		return named.engineName()
	}
	return "custom"
}
