package msr

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry replaces the helper functions of the expr
// evaluator.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEvaluator executes filters using github.com/expr-lang/expr.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr. Without
// a function registry it carries the built-in helpers.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.registry == nil {
		e.registry = DefaultFunctions()
	}
	return e
}

// Evaluate compiles expression, through the cache when one is set, and runs
// it against ctx.
func (e *exprEvaluator) Evaluate(ctx FilterContext, expression string) (any, error) {
	compiled, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(ctx)
}

// Compile returns a compiled filter that runs the program per invocation.
func (e *exprEvaluator) Compile(expression string) (CompiledFilter, error) {
	if expression == "" {
		return nil, wrapFilterError("expr", expression, errEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledFilter{
		evaluator:  e,
		program:    program,
		expression: expression,
	}, nil
}

func (e *exprEvaluator) cacheKey(expression string) string {
	return "expr:" + expression
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(e.cacheKey(expression)); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.registry.Names() {
		options = append(options, exprlang.Function(name, e.registryFunction(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapFilterError("expr", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(e.cacheKey(expression), program)
	}
	return program, nil
}

type exprCompiledFilter struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (f *exprCompiledFilter) Evaluate(ctx FilterContext) (any, error) {
	ctx = ctx.withDefaults()
	result, err := exprlang.Run(f.program, f.evaluator.environment(ctx))
	if err != nil {
		return nil, wrapFilterError("expr", f.expression, err)
	}
	return result, nil
}

func (e *exprEvaluator) environment(ctx FilterContext) map[string]any {
	env := map[string]any{
		"now":  ctx.Now,
		"args": ctx.Args,
	}
	for key, value := range ctx.Record {
		env[key] = value
	}
	return env
}

func (e *exprEvaluator) registryFunction(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}
}
