package msr

import (
	"fmt"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// maxHelperArity bounds the overloads declared for each helper function.
const maxHelperArity = 3

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry replaces the helper functions of the CEL
// evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry

	envOnce sync.Once
	env     *celgo.Env
	envErr  error
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Every instance
// field is declared as a dynamic variable and now as a timestamp.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
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

func (e *celEvaluator) Evaluate(ctx FilterContext, expression string) (any, error) {
	compiled, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string) (CompiledFilter, error) {
	if expression == "" {
		return nil, wrapFilterError("cel", expression, errEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapFilterError("cel", expression, err)
	}
	return &celCompiledFilter{
		program:    program,
		expression: expression,
	}, nil
}

func (e *celEvaluator) cacheKey(expression string) string {
	return "cel:" + expression
}

func (e *celEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(e.cacheKey(expression)); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := e.environment()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(e.cacheKey(expression), program)
	}
	return program, nil
}

func (e *celEvaluator) environment() (*celgo.Env, error) {
	e.envOnce.Do(func() {
		opts := []celgo.EnvOption{
			celgo.Variable("now", celgo.TimestampType),
			celgo.Variable("args", celgo.DynType),
		}
		for _, name := range bindingNames {
			opts = append(opts, celgo.Variable(name, celgo.DynType))
		}
		for _, name := range e.registry.Names() {
			opts = append(opts, e.functionDecl(name))
		}
		e.env, e.envErr = celgo.NewEnv(opts...)
	})
	return e.env, e.envErr
}

func (e *celEvaluator) functionDecl(name string) celgo.EnvOption {
	binding := e.callBinding(name)
	overloads := make([]celgo.FunctionOpt, 0, maxHelperArity)
	for arity := 1; arity <= maxHelperArity; arity++ {
		args := make([]*celgo.Type, arity)
		for i := range args {
			args[i] = celgo.DynType
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("%s_dyn_%d", name, arity),
			args,
			celgo.DynType,
			celgo.FunctionBinding(binding),
		))
	}
	return celgo.Function(name, overloads...)
}

func (e *celEvaluator) callBinding(name string) func(values ...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		args := make([]any, 0, len(values))
		for _, val := range values {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

type celCompiledFilter struct {
	program    celgo.Program
	expression string
}

func (f *celCompiledFilter) Evaluate(ctx FilterContext) (any, error) {
	ctx = ctx.withDefaults()
	activation := map[string]any{
		"now":  ctx.Now,
		"args": ctx.Args,
	}
	for key, value := range ctx.Record {
		activation[key] = value
	}
	out, _, err := f.program.Eval(activation)
	if err != nil {
		return nil, wrapFilterError("cel", f.expression, err)
	}
	return out.Value(), nil
}
