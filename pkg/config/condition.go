package config

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/getmockd/mayhem/pkg/fault"
)

// FaultEnv is the environment a retryIf expression is evaluated against.
type FaultEnv struct {
	Code       string
	Status     int
	Retryable  bool
	Message    string
	RetryAfter float64 // seconds
}

// NewFaultEnv describes err. Errors that are not faults only carry a
// message.
func NewFaultEnv(err error) FaultEnv {
	f, ok := fault.As(err)
	if !ok {
		return FaultEnv{Message: err.Error()}
	}
	return FaultEnv{
		Code:       string(f.Code),
		Status:     f.StatusCode,
		Retryable:  f.Retryable,
		Message:    f.Message,
		RetryAfter: f.RetryAfter.Seconds(),
	}
}

// Condition is a compiled boolean expression over FaultEnv.
type Condition struct {
	source  string
	program *vm.Program
}

// CompileCondition compiles src. The expression must evaluate to a bool.
func CompileCondition(src string) (*Condition, error) {
	program, err := expr.Compile(src, expr.Env(FaultEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return &Condition{source: src, program: program}, nil
}

// String returns the expression source.
func (c *Condition) String() string { return c.source }

// Match evaluates the condition against err. Evaluation errors count as no
// match.
func (c *Condition) Match(err error) bool {
	if err == nil {
		return false
	}
	out, runErr := expr.Run(c.program, NewFaultEnv(err))
	if runErr != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
