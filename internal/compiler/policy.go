package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/tierprobe/internal/ir"
)

// CompilePolicy parses the optional policy block. A value that does not
// exist yields ir.DefaultPolicy(); missing fields keep their defaults.
func CompilePolicy(v cue.Value) (ir.Policy, error) {
	policy := ir.DefaultPolicy()
	if !v.Exists() {
		return policy, nil
	}
	if err := v.Err(); err != nil {
		return policy, formatCUEError(err)
	}

	boundVal := v.LookupPath(cue.ParsePath("polymorphic_bound"))
	if boundVal.Exists() {
		bound, err := boundVal.Int64()
		if err != nil {
			return policy, formatCUEError(err)
		}
		policy.PolymorphicBound = int(bound)
	}

	prepVal := v.LookupPath(cue.ParsePath("require_preparation"))
	if prepVal.Exists() {
		prep, err := prepVal.Bool()
		if err != nil {
			return policy, formatCUEError(err)
		}
		policy.RequirePreparation = prep
	}

	if err := policy.Validate(); err != nil {
		return policy, &CompileError{
			Field:   "policy.polymorphic_bound",
			Message: err.Error(),
			Pos:     boundVal.Pos(),
		}
	}
	return policy, nil
}

// CompileEngineConstraint reads the optional engine field and checks it
// against ir.EngineVersion.
func CompileEngineConstraint(v cue.Value) (string, error) {
	if !v.Exists() {
		return "", nil
	}
	constraint, err := v.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if err := CheckEngineVersion(constraint); err != nil {
		return constraint, &CompileError{
			Field:   "engine",
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return constraint, nil
}

// CompileSpecs compiles a built specs value: every field under function,
// the policy block, and the engine constraint. Functions come back in
// source order.
func CompileSpecs(v cue.Value) (*Specs, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	specs := &Specs{}
	var err error

	specs.Engine, err = CompileEngineConstraint(v.LookupPath(cue.ParsePath("engine")))
	if err != nil {
		return nil, err
	}

	specs.Policy, err = CompilePolicy(v.LookupPath(cue.ParsePath("policy")))
	if err != nil {
		return nil, err
	}

	fnsVal := v.LookupPath(cue.ParsePath("function"))
	if !fnsVal.Exists() {
		return specs, nil
	}
	iter, err := fnsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		fn, err := CompileFunction(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("function.%s: %w", iter.Label(), err)
		}
		specs.Functions = append(specs.Functions, *fn)
	}
	return specs, nil
}

// Specs is the compiled content of a specs directory.
type Specs struct {
	Engine    string            `json:"engine,omitempty"`
	Policy    ir.Policy         `json:"policy"`
	Functions []ir.FunctionSpec `json:"functions"`
}
