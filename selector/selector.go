// Package selector filters transaction operations with CEL predicates.
//
// An expression sees one operation at a time through these variables:
//
//	kind       string        "add_variable", "remove_variable", "add_constraint" or "remove_constraint"
//	type_name  string        registered type name; "" for removals
//	id         string        canonical identifier of the element
//	variables  list(string)  constrained variable identifiers; empty unless adding a constraint
//
// For example, `kind == "add_constraint" && type_name == "PriorConstraint"`.
package selector

import (
	"github.com/google/cel-go/cel"
	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/fuseerr"
)

// Selector is a compiled predicate. It is safe for concurrent use.
type Selector struct {
	expr    string
	program cel.Program
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("type_name", cel.StringType),
		cel.Variable("id", cel.StringType),
		cel.Variable("variables", cel.ListType(cel.StringType)),
	)
}

// Compile parses and type-checks expr, which must evaluate to a bool.
func Compile(expr string) (*Selector, error) {
	const op = "selector.Compile"
	env, err := newEnv()
	if err != nil {
		return nil, fuseerr.Configuration(op, err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fuseerr.InvalidArgument(op, "compile %q: %v", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fuseerr.InvalidArgument(op, "expression %q yields %s, expected bool", expr, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fuseerr.InvalidArgument(op, "program %q: %v", expr, err)
	}
	return &Selector{expr: expr, program: program}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Selector {
	s, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the source expression.
func (s *Selector) String() string {
	return s.expr
}

// Match reports whether o satisfies the predicate.
func (s *Selector) Match(o core.Operation) (bool, error) {
	out, _, err := s.program.Eval(activation(o))
	if err != nil {
		return false, fuseerr.InvalidArgument("Selector.Match", "evaluate %q: %v", s.expr, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fuseerr.InvalidArgument("Selector.Match", "expression %q produced %T", s.expr, out.Value())
	}
	return matched, nil
}

// Filter returns the operations of tx that satisfy the predicate, in order.
func (s *Selector) Filter(tx *core.Transaction) ([]core.Operation, error) {
	var out []core.Operation
	for _, o := range tx.Operations() {
		ok, err := s.Match(o)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// Apply returns a new transaction with the stamps of tx and only the
// operations that satisfy the predicate.
func (s *Selector) Apply(tx *core.Transaction) (*core.Transaction, error) {
	ops, err := s.Filter(tx)
	if err != nil {
		return nil, err
	}
	out := core.NewTransaction(tx.Stamp())
	for _, stamp := range tx.InvolvedStamps() {
		out.AddInvolvedStamp(stamp)
	}
	for _, o := range ops {
		switch o.Kind {
		case core.OpAddVariable:
			err = out.AddVariable(o.Variable)
		case core.OpRemoveVariable:
			out.RemoveVariable(o.ID)
		case core.OpAddConstraint:
			err = out.AddConstraint(o.Constraint)
		case core.OpRemoveConstraint:
			out.RemoveConstraint(o.ID)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func activation(o core.Operation) map[string]any {
	vars := []string{}
	if o.Kind == core.OpAddConstraint && o.Constraint != nil {
		for _, v := range o.Constraint.Variables() {
			vars = append(vars, v.String())
		}
	}
	return map[string]any{
		"kind":      o.Kind.String(),
		"type_name": o.TypeName(),
		"id":        o.ID.String(),
		"variables": vars,
	}
}
