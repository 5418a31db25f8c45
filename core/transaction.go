package core

import (
	"fmt"
	"sort"

	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/id"
	"gopkg.in/yaml.v3"
)

// OpKind identifies the kind of a transaction operation. The numeric values
// are part of the wire format.
type OpKind uint8

const (
	OpAddVariable      OpKind = 1
	OpRemoveVariable   OpKind = 2
	OpAddConstraint    OpKind = 3
	OpRemoveConstraint OpKind = 4
)

func (k OpKind) String() string {
	switch k {
	case OpAddVariable:
		return "add_variable"
	case OpRemoveVariable:
		return "remove_variable"
	case OpAddConstraint:
		return "add_constraint"
	case OpRemoveConstraint:
		return "remove_constraint"
	default:
		return fmt.Sprintf("op_kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the defined kinds.
func (k OpKind) Valid() bool {
	return k >= OpAddVariable && k <= OpRemoveConstraint
}

// IsAdd reports whether k carries an element.
func (k OpKind) IsAdd() bool {
	return k == OpAddVariable || k == OpAddConstraint
}

// Operation is one entry of a Transaction. Add operations carry the element;
// remove operations carry only the identifier.
type Operation struct {
	Kind       OpKind
	ID         id.ID
	Variable   Variable
	Constraint Constraint
}

// Element returns the carried element, or nil for removals.
func (o Operation) Element() Element {
	switch o.Kind {
	case OpAddVariable:
		if o.Variable != nil {
			return o.Variable
		}
	case OpAddConstraint:
		if o.Constraint != nil {
			return o.Constraint
		}
	}
	return nil
}

// TypeName returns the type name of the carried element, or "" for removals.
func (o Operation) TypeName() string {
	if e := o.Element(); e != nil {
		return e.Type()
	}
	return ""
}

// Transaction is an ordered batch of add and remove operations over variables
// and constraints. It is the unit of serialization and of atomic application
// to a graph.
//
// A Transaction is built by a single goroutine. Once handed to the codec or
// the graph it must not be modified.
type Transaction struct {
	stamp    Time
	involved []Time
	ops      []Operation
}

// NewTransaction creates an empty transaction created at stamp.
func NewTransaction(stamp Time) *Transaction {
	return &Transaction{stamp: stamp}
}

// Stamp returns the transaction's creation stamp.
func (t *Transaction) Stamp() Time {
	return t.stamp
}

// AddInvolvedStamp records a timestamp touched by this transaction.
// Duplicates are ignored.
func (t *Transaction) AddInvolvedStamp(s Time) {
	i := sort.Search(len(t.involved), func(i int) bool { return t.involved[i] >= s })
	if i < len(t.involved) && t.involved[i] == s {
		return
	}
	t.involved = append(t.involved, 0)
	copy(t.involved[i+1:], t.involved[i:])
	t.involved[i] = s
}

// InvolvedStamps returns the involved stamps in ascending order.
func (t *Transaction) InvolvedStamps() []Time {
	out := make([]Time, len(t.involved))
	copy(out, t.involved)
	return out
}

// MinStamp returns the smallest of the creation stamp and the involved
// stamps. Consumers use it to bound history truncation.
func (t *Transaction) MinStamp() Time {
	if len(t.involved) == 0 || t.stamp < t.involved[0] {
		return t.stamp
	}
	return t.involved[0]
}

// MaxStamp returns the largest of the creation stamp and the involved stamps.
func (t *Transaction) MaxStamp() Time {
	if n := len(t.involved); n > 0 && t.involved[n-1] > t.stamp {
		return t.involved[n-1]
	}
	return t.stamp
}

// AddVariable appends an add-variable operation.
func (t *Transaction) AddVariable(v Variable) error {
	if v == nil {
		return fuseerr.InvalidArgument("Transaction.AddVariable", "nil variable")
	}
	if v.Size() < 1 {
		return fuseerr.InvalidArgument("Transaction.AddVariable", "variable %s has size %d", v.ID(), v.Size())
	}
	t.ops = append(t.ops, Operation{Kind: OpAddVariable, ID: v.ID(), Variable: v})
	return nil
}

// RemoveVariable appends a remove-variable operation.
func (t *Transaction) RemoveVariable(variableID id.ID) {
	t.ops = append(t.ops, Operation{Kind: OpRemoveVariable, ID: variableID})
}

// AddConstraint appends an add-constraint operation.
func (t *Transaction) AddConstraint(c Constraint) error {
	if c == nil {
		return fuseerr.InvalidArgument("Transaction.AddConstraint", "nil constraint")
	}
	if len(c.Variables()) == 0 {
		return fuseerr.InvalidArgument("Transaction.AddConstraint", "constraint %s references no variables", c.ID())
	}
	t.ops = append(t.ops, Operation{Kind: OpAddConstraint, ID: c.ID(), Constraint: c})
	return nil
}

// RemoveConstraint appends a remove-constraint operation.
func (t *Transaction) RemoveConstraint(constraintID id.ID) {
	t.ops = append(t.ops, Operation{Kind: OpRemoveConstraint, ID: constraintID})
}

// Operations returns the operations in order.
func (t *Transaction) Operations() []Operation {
	out := make([]Operation, len(t.ops))
	copy(out, t.ops)
	return out
}

// Len returns the number of operations.
func (t *Transaction) Len() int {
	return len(t.ops)
}

// Empty reports whether the transaction has no operations and no involved
// stamps.
func (t *Transaction) Empty() bool {
	return len(t.ops) == 0 && len(t.involved) == 0
}

// AddedVariables returns the variables of add-variable operations, in order.
func (t *Transaction) AddedVariables() []Variable {
	var out []Variable
	for _, op := range t.ops {
		if op.Kind == OpAddVariable {
			out = append(out, op.Variable)
		}
	}
	return out
}

// RemovedVariables returns the identifiers of remove-variable operations.
func (t *Transaction) RemovedVariables() []id.ID {
	return t.idsOf(OpRemoveVariable)
}

// AddedConstraints returns the constraints of add-constraint operations.
func (t *Transaction) AddedConstraints() []Constraint {
	var out []Constraint
	for _, op := range t.ops {
		if op.Kind == OpAddConstraint {
			out = append(out, op.Constraint)
		}
	}
	return out
}

// RemovedConstraints returns the identifiers of remove-constraint operations.
func (t *Transaction) RemovedConstraints() []id.ID {
	return t.idsOf(OpRemoveConstraint)
}

func (t *Transaction) idsOf(kind OpKind) []id.ID {
	var out []id.ID
	for _, op := range t.ops {
		if op.Kind == kind {
			out = append(out, op.ID)
		}
	}
	return out
}

// Merge appends other's operations after t's, unions the involved stamps and
// keeps the later creation stamp. other is not modified.
func (t *Transaction) Merge(other *Transaction) {
	if other == nil {
		return
	}
	if other.stamp > t.stamp {
		t.stamp = other.stamp
	}
	for _, s := range other.involved {
		t.AddInvolvedStamp(s)
	}
	t.ops = append(t.ops, other.ops...)
}

type transactionDoc struct {
	Stamp          string         `yaml:"stamp"`
	MinStamp       string         `yaml:"min_stamp"`
	InvolvedStamps []string       `yaml:"involved_stamps,omitempty"`
	Operations     []operationDoc `yaml:"operations"`
}

type operationDoc struct {
	Kind string `yaml:"kind"`
	ID   string `yaml:"id"`
	Type string `yaml:"type,omitempty"`
}

// Describe returns a YAML summary of the transaction.
func (t *Transaction) Describe() string {
	doc := transactionDoc{
		Stamp:      t.stamp.String(),
		MinStamp:   t.MinStamp().String(),
		Operations: make([]operationDoc, 0, len(t.ops)),
	}
	for _, s := range t.involved {
		doc.InvolvedStamps = append(doc.InvolvedStamps, s.String())
	}
	for _, op := range t.ops {
		doc.Operations = append(doc.Operations, operationDoc{
			Kind: op.Kind.String(),
			ID:   op.ID.String(),
			Type: op.TypeName(),
		})
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Sprintf("transaction: <%v>", err)
	}
	return string(out)
}
