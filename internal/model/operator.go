package model

import "fmt"

// OperatorKind represents the category of a mutation operator.
type OperatorKind int

// Available operator kinds, in canonical order.
const (
	// OpInsertBefore inserts the donor statement before the target.
	OpInsertBefore OperatorKind = iota
	// OpInsertAfter inserts the donor statement after the target.
	OpInsertAfter
	// OpReplace replaces the target statement with the donor.
	OpReplace
	// OpDelete removes the target statement.
	OpDelete
)

// String returns the human-readable name of the operator kind.
func (k OperatorKind) String() string {
	switch k {
	case OpInsertBefore:
		return "insert-before"
	case OpInsertAfter:
		return "insert-after"
	case OpReplace:
		return "replace"
	case OpDelete:
		return "delete"
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// NoDonor marks operators that carry no donor statement (Delete).
const NoDonor StatementID = -1

// Operator is a pure description of one edit against the baseline: a kind, a
// target statement and, for all kinds but Delete, a donor statement. The
// donor always differs from the target.
type Operator struct {
	Kind   OperatorKind
	Target StatementID
	Donor  StatementID
}

// HasDonor reports whether the operator carries a donor statement.
func (o Operator) HasDonor() bool {
	return o.Kind != OpDelete
}

// String returns a compact textual form used in signatures and logs.
func (o Operator) String() string {
	if !o.HasDonor() {
		return fmt.Sprintf("%s(%d)", o.Kind, o.Target)
	}

	return fmt.Sprintf("%s(%d<-%d)", o.Kind, o.Target, o.Donor)
}

// Less orders operators canonically by (target, kind, donor).
func (o Operator) Less(other Operator) bool {
	if o.Target != other.Target {
		return o.Target < other.Target
	}

	if o.Kind != other.Kind {
		return o.Kind < other.Kind
	}

	return o.Donor < other.Donor
}
