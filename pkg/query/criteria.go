package query

// Criteria is a resolved boolean condition.
type Criteria interface {
	criteria()
}

// CompareCriteria is left op right; Operator is one of = <> != < <= > >=.
type CompareCriteria struct {
	Left     Expression
	Operator string
	Right    Expression
}

func (*CompareCriteria) criteria() {}

// CompoundCriteria joins any number of criteria with AND or OR.
type CompoundCriteria struct {
	Operator string
	Criteria []Criteria
}

func (*CompoundCriteria) criteria() {}

// NewAnd joins criteria with AND.
func NewAnd(crits ...Criteria) *CompoundCriteria {
	return &CompoundCriteria{Operator: "AND", Criteria: crits}
}

// NewOr joins criteria with OR.
func NewOr(crits ...Criteria) *CompoundCriteria {
	return &CompoundCriteria{Operator: "OR", Criteria: crits}
}

// MatchCriteria is a pattern match. Mode is "", "SIMILAR" or "REGEX".
type MatchCriteria struct {
	Left    Expression
	Right   Expression
	Escape  rune
	Negated bool
	Mode    string
}

func (*MatchCriteria) criteria() {}

// SetCriteria is expression [NOT] IN (values).
type SetCriteria struct {
	Expression Expression
	Values     []Expression
	Negated    bool
}

func (*SetCriteria) criteria() {}

// IsNullCriteria is expression IS [NOT] NULL.
type IsNullCriteria struct {
	Expression Expression
	Negated    bool
}

func (*IsNullCriteria) criteria() {}

// IsDistinctCriteria is left IS [NOT] DISTINCT FROM right.
type IsDistinctCriteria struct {
	Left    Expression
	Right   Expression
	Negated bool
}

func (*IsDistinctCriteria) criteria() {}

// BetweenCriteria is expression [NOT] BETWEEN lower AND upper.
type BetweenCriteria struct {
	Expression Expression
	Lower      Expression
	Upper      Expression
	Negated    bool
}

func (*BetweenCriteria) criteria() {}

// SubqueryCompareCriteria is left op quantifier (subquery). Quantifier is
// SOME, ANY or ALL.
type SubqueryCompareCriteria struct {
	Left       Expression
	Operator   string
	Quantifier string
	Command    QueryCommand
}

func (*SubqueryCompareCriteria) criteria() {}

// SubquerySetCriteria is expression [NOT] IN (subquery).
type SubquerySetCriteria struct {
	Expression Expression
	Command    QueryCommand
	Negated    bool
}

func (*SubquerySetCriteria) criteria() {}

// ExistsCriteria is [NOT] EXISTS (subquery).
type ExistsCriteria struct {
	Command QueryCommand
	Negated bool
}

func (*ExistsCriteria) criteria() {}

// NotCriteria negates a criteria.
type NotCriteria struct {
	Criteria Criteria
}

func (*NotCriteria) criteria() {}
