package lom

import "github.com/txn2/fedquery/pkg/datatype"

// Comparison is left op right.
type Comparison struct {
	Left     Expression
	Operator ComparisonOperator
	Right    Expression
}

// NewComparison creates a comparison.
func NewComparison(left Expression, op ComparisonOperator, right Expression) *Comparison {
	return &Comparison{Left: left, Operator: op, Right: right}
}

func (c *Comparison) Accept(v Visitor)  { v.VisitComparison(c) }
func (*Comparison) Type() datatype.Type { return datatype.Boolean }
func (*Comparison) expression()         {}
func (*Comparison) condition()          {}

// AndOr joins two conditions with AND or OR.
type AndOr struct {
	Left     Condition
	Operator AndOrOperator
	Right    Condition
}

// NewAndOr creates an AND or OR condition.
func NewAndOr(left Condition, op AndOrOperator, right Condition) *AndOr {
	return &AndOr{Left: left, Operator: op, Right: right}
}

func (a *AndOr) Accept(v Visitor)  { v.VisitAndOr(a) }
func (*AndOr) Type() datatype.Type { return datatype.Boolean }
func (*AndOr) expression()         {}
func (*AndOr) condition()          {}

// Like is a pattern match. Escape is zero when no escape character is set.
type Like struct {
	Left    Expression
	Pattern Expression
	Escape  rune
	Negated bool
	Mode    MatchMode
}

func (l *Like) Accept(v Visitor)  { v.VisitLike(l) }
func (*Like) Type() datatype.Type { return datatype.Boolean }
func (*Like) expression()         {}
func (*Like) condition()          {}

// In tests membership in a list of expressions.
type In struct {
	Left        Expression
	Expressions []Expression
	Negated     bool
}

func (i *In) Accept(v Visitor)  { v.VisitIn(i) }
func (*In) Type() datatype.Type { return datatype.Boolean }
func (*In) expression()         {}
func (*In) condition()          {}

// IsNull is expr IS [NOT] NULL.
type IsNull struct {
	Expression Expression
	Negated    bool
}

func (n *IsNull) Accept(v Visitor)  { v.VisitIsNull(n) }
func (*IsNull) Type() datatype.Type { return datatype.Boolean }
func (*IsNull) expression()         {}
func (*IsNull) condition()          {}

// IsDistinct is left IS [NOT] DISTINCT FROM right.
type IsDistinct struct {
	Left    Expression
	Right   Expression
	Negated bool
}

func (d *IsDistinct) Accept(v Visitor)  { v.VisitIsDistinct(d) }
func (*IsDistinct) Type() datatype.Type { return datatype.Boolean }
func (*IsDistinct) expression()         {}
func (*IsDistinct) condition()          {}

// SubqueryComparison is left op SOME|ALL (subquery).
type SubqueryComparison struct {
	Left       Expression
	Operator   ComparisonOperator
	Quantifier Quantifier
	Subquery   QueryExpression
}

func (s *SubqueryComparison) Accept(v Visitor)  { v.VisitSubqueryComparison(s) }
func (*SubqueryComparison) Type() datatype.Type { return datatype.Boolean }
func (*SubqueryComparison) expression()         {}
func (*SubqueryComparison) condition()          {}

// SubqueryIn is left [NOT] IN (subquery).
type SubqueryIn struct {
	Left     Expression
	Negated  bool
	Subquery QueryExpression
}

func (s *SubqueryIn) Accept(v Visitor)  { v.VisitSubqueryIn(s) }
func (*SubqueryIn) Type() datatype.Type { return datatype.Boolean }
func (*SubqueryIn) expression()         {}
func (*SubqueryIn) condition()          {}

// Exists is EXISTS (subquery).
type Exists struct {
	Subquery QueryExpression
}

func (e *Exists) Accept(v Visitor)  { v.VisitExists(e) }
func (*Exists) Type() datatype.Type { return datatype.Boolean }
func (*Exists) expression()         {}
func (*Exists) condition()          {}

// Not negates a condition.
type Not struct {
	Condition Condition
}

func (n *Not) Accept(v Visitor)  { v.VisitNot(n) }
func (*Not) Type() datatype.Type { return datatype.Boolean }
func (*Not) expression()         {}
func (*Not) condition()          {}
