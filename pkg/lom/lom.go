// Package lom is the language object model handed to connectors: a
// vendor-neutral tree of commands, expressions, and conditions with metadata
// references back to the catalog.
//
// Node kinds form closed sets. Every node implements Accept, and Visitor has
// one method per kind, so adding a kind fails to compile until every visitor
// handles it.
package lom

import (
	"github.com/txn2/fedquery/pkg/datatype"
)

// Node is any element of the language object model.
type Node interface {
	Accept(v Visitor)
}

// Expression is a typed value-producing node.
type Expression interface {
	Node
	Type() datatype.Type
	expression()
}

// Condition is a boolean expression.
type Condition interface {
	Expression
	condition()
}

// Command is the root of one execution request.
type Command interface {
	Node
	command()
}

// QueryExpression is a command that produces rows: a Select or a SetQuery.
type QueryExpression interface {
	Command
	InsertValueSource
	// ProjectedQuery returns the Select whose columns define the output.
	ProjectedQuery() *Select
	// ColumnTypes returns the output column types.
	ColumnTypes() []datatype.Type
}

// TableReference is a FROM clause item.
type TableReference interface {
	Node
	tableReference()
}

// InsertValueSource supplies rows to an Insert.
type InsertValueSource interface {
	Node
	insertValueSource()
}

// ComparisonOperator is a binary comparison operator.
type ComparisonOperator int

// Comparison operators.
const (
	EQ ComparisonOperator = iota
	NE
	LT
	LE
	GT
	GE
)

func (o ComparisonOperator) String() string {
	switch o {
	case NE:
		return "<>"
	case LT:
		return "<"
	case LE:
		return "<="
	case GT:
		return ">"
	case GE:
		return ">="
	default:
		return "="
	}
}

// AndOrOperator joins two conditions.
type AndOrOperator int

// Logical operators.
const (
	And AndOrOperator = iota
	Or
)

func (o AndOrOperator) String() string {
	if o == Or {
		return "OR"
	}
	return "AND"
}

// MatchMode selects the pattern language of a Like.
type MatchMode int

// Match modes.
const (
	MatchLike MatchMode = iota
	MatchSimilar
	MatchRegex
)

// Quantifier qualifies a subquery comparison.
type Quantifier int

// Quantifiers.
const (
	Some Quantifier = iota
	All
)

func (q Quantifier) String() string {
	if q == All {
		return "ALL"
	}
	return "SOME"
}

// JoinType is the kind of a Join.
type JoinType int

// Join types.
const (
	InnerJoin JoinType = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
	CrossJoin
)

func (j JoinType) String() string {
	switch j {
	case LeftOuterJoin:
		return "LEFT OUTER JOIN"
	case RightOuterJoin:
		return "RIGHT OUTER JOIN"
	case FullOuterJoin:
		return "FULL OUTER JOIN"
	case CrossJoin:
		return "CROSS JOIN"
	default:
		return "INNER JOIN"
	}
}

// SetOperation combines two query expressions.
type SetOperation int

// Set operations.
const (
	Union SetOperation = iota
	Intersect
	Except
)

func (s SetOperation) String() string {
	switch s {
	case Intersect:
		return "INTERSECT"
	case Except:
		return "EXCEPT"
	default:
		return "UNION"
	}
}

// Ordering is a sort direction.
type Ordering int

// Sort directions.
const (
	Ascending Ordering = iota
	Descending
)

// NullOrdering places nulls in a sort.
type NullOrdering int

// Null orderings.
const (
	NullsDefault NullOrdering = iota
	NullsFirst
	NullsLast
)
