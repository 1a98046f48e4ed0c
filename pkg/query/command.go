// Package query holds the engine's resolved command tree: the form a
// planned source query takes before it is translated into the language
// object model handed to a connector.
//
// Symbols carry metadata identifiers when the resolver found them; the
// translator fills any that are missing from a catalog.
package query

import (
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/metadata"
)

// Command is a resolved command.
type Command interface {
	command()
}

// QueryCommand is a command producing rows: a Query or a SetQuery.
type QueryCommand interface {
	Command
	queryCommand()
}

// Query is a single query block.
type Query struct {
	Distinct bool
	Select   []Expression
	From     []FromClause
	Where    Criteria
	GroupBy  []Expression
	Rollup   bool
	Having   Criteria
	OrderBy  *OrderBy
	Limit    *Limit

	DependentValues map[string][][]any
}

func (*Query) command()      {}
func (*Query) queryCommand() {}

// SetQuery combines two query commands. Operation is UNION, INTERSECT or
// EXCEPT.
type SetQuery struct {
	Operation string
	All       bool
	Left      QueryCommand
	Right     QueryCommand
	OrderBy   *OrderBy
	Limit     *Limit
}

func (*SetQuery) command()      {}
func (*SetQuery) queryCommand() {}

// OrderBy lists sort items.
type OrderBy struct {
	Items []OrderByItem
}

// OrderByItem is one sort key. NullOrdering is "", "FIRST" or "LAST".
type OrderByItem struct {
	Expression   Expression
	Descending   bool
	NullOrdering string
}

// Limit is an offset and a row limit.
type Limit struct {
	Offset   int
	RowLimit int
}

// Insert adds rows to a group. Either Values or Query is set. When Values
// holds References, ParameterValues supplies the rows.
type Insert struct {
	Group           *GroupSymbol
	Variables       []*ElementSymbol
	Values          []Expression
	Query           QueryCommand
	Upsert          bool
	ParameterValues [][]any
}

func (*Insert) command() {}

// SetClause assigns a value to a column.
type SetClause struct {
	Symbol *ElementSymbol
	Value  Expression
}

// Update changes rows of a group.
type Update struct {
	Group           *GroupSymbol
	Changes         []SetClause
	Criteria        Criteria
	ParameterValues [][]any
}

func (*Update) command() {}

// Delete removes rows of a group.
type Delete struct {
	Group           *GroupSymbol
	Criteria        Criteria
	ParameterValues [][]any
}

func (*Delete) command() {}

// BatchedUpdate is a list of update commands.
type BatchedUpdate struct {
	Commands     []Command
	SingleResult bool
}

func (*BatchedUpdate) command() {}

// StoredProcedure executes a procedure.
type StoredProcedure struct {
	ProcedureName string
	Metadata      *metadata.Procedure
	Parameters    []*SPParameter
}

func (*StoredProcedure) command() {}

// SPParameter is a procedure parameter with its input expression. The
// return value may be listed with Direction DirectionReturn.
type SPParameter struct {
	Name       string
	Direction  metadata.Direction
	Expression Expression
	Metadata   *metadata.ProcedureParameter
	Type       datatype.Type
}

// FromClause is an item of a FROM clause.
type FromClause interface {
	fromClause()
}

// UnaryFromClause is a single group.
type UnaryFromClause struct {
	Group *GroupSymbol
}

func (*UnaryFromClause) fromClause() {}

// JoinPredicate joins two clauses. JoinType is INNER, LEFT OUTER, RIGHT
// OUTER, FULL OUTER or CROSS; Criteria are ANDed.
type JoinPredicate struct {
	Left     FromClause
	Right    FromClause
	JoinType string
	Criteria []Criteria
}

func (*JoinPredicate) fromClause() {}

// SubqueryFromClause is an inline view.
type SubqueryFromClause struct {
	Name    string
	Command QueryCommand
}

func (*SubqueryFromClause) fromClause() {}
