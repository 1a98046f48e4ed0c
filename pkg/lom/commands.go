package lom

import (
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/metadata"
)

// NamedTable is a catalog table in a FROM clause or DML target.
type NamedTable struct {
	Name     string
	Alias    string
	Metadata *metadata.Table
}

// NewNamedTable creates a table reference, naming it from metadata when no
// name is given.
func NewNamedTable(name, alias string, table *metadata.Table) *NamedTable {
	if name == "" && table != nil {
		name = table.Name
	}
	return &NamedTable{Name: name, Alias: alias, Metadata: table}
}

func (t *NamedTable) Accept(v Visitor) { v.VisitNamedTable(t) }
func (*NamedTable) tableReference()    {}

// Join is left JOIN right ON condition.
type Join struct {
	Left      TableReference
	Right     TableReference
	JoinType  JoinType
	Condition Condition
}

func (j *Join) Accept(v Visitor) { v.VisitJoin(j) }
func (*Join) tableReference()    {}

// DerivedTable is an aliased subquery in a FROM clause.
type DerivedTable struct {
	Query QueryExpression
	Alias string
}

func (d *DerivedTable) Accept(v Visitor) { v.VisitDerivedTable(d) }
func (*DerivedTable) tableReference()    {}

// SortSpecification is one ORDER BY item.
type SortSpecification struct {
	Expression   Expression
	Ordering     Ordering
	NullOrdering NullOrdering
}

func (s *SortSpecification) Accept(v Visitor) { v.VisitSortSpecification(s) }

// OrderBy is an ORDER BY clause.
type OrderBy struct {
	Items []*SortSpecification
}

func (o *OrderBy) Accept(v Visitor) { v.VisitOrderBy(o) }

// GroupBy is a GROUP BY clause.
type GroupBy struct {
	Elements []Expression
	Rollup   bool
}

func (g *GroupBy) Accept(v Visitor) { v.VisitGroupBy(g) }

// Limit restricts the number of rows returned.
type Limit struct {
	Offset   int
	RowLimit int
}

func (l *Limit) Accept(v Visitor) { v.VisitLimit(l) }

// Select is a single query block.
type Select struct {
	Distinct       bool
	DerivedColumns []*DerivedColumn
	From           []TableReference
	Where          Condition
	GroupBy        *GroupBy
	Having         Condition
	OrderBy        *OrderBy
	Limit          *Limit

	// DependentValues holds row sets for dependent join parameters, keyed by
	// Parameter.DependentValueID.
	DependentValues map[string][][]any
}

func (s *Select) Accept(v Visitor)        { v.VisitSelect(s) }
func (s *Select) ProjectedQuery() *Select { return s }

// ColumnTypes returns the type of each projected column.
func (s *Select) ColumnTypes() []datatype.Type {
	types := make([]datatype.Type, len(s.DerivedColumns))
	for i, dc := range s.DerivedColumns {
		types[i] = dc.Expression.Type()
	}
	return types
}

func (*Select) command()           {}
func (*Select) insertValueSource() {}

// SetQuery combines two query expressions.
type SetQuery struct {
	Operation SetOperation
	All       bool
	Left      QueryExpression
	Right     QueryExpression
	OrderBy   *OrderBy
	Limit     *Limit
}

func (s *SetQuery) Accept(v Visitor) { v.VisitSetQuery(s) }

// ProjectedQuery returns the leftmost Select.
func (s *SetQuery) ProjectedQuery() *Select { return s.Left.ProjectedQuery() }

// ColumnTypes returns the projected column types of the left branch.
func (s *SetQuery) ColumnTypes() []datatype.Type { return s.Left.ColumnTypes() }

func (*SetQuery) command()           {}
func (*SetQuery) insertValueSource() {}

// ExpressionValueSource is a VALUES row.
type ExpressionValueSource struct {
	Values []Expression
}

func (e *ExpressionValueSource) Accept(v Visitor) { v.VisitExpressionValueSource(e) }
func (*ExpressionValueSource) insertValueSource() {}

// Insert is INSERT INTO table (columns) values. When Values contains
// Parameter nodes, ParameterValues supplies one row of values per execution.
type Insert struct {
	Table           *NamedTable
	Columns         []*ColumnReference
	ValueSource     InsertValueSource
	Upsert          bool
	ParameterValues [][]any
}

func (i *Insert) Accept(v Visitor) { v.VisitInsert(i) }
func (*Insert) command()           {}

// SetClause is one column = value assignment of an Update.
type SetClause struct {
	Column *ColumnReference
	Value  Expression
}

func (s *SetClause) Accept(v Visitor) { v.VisitSetClause(s) }

// Update is UPDATE table SET ... WHERE ...
type Update struct {
	Table           *NamedTable
	Changes         []*SetClause
	Where           Condition
	ParameterValues [][]any
}

func (u *Update) Accept(v Visitor) { v.VisitUpdate(u) }
func (*Update) command()           {}

// Delete is DELETE FROM table WHERE ...
type Delete struct {
	Table           *NamedTable
	Where           Condition
	ParameterValues [][]any
}

func (d *Delete) Accept(v Visitor) { v.VisitDelete(d) }
func (*Delete) command()           {}

// BatchedUpdates is a list of update commands executed together.
type BatchedUpdates struct {
	Updates      []Command
	SingleResult bool
}

func (b *BatchedUpdates) Accept(v Visitor) { v.VisitBatchedUpdates(b) }
func (*BatchedUpdates) command()           {}

// Argument is a procedure call argument. Expression is nil for OUT
// parameters.
type Argument struct {
	Direction  metadata.Direction
	Expression Expression
	Metadata   *metadata.ProcedureParameter
	DataType   datatype.Type
}

func (a *Argument) Accept(v Visitor) { v.VisitArgument(a) }

// Call executes a stored procedure. ReturnType is empty when the procedure
// declares no return value.
type Call struct {
	Name       string
	Arguments  []*Argument
	Metadata   *metadata.Procedure
	ReturnType datatype.Type
}

func (c *Call) Accept(v Visitor) { v.VisitCall(c) }
func (*Call) command()           {}

// ResultSetColumnTypes returns the declared result-set column types.
func (c *Call) ResultSetColumnTypes() []datatype.Type {
	if c.Metadata == nil {
		return nil
	}
	types := make([]datatype.Type, len(c.Metadata.ResultSet))
	for i, col := range c.Metadata.ResultSet {
		types[i] = col.Type
	}
	return types
}

// IsQuery reports whether cmd is a read-only query expression.
func IsQuery(cmd Command) bool {
	_, ok := cmd.(QueryExpression)
	return ok
}
