package lom

import (
	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/metadata"
)

// Literal is a constant value. A bindable literal is rendered as a bind
// parameter by connectors that support them.
type Literal struct {
	Value       any
	DataType    datatype.Type
	Bindable    bool
	Multivalued bool
}

// NewLiteral creates a literal of the given type.
func NewLiteral(value any, typ datatype.Type) *Literal {
	return &Literal{Value: value, DataType: typ}
}

func (l *Literal) Accept(v Visitor)    { v.VisitLiteral(l) }
func (l *Literal) Type() datatype.Type { return l.DataType }
func (*Literal) expression()           {}

// ColumnReference refers to a column of a FROM clause table. Metadata is nil
// for columns of derived tables.
type ColumnReference struct {
	Table    *NamedTable
	Name     string
	Metadata *metadata.Column
	DataType datatype.Type
}

// NewColumnReference creates a column reference, taking its name and type
// from metadata when present.
func NewColumnReference(table *NamedTable, name string, col *metadata.Column, typ datatype.Type) *ColumnReference {
	if col != nil {
		if name == "" {
			name = col.Name
		}
		if typ == "" {
			typ = col.Type
		}
	}
	return &ColumnReference{Table: table, Name: name, Metadata: col, DataType: typ}
}

func (c *ColumnReference) Accept(v Visitor)    { v.VisitColumnReference(c) }
func (c *ColumnReference) Type() datatype.Type { return c.DataType }
func (*ColumnReference) expression()           {}

// Function is a scalar function call. Operators such as + and || are
// functions named by their symbol.
type Function struct {
	Name       string
	Parameters []Expression
	DataType   datatype.Type
}

func (f *Function) Accept(v Visitor)    { v.VisitFunction(f) }
func (f *Function) Type() datatype.Type { return f.DataType }
func (*Function) expression()           {}

// AggregateFunction is an aggregate call. No parameters means COUNT(*).
type AggregateFunction struct {
	Name       string
	Distinct   bool
	Parameters []Expression
	Filter     Condition
	OrderBy    *OrderBy
	DataType   datatype.Type
}

func (a *AggregateFunction) Accept(v Visitor)    { v.VisitAggregateFunction(a) }
func (a *AggregateFunction) Type() datatype.Type { return a.DataType }
func (*AggregateFunction) expression()           {}

// Array is an array constructor or a multi-column value.
type Array struct {
	ComponentType datatype.Type
	Expressions   []Expression
}

func (a *Array) Accept(v Visitor)    { v.VisitArray(a) }
func (a *Array) Type() datatype.Type { return datatype.ArrayOf(a.ComponentType) }
func (*Array) expression()           {}

// SearchedWhenClause is one WHEN ... THEN ... arm.
type SearchedWhenClause struct {
	Condition Condition
	Result    Expression
}

func (w *SearchedWhenClause) Accept(v Visitor) { v.VisitSearchedWhenClause(w) }

// SearchedCase is CASE WHEN ... END.
type SearchedCase struct {
	Cases    []*SearchedWhenClause
	Else     Expression
	DataType datatype.Type
}

func (c *SearchedCase) Accept(v Visitor)    { v.VisitSearchedCase(c) }
func (c *SearchedCase) Type() datatype.Type { return c.DataType }
func (*SearchedCase) expression()           {}

// ScalarSubquery is a subquery producing a single value.
type ScalarSubquery struct {
	Subquery QueryExpression
}

func (s *ScalarSubquery) Accept(v Visitor) { v.VisitScalarSubquery(s) }

// Type returns the type of the single projected column.
func (s *ScalarSubquery) Type() datatype.Type {
	types := s.Subquery.ColumnTypes()
	if len(types) == 0 {
		return datatype.Null
	}
	return types[0]
}

func (*ScalarSubquery) expression() {}

// WindowSpecification is the OVER clause of a window function.
type WindowSpecification struct {
	PartitionBy []Expression
	OrderBy     *OrderBy
}

func (w *WindowSpecification) Accept(v Visitor) { v.VisitWindowSpecification(w) }

// WindowFunction is an aggregate evaluated over a window.
type WindowFunction struct {
	Function *AggregateFunction
	Window   *WindowSpecification
}

func (w *WindowFunction) Accept(v Visitor)    { v.VisitWindowFunction(w) }
func (w *WindowFunction) Type() datatype.Type { return w.Function.Type() }
func (*WindowFunction) expression()           {}

// Parameter is a bind position filled from a command's parameter values.
// ValueIndex selects the column of each parameter row.
type Parameter struct {
	ValueIndex       int
	DataType         datatype.Type
	DependentValueID string
}

func (p *Parameter) Accept(v Visitor)    { v.VisitParameter(p) }
func (p *Parameter) Type() datatype.Type { return p.DataType }
func (*Parameter) expression()           {}

// DerivedColumn is a projected SELECT item.
type DerivedColumn struct {
	Alias      string
	Expression Expression
}

func (d *DerivedColumn) Accept(v Visitor) { v.VisitDerivedColumn(d) }
