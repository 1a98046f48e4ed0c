package lom

// Visitor has one method per node kind.
type Visitor interface {
	VisitLiteral(*Literal)
	VisitColumnReference(*ColumnReference)
	VisitFunction(*Function)
	VisitAggregateFunction(*AggregateFunction)
	VisitArray(*Array)
	VisitSearchedWhenClause(*SearchedWhenClause)
	VisitSearchedCase(*SearchedCase)
	VisitScalarSubquery(*ScalarSubquery)
	VisitWindowSpecification(*WindowSpecification)
	VisitWindowFunction(*WindowFunction)
	VisitParameter(*Parameter)
	VisitDerivedColumn(*DerivedColumn)

	VisitComparison(*Comparison)
	VisitAndOr(*AndOr)
	VisitLike(*Like)
	VisitIn(*In)
	VisitIsNull(*IsNull)
	VisitIsDistinct(*IsDistinct)
	VisitSubqueryComparison(*SubqueryComparison)
	VisitSubqueryIn(*SubqueryIn)
	VisitExists(*Exists)
	VisitNot(*Not)

	VisitNamedTable(*NamedTable)
	VisitJoin(*Join)
	VisitDerivedTable(*DerivedTable)
	VisitSortSpecification(*SortSpecification)
	VisitOrderBy(*OrderBy)
	VisitGroupBy(*GroupBy)
	VisitLimit(*Limit)
	VisitSelect(*Select)
	VisitSetQuery(*SetQuery)
	VisitExpressionValueSource(*ExpressionValueSource)
	VisitInsert(*Insert)
	VisitSetClause(*SetClause)
	VisitUpdate(*Update)
	VisitDelete(*Delete)
	VisitBatchedUpdates(*BatchedUpdates)
	VisitArgument(*Argument)
	VisitCall(*Call)
}

// BaseVisitor implements every Visitor method as a no-op. Embed it to
// handle only the kinds of interest.
type BaseVisitor struct{}

func (BaseVisitor) VisitLiteral(*Literal)                             {}
func (BaseVisitor) VisitColumnReference(*ColumnReference)             {}
func (BaseVisitor) VisitFunction(*Function)                           {}
func (BaseVisitor) VisitAggregateFunction(*AggregateFunction)         {}
func (BaseVisitor) VisitArray(*Array)                                 {}
func (BaseVisitor) VisitSearchedWhenClause(*SearchedWhenClause)       {}
func (BaseVisitor) VisitSearchedCase(*SearchedCase)                   {}
func (BaseVisitor) VisitScalarSubquery(*ScalarSubquery)               {}
func (BaseVisitor) VisitWindowSpecification(*WindowSpecification)     {}
func (BaseVisitor) VisitWindowFunction(*WindowFunction)               {}
func (BaseVisitor) VisitParameter(*Parameter)                         {}
func (BaseVisitor) VisitDerivedColumn(*DerivedColumn)                 {}
func (BaseVisitor) VisitComparison(*Comparison)                       {}
func (BaseVisitor) VisitAndOr(*AndOr)                                 {}
func (BaseVisitor) VisitLike(*Like)                                   {}
func (BaseVisitor) VisitIn(*In)                                       {}
func (BaseVisitor) VisitIsNull(*IsNull)                               {}
func (BaseVisitor) VisitIsDistinct(*IsDistinct)                       {}
func (BaseVisitor) VisitSubqueryComparison(*SubqueryComparison)       {}
func (BaseVisitor) VisitSubqueryIn(*SubqueryIn)                       {}
func (BaseVisitor) VisitExists(*Exists)                               {}
func (BaseVisitor) VisitNot(*Not)                                     {}
func (BaseVisitor) VisitNamedTable(*NamedTable)                       {}
func (BaseVisitor) VisitJoin(*Join)                                   {}
func (BaseVisitor) VisitDerivedTable(*DerivedTable)                   {}
func (BaseVisitor) VisitSortSpecification(*SortSpecification)         {}
func (BaseVisitor) VisitOrderBy(*OrderBy)                             {}
func (BaseVisitor) VisitGroupBy(*GroupBy)                             {}
func (BaseVisitor) VisitLimit(*Limit)                                 {}
func (BaseVisitor) VisitSelect(*Select)                               {}
func (BaseVisitor) VisitSetQuery(*SetQuery)                           {}
func (BaseVisitor) VisitExpressionValueSource(*ExpressionValueSource) {}
func (BaseVisitor) VisitInsert(*Insert)                               {}
func (BaseVisitor) VisitSetClause(*SetClause)                         {}
func (BaseVisitor) VisitUpdate(*Update)                               {}
func (BaseVisitor) VisitDelete(*Delete)                               {}
func (BaseVisitor) VisitBatchedUpdates(*BatchedUpdates)               {}
func (BaseVisitor) VisitArgument(*Argument)                           {}
func (BaseVisitor) VisitCall(*Call)                                   {}

// Walk visits root and every descendant in pre-order.
func Walk(v Visitor, root Node) {
	Inspect(root, func(n Node) bool {
		n.Accept(v)
		return true
	})
}

// Inspect traverses the tree in pre-order, calling fn for each node. When fn
// returns false the node's children are skipped.
func Inspect(root Node, fn func(Node) bool) {
	if root == nil || !fn(root) {
		return
	}
	for _, child := range Children(root) {
		Inspect(child, fn)
	}
}

// Collect returns every node of type T under root, including root.
func Collect[T Node](root Node) []T {
	var out []T
	Inspect(root, func(n Node) bool {
		if t, ok := n.(T); ok {
			out = append(out, t)
		}
		return true
	})
	return out
}

// Children returns the direct children of n in source order. Absent
// optional clauses are omitted.
func Children(n Node) []Node {
	var c children
	switch n := n.(type) {
	case *ColumnReference:
		if n.Table != nil {
			c.add(n.Table)
		}
	case *Function:
		c.exprs(n.Parameters)
	case *AggregateFunction:
		c.exprs(n.Parameters)
		c.add(n.Filter)
		if n.OrderBy != nil {
			c.add(n.OrderBy)
		}
	case *Array:
		c.exprs(n.Expressions)
	case *SearchedWhenClause:
		c.add(n.Condition)
		c.add(n.Result)
	case *SearchedCase:
		for _, w := range n.Cases {
			c.add(w)
		}
		c.add(n.Else)
	case *ScalarSubquery:
		c.add(n.Subquery)
	case *WindowSpecification:
		c.exprs(n.PartitionBy)
		if n.OrderBy != nil {
			c.add(n.OrderBy)
		}
	case *WindowFunction:
		if n.Function != nil {
			c.add(n.Function)
		}
		if n.Window != nil {
			c.add(n.Window)
		}
	case *DerivedColumn:
		c.add(n.Expression)
	case *Comparison:
		c.add(n.Left)
		c.add(n.Right)
	case *AndOr:
		c.add(n.Left)
		c.add(n.Right)
	case *Like:
		c.add(n.Left)
		c.add(n.Pattern)
	case *In:
		c.add(n.Left)
		c.exprs(n.Expressions)
	case *IsNull:
		c.add(n.Expression)
	case *IsDistinct:
		c.add(n.Left)
		c.add(n.Right)
	case *SubqueryComparison:
		c.add(n.Left)
		c.add(n.Subquery)
	case *SubqueryIn:
		c.add(n.Left)
		c.add(n.Subquery)
	case *Exists:
		c.add(n.Subquery)
	case *Not:
		c.add(n.Condition)
	case *Join:
		c.add(n.Left)
		c.add(n.Right)
		c.add(n.Condition)
	case *DerivedTable:
		c.add(n.Query)
	case *SortSpecification:
		c.add(n.Expression)
	case *OrderBy:
		for _, item := range n.Items {
			c.add(item)
		}
	case *GroupBy:
		c.exprs(n.Elements)
	case *Select:
		for _, dc := range n.DerivedColumns {
			c.add(dc)
		}
		for _, t := range n.From {
			c.add(t)
		}
		c.add(n.Where)
		if n.GroupBy != nil {
			c.add(n.GroupBy)
		}
		c.add(n.Having)
		if n.OrderBy != nil {
			c.add(n.OrderBy)
		}
		if n.Limit != nil {
			c.add(n.Limit)
		}
	case *SetQuery:
		c.add(n.Left)
		c.add(n.Right)
		if n.OrderBy != nil {
			c.add(n.OrderBy)
		}
		if n.Limit != nil {
			c.add(n.Limit)
		}
	case *ExpressionValueSource:
		c.exprs(n.Values)
	case *Insert:
		if n.Table != nil {
			c.add(n.Table)
		}
		for _, col := range n.Columns {
			c.add(col)
		}
		c.add(n.ValueSource)
	case *SetClause:
		if n.Column != nil {
			c.add(n.Column)
		}
		c.add(n.Value)
	case *Update:
		if n.Table != nil {
			c.add(n.Table)
		}
		for _, s := range n.Changes {
			c.add(s)
		}
		c.add(n.Where)
	case *Delete:
		if n.Table != nil {
			c.add(n.Table)
		}
		c.add(n.Where)
	case *BatchedUpdates:
		for _, u := range n.Updates {
			c.add(u)
		}
	case *Argument:
		c.add(n.Expression)
	case *Call:
		for _, a := range n.Arguments {
			c.add(a)
		}
	}
	return c
}

type children []Node

func (c *children) add(n Node) {
	if n != nil {
		*c = append(*c, n)
	}
}

func (c *children) exprs(list []Expression) {
	for _, e := range list {
		c.add(e)
	}
}
