// Package bridge translates the engine's resolved command tree into the
// language object model, resolving metadata references along the way.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
	"github.com/txn2/fedquery/pkg/query"
)

// Translation errors.
var (
	ErrInsertArity   = errors.New("insert column count does not match value count")
	ErrArgumentCount = errors.New("argument count does not match declared parameters")
	ErrUnsupported   = errors.New("unsupported construct")
)

// Translator converts query commands to language objects.
type Translator struct {
	catalog metadata.Catalog
}

// New creates a translator. catalog may be nil when every symbol already
// carries its metadata.
func New(catalog metadata.Catalog) *Translator {
	return &Translator{catalog: catalog}
}

// Translate converts cmd. Column references to the same group share one
// NamedTable.
func (t *Translator) Translate(ctx context.Context, cmd query.Command) (lom.Command, error) {
	tr := &translation{
		ctx:     ctx,
		catalog: t.catalog,
		groups:  make(map[*query.GroupSymbol]*lom.NamedTable),
	}
	return tr.command(cmd)
}

type translation struct {
	ctx     context.Context
	catalog metadata.Catalog
	groups  map[*query.GroupSymbol]*lom.NamedTable
}

func (tr *translation) command(cmd query.Command) (lom.Command, error) {
	switch c := cmd.(type) {
	case query.QueryCommand:
		return tr.queryCommand(c)
	case *query.Insert:
		return tr.insert(c)
	case *query.Update:
		return tr.update(c)
	case *query.Delete:
		return tr.delete(c)
	case *query.BatchedUpdate:
		return tr.batchedUpdate(c)
	case *query.StoredProcedure:
		return tr.call(c)
	default:
		return nil, fmt.Errorf("command %T: %w", cmd, ErrUnsupported)
	}
}

func (tr *translation) queryCommand(cmd query.QueryCommand) (lom.QueryExpression, error) {
	switch c := cmd.(type) {
	case *query.Query:
		return tr.query(c)
	case *query.SetQuery:
		return tr.setQuery(c)
	default:
		return nil, fmt.Errorf("query command %T: %w", cmd, ErrUnsupported)
	}
}

func (tr *translation) query(q *query.Query) (*lom.Select, error) {
	sel := &lom.Select{Distinct: q.Distinct, DependentValues: q.DependentValues}

	for _, item := range q.Select {
		dc, err := tr.derivedColumn(item)
		if err != nil {
			return nil, err
		}
		sel.DerivedColumns = append(sel.DerivedColumns, dc)
	}

	for _, from := range q.From {
		ref, err := tr.fromClause(from)
		if err != nil {
			return nil, err
		}
		sel.From = append(sel.From, ref)
	}

	var err error
	if sel.Where, err = tr.optionalCriteria(q.Where); err != nil {
		return nil, err
	}
	if len(q.GroupBy) > 0 {
		elems, err := tr.expressions(q.GroupBy)
		if err != nil {
			return nil, err
		}
		sel.GroupBy = &lom.GroupBy{Elements: elems, Rollup: q.Rollup}
	}
	if sel.Having, err = tr.optionalCriteria(q.Having); err != nil {
		return nil, err
	}
	if sel.OrderBy, err = tr.orderBy(q.OrderBy); err != nil {
		return nil, err
	}
	sel.Limit = limit(q.Limit)
	return sel, nil
}

func (tr *translation) derivedColumn(item query.Expression) (*lom.DerivedColumn, error) {
	alias := ""
	if a, ok := item.(*query.AliasSymbol); ok {
		alias = a.Name
		item = a.Symbol
	}
	expr, err := tr.expression(item)
	if err != nil {
		return nil, err
	}
	return &lom.DerivedColumn{Alias: alias, Expression: expr}, nil
}

func (tr *translation) setQuery(s *query.SetQuery) (*lom.SetQuery, error) {
	op, err := setOperation(s.Operation)
	if err != nil {
		return nil, err
	}
	left, err := tr.queryCommand(s.Left)
	if err != nil {
		return nil, err
	}
	right, err := tr.queryCommand(s.Right)
	if err != nil {
		return nil, err
	}
	orderBy, err := tr.orderBy(s.OrderBy)
	if err != nil {
		return nil, err
	}
	return &lom.SetQuery{
		Operation: op,
		All:       s.All,
		Left:      left,
		Right:     right,
		OrderBy:   orderBy,
		Limit:     limit(s.Limit),
	}, nil
}

func setOperation(name string) (lom.SetOperation, error) {
	switch strings.ToUpper(name) {
	case "UNION", "":
		return lom.Union, nil
	case "INTERSECT":
		return lom.Intersect, nil
	case "EXCEPT", "MINUS":
		return lom.Except, nil
	default:
		return 0, fmt.Errorf("set operation %q: %w", name, ErrUnsupported)
	}
}

func (tr *translation) orderBy(o *query.OrderBy) (*lom.OrderBy, error) {
	if o == nil || len(o.Items) == 0 {
		return nil, nil
	}
	result := &lom.OrderBy{}
	for _, item := range o.Items {
		expr, err := tr.expression(item.Expression)
		if err != nil {
			return nil, err
		}
		spec := &lom.SortSpecification{Expression: expr}
		if item.Descending {
			spec.Ordering = lom.Descending
		}
		switch strings.ToUpper(item.NullOrdering) {
		case "FIRST":
			spec.NullOrdering = lom.NullsFirst
		case "LAST":
			spec.NullOrdering = lom.NullsLast
		}
		result.Items = append(result.Items, spec)
	}
	return result, nil
}

func limit(l *query.Limit) *lom.Limit {
	if l == nil {
		return nil
	}
	return &lom.Limit{Offset: l.Offset, RowLimit: l.RowLimit}
}

func (tr *translation) fromClause(from query.FromClause) (lom.TableReference, error) {
	switch f := from.(type) {
	case *query.UnaryFromClause:
		return tr.namedTable(f.Group)
	case *query.JoinPredicate:
		left, err := tr.fromClause(f.Left)
		if err != nil {
			return nil, err
		}
		right, err := tr.fromClause(f.Right)
		if err != nil {
			return nil, err
		}
		jt, err := joinType(f.JoinType)
		if err != nil {
			return nil, err
		}
		conds := make([]lom.Condition, 0, len(f.Criteria))
		for _, c := range f.Criteria {
			cond, err := tr.criteria(c)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		}
		return &lom.Join{Left: left, Right: right, JoinType: jt, Condition: lom.CombineCriteriaList(conds)}, nil
	case *query.SubqueryFromClause:
		q, err := tr.queryCommand(f.Command)
		if err != nil {
			return nil, err
		}
		return &lom.DerivedTable{Query: q, Alias: f.Name}, nil
	default:
		return nil, fmt.Errorf("from clause %T: %w", from, ErrUnsupported)
	}
}

func joinType(name string) (lom.JoinType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "INNER":
		return lom.InnerJoin, nil
	case "LEFT", "LEFT OUTER":
		return lom.LeftOuterJoin, nil
	case "RIGHT", "RIGHT OUTER":
		return lom.RightOuterJoin, nil
	case "FULL", "FULL OUTER":
		return lom.FullOuterJoin, nil
	case "CROSS":
		return lom.CrossJoin, nil
	default:
		return 0, fmt.Errorf("join type %q: %w", name, ErrUnsupported)
	}
}

func (tr *translation) namedTable(g *query.GroupSymbol) (*lom.NamedTable, error) {
	if nt, ok := tr.groups[g]; ok {
		return nt, nil
	}
	tbl := g.Metadata
	if tbl == nil && tr.catalog != nil {
		var err error
		if tbl, err = tr.catalog.Table(tr.ctx, g.CatalogName()); err != nil {
			return nil, fmt.Errorf("resolving group %s: %w", g.Name, err)
		}
	}
	alias := ""
	if g.IsAliased() {
		alias = g.Name
	}
	nt := lom.NewNamedTable(g.CatalogName(), alias, tbl)
	tr.groups[g] = nt
	return nt, nil
}

func (tr *translation) element(e *query.ElementSymbol) (*lom.ColumnReference, error) {
	name := e.Name
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}

	var table *lom.NamedTable
	col := e.Metadata
	if e.Group != nil {
		var err error
		if table, err = tr.namedTable(e.Group); err != nil {
			return nil, err
		}
		if col == nil && table.Metadata != nil {
			if col = table.Metadata.Column(name); col == nil {
				return nil, fmt.Errorf("column %s in %s: %w", name, table.Metadata.FullName(), metadata.ErrNotFound)
			}
		}
	}
	return lom.NewColumnReference(table, name, col, e.Type), nil
}

func (tr *translation) expressions(list []query.Expression) ([]lom.Expression, error) {
	result := make([]lom.Expression, 0, len(list))
	for _, e := range list {
		expr, err := tr.expression(e)
		if err != nil {
			return nil, err
		}
		result = append(result, expr)
	}
	return result, nil
}

func (tr *translation) expression(e query.Expression) (lom.Expression, error) {
	switch x := e.(type) {
	case *query.ElementSymbol:
		return tr.element(x)
	case *query.Constant:
		return literal(x)
	case *query.Function:
		params, err := tr.expressions(x.Args)
		if err != nil {
			return nil, err
		}
		return &lom.Function{Name: x.Name, Parameters: params, DataType: x.Type}, nil
	case *query.AggregateSymbol:
		return tr.aggregate(x)
	case *query.Array:
		elems, err := tr.expressions(x.Elements)
		if err != nil {
			return nil, err
		}
		return &lom.Array{ComponentType: x.ComponentType, Expressions: elems}, nil
	case *query.SearchedCase:
		return tr.searchedCase(x)
	case *query.ScalarSubquery:
		q, err := tr.queryCommand(x.Command)
		if err != nil {
			return nil, err
		}
		return &lom.ScalarSubquery{Subquery: q}, nil
	case *query.WindowFunction:
		return tr.windowFunction(x)
	case *query.Reference:
		return &lom.Parameter{ValueIndex: x.Index, DataType: x.Type, DependentValueID: x.DependentValueID}, nil
	case *query.AliasSymbol:
		return tr.expression(x.Symbol)
	case nil:
		return nil, fmt.Errorf("missing expression: %w", ErrUnsupported)
	default:
		return nil, fmt.Errorf("expression %T: %w", e, ErrUnsupported)
	}
}

// literal converts the constant to its declared type so the value is
// always assignable to the literal's type.
func literal(c *query.Constant) (*lom.Literal, error) {
	typ := c.Type
	if typ == "" {
		typ = datatype.TypeOf(c.Value)
	}
	value := c.Value
	if value != nil && typ != datatype.Null {
		target := typ
		if c.Multivalued {
			target = datatype.ArrayOf(typ)
		}
		converted, err := datatype.Transform(value, target)
		if err != nil {
			return nil, fmt.Errorf("literal of type %s: %w", typ, err)
		}
		value = converted
	}
	return &lom.Literal{Value: value, DataType: typ, Bindable: c.Bindable, Multivalued: c.Multivalued}, nil
}

func (tr *translation) aggregate(a *query.AggregateSymbol) (*lom.AggregateFunction, error) {
	params, err := tr.expressions(a.Args)
	if err != nil {
		return nil, err
	}
	filter, err := tr.optionalCriteria(a.Filter)
	if err != nil {
		return nil, err
	}
	orderBy, err := tr.orderBy(a.OrderBy)
	if err != nil {
		return nil, err
	}
	return &lom.AggregateFunction{
		Name:       strings.ToUpper(a.Name),
		Distinct:   a.Distinct,
		Parameters: params,
		Filter:     filter,
		OrderBy:    orderBy,
		DataType:   a.Type,
	}, nil
}

func (tr *translation) searchedCase(c *query.SearchedCase) (*lom.SearchedCase, error) {
	if len(c.When) != len(c.Then) {
		return nil, fmt.Errorf("case has %d conditions and %d results: %w", len(c.When), len(c.Then), ErrUnsupported)
	}
	result := &lom.SearchedCase{DataType: c.Type}
	for i := range c.When {
		cond, err := tr.criteria(c.When[i])
		if err != nil {
			return nil, err
		}
		then, err := tr.expression(c.Then[i])
		if err != nil {
			return nil, err
		}
		result.Cases = append(result.Cases, &lom.SearchedWhenClause{Condition: cond, Result: then})
	}
	if c.Else != nil {
		elseExpr, err := tr.expression(c.Else)
		if err != nil {
			return nil, err
		}
		result.Else = elseExpr
	}
	return result, nil
}

func (tr *translation) windowFunction(w *query.WindowFunction) (*lom.WindowFunction, error) {
	agg, err := tr.aggregate(w.Function)
	if err != nil {
		return nil, err
	}
	partition, err := tr.expressions(w.PartitionBy)
	if err != nil {
		return nil, err
	}
	orderBy, err := tr.orderBy(w.OrderBy)
	if err != nil {
		return nil, err
	}
	return &lom.WindowFunction{
		Function: agg,
		Window:   &lom.WindowSpecification{PartitionBy: partition, OrderBy: orderBy},
	}, nil
}
