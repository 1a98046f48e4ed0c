package lom

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/txn2/fedquery/pkg/datatype"
	"github.com/txn2/fedquery/pkg/metadata"
)

// ParameterMarker is the bind argument recorded for a Parameter node. The
// executor substitutes the value at ValueIndex of each parameter row.
type ParameterMarker int

// SQLString renders a node as SQL text with literals inlined.
func SQLString(n Node) string {
	sql, _ := (&Renderer{inline: true}).Render(n)
	return sql
}

// Renderer renders language objects as SQL text. With Bind set, literals
// become ? placeholders and their values are returned as arguments, in
// order. Without it only bindable literals do.
type Renderer struct {
	Bind bool

	inline bool

	b    strings.Builder
	args []any
}

// Render returns the SQL for n and any bind arguments.
func (r *Renderer) Render(n Node) (string, []any) {
	r.b.Reset()
	r.args = nil
	r.node(n)
	return r.b.String(), r.args
}

func (r *Renderer) node(n Node) {
	if n != nil {
		n.Accept(r)
	}
}

func (r *Renderer) write(parts ...string) {
	for _, p := range parts {
		r.b.WriteString(p)
	}
}

func (r *Renderer) exprList(list []Expression) {
	for i, e := range list {
		if i > 0 {
			r.write(", ")
		}
		r.node(e)
	}
}

func (r *Renderer) subquery(q QueryExpression) {
	r.write("(")
	r.node(q)
	r.write(")")
}

// VisitLiteral renders a literal.
func (r *Renderer) VisitLiteral(l *Literal) {
	if l.Value != nil && !r.inline && (r.Bind || l.Bindable) {
		r.write("?")
		r.args = append(r.args, l.Value)
		return
	}
	r.write(literalSQL(l.Value, l.DataType))
}

func literalSQL(value any, typ datatype.Type) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		switch typ {
		case datatype.Date:
			return "{d '" + v.Format("2006-01-02") + "'}"
		case datatype.Time:
			return "{t '" + v.Format("15:04:05") + "'}"
		default:
			return "{ts '" + v.Format(datatype.TimestampLayout) + "'}"
		}
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(v)) + "'"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case *big.Float:
		return v.Text('f', -1)
	case *big.Int:
		return v.String()
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = literalSQL(e, typ.ComponentType())
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprint(v)
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// VisitColumnReference renders a possibly qualified column name.
func (r *Renderer) VisitColumnReference(c *ColumnReference) {
	if c.Table != nil {
		r.write(tableQualifier(c.Table), ".")
	}
	r.write(columnName(c))
}

func columnName(c *ColumnReference) string {
	if c.Metadata != nil {
		return QuoteName(c.Metadata.SourceName())
	}
	return QuoteName(c.Name)
}

func tableQualifier(t *NamedTable) string {
	if t.Alias != "" {
		return QuoteName(t.Alias)
	}
	return tableName(t)
}

func tableName(t *NamedTable) string {
	if t.Metadata != nil {
		return QuoteName(t.Metadata.SourceName())
	}
	return QuoteName(t.Name)
}

var infixOperators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "||": true,
}

// VisitFunction renders a function call, an infix operator, or a cast.
func (r *Renderer) VisitFunction(f *Function) {
	name := strings.ToUpper(f.Name)
	switch {
	case infixOperators[f.Name] && len(f.Parameters) == 2:
		r.write("(")
		r.node(f.Parameters[0])
		r.write(" ", f.Name, " ")
		r.node(f.Parameters[1])
		r.write(")")
	case (name == "CAST" || name == "CONVERT") && len(f.Parameters) == 2:
		r.write("CAST(")
		r.node(f.Parameters[0])
		r.write(" AS ", castTarget(f.Parameters[1], f.DataType), ")")
	default:
		r.write(f.Name, "(")
		r.exprList(f.Parameters)
		r.write(")")
	}
}

func castTarget(e Expression, fallback datatype.Type) string {
	if l, ok := e.(*Literal); ok {
		if s, ok := l.Value.(string); ok {
			return s
		}
	}
	return fallback.String()
}

// VisitAggregateFunction renders an aggregate call.
func (r *Renderer) VisitAggregateFunction(a *AggregateFunction) {
	r.write(a.Name, "(")
	if a.Distinct {
		r.write("DISTINCT ")
	}
	if len(a.Parameters) == 0 {
		r.write("*")
	} else {
		r.exprList(a.Parameters)
	}
	if a.OrderBy != nil {
		r.write(" ")
		r.node(a.OrderBy)
	}
	r.write(")")
	if a.Filter != nil {
		r.write(" FILTER(WHERE ")
		r.node(a.Filter)
		r.write(")")
	}
}

// VisitArray renders a parenthesized value list.
func (r *Renderer) VisitArray(a *Array) {
	r.write("(")
	r.exprList(a.Expressions)
	r.write(")")
}

// VisitSearchedWhenClause renders WHEN ... THEN ...
func (r *Renderer) VisitSearchedWhenClause(w *SearchedWhenClause) {
	r.write("WHEN ")
	r.node(w.Condition)
	r.write(" THEN ")
	r.node(w.Result)
}

// VisitSearchedCase renders CASE ... END.
func (r *Renderer) VisitSearchedCase(c *SearchedCase) {
	r.write("CASE")
	for _, w := range c.Cases {
		r.write(" ")
		r.node(w)
	}
	if c.Else != nil {
		r.write(" ELSE ")
		r.node(c.Else)
	}
	r.write(" END")
}

// VisitScalarSubquery renders a parenthesized subquery.
func (r *Renderer) VisitScalarSubquery(s *ScalarSubquery) {
	r.subquery(s.Subquery)
}

// VisitWindowSpecification renders the body of an OVER clause.
func (r *Renderer) VisitWindowSpecification(w *WindowSpecification) {
	r.write("(")
	if len(w.PartitionBy) > 0 {
		r.write("PARTITION BY ")
		r.exprList(w.PartitionBy)
	}
	if w.OrderBy != nil {
		if len(w.PartitionBy) > 0 {
			r.write(" ")
		}
		r.node(w.OrderBy)
	}
	r.write(")")
}

// VisitWindowFunction renders agg OVER (...).
func (r *Renderer) VisitWindowFunction(w *WindowFunction) {
	r.node(w.Function)
	r.write(" OVER ")
	if w.Window == nil {
		r.write("()")
		return
	}
	r.node(w.Window)
}

// VisitParameter renders a bind placeholder.
func (r *Renderer) VisitParameter(p *Parameter) {
	r.write("?")
	if r.Bind {
		r.args = append(r.args, ParameterMarker(p.ValueIndex))
	}
}

// VisitDerivedColumn renders a select item.
func (r *Renderer) VisitDerivedColumn(d *DerivedColumn) {
	r.node(d.Expression)
	if d.Alias != "" {
		r.write(" AS ", QuoteName(d.Alias))
	}
}

// VisitComparison renders left op right.
func (r *Renderer) VisitComparison(c *Comparison) {
	r.node(c.Left)
	r.write(" ", c.Operator.String(), " ")
	r.node(c.Right)
}

// VisitAndOr renders a logical join, parenthesizing nested conditions of the
// other operator.
func (r *Renderer) VisitAndOr(a *AndOr) {
	r.nested(a.Operator, a.Left)
	r.write(" ", a.Operator.String(), " ")
	r.nested(a.Operator, a.Right)
}

func (r *Renderer) nested(parent AndOrOperator, c Condition) {
	if child, ok := c.(*AndOr); ok && child.Operator != parent {
		r.write("(")
		r.node(c)
		r.write(")")
		return
	}
	r.node(c)
}

// VisitLike renders a pattern match.
func (r *Renderer) VisitLike(l *Like) {
	r.node(l.Left)
	if l.Negated {
		r.write(" NOT")
	}
	switch l.Mode {
	case MatchSimilar:
		r.write(" SIMILAR TO ")
	case MatchRegex:
		r.write(" LIKE_REGEX ")
	default:
		r.write(" LIKE ")
	}
	r.node(l.Pattern)
	if l.Escape != 0 {
		r.write(" ESCAPE ", quoteString(string(l.Escape)))
	}
}

// VisitIn renders an IN list.
func (r *Renderer) VisitIn(i *In) {
	r.node(i.Left)
	if i.Negated {
		r.write(" NOT")
	}
	r.write(" IN (")
	r.exprList(i.Expressions)
	r.write(")")
}

// VisitIsNull renders IS [NOT] NULL.
func (r *Renderer) VisitIsNull(n *IsNull) {
	r.node(n.Expression)
	if n.Negated {
		r.write(" IS NOT NULL")
		return
	}
	r.write(" IS NULL")
}

// VisitIsDistinct renders IS [NOT] DISTINCT FROM.
func (r *Renderer) VisitIsDistinct(d *IsDistinct) {
	r.node(d.Left)
	if d.Negated {
		r.write(" IS NOT DISTINCT FROM ")
	} else {
		r.write(" IS DISTINCT FROM ")
	}
	r.node(d.Right)
}

// VisitSubqueryComparison renders a quantified comparison.
func (r *Renderer) VisitSubqueryComparison(s *SubqueryComparison) {
	r.node(s.Left)
	r.write(" ", s.Operator.String(), " ", s.Quantifier.String(), " ")
	r.subquery(s.Subquery)
}

// VisitSubqueryIn renders IN (subquery).
func (r *Renderer) VisitSubqueryIn(s *SubqueryIn) {
	r.node(s.Left)
	if s.Negated {
		r.write(" NOT")
	}
	r.write(" IN ")
	r.subquery(s.Subquery)
}

// VisitExists renders EXISTS (subquery).
func (r *Renderer) VisitExists(e *Exists) {
	r.write("EXISTS ")
	r.subquery(e.Subquery)
}

// VisitNot renders NOT (condition).
func (r *Renderer) VisitNot(n *Not) {
	r.write("NOT (")
	r.node(n.Condition)
	r.write(")")
}

// VisitNamedTable renders a table with its alias.
func (r *Renderer) VisitNamedTable(t *NamedTable) {
	r.write(tableName(t))
	if t.Alias != "" {
		r.write(" AS ", QuoteName(t.Alias))
	}
}

// VisitJoin renders a join, parenthesizing a nested right-hand join.
func (r *Renderer) VisitJoin(j *Join) {
	r.node(j.Left)
	r.write(" ", j.JoinType.String(), " ")
	if _, ok := j.Right.(*Join); ok {
		r.write("(")
		r.node(j.Right)
		r.write(")")
	} else {
		r.node(j.Right)
	}
	if j.Condition != nil && j.JoinType != CrossJoin {
		r.write(" ON ")
		r.node(j.Condition)
	}
}

// VisitDerivedTable renders (query) AS alias.
func (r *Renderer) VisitDerivedTable(d *DerivedTable) {
	r.subquery(d.Query)
	r.write(" AS ", QuoteName(d.Alias))
}

// VisitSortSpecification renders one ORDER BY item.
func (r *Renderer) VisitSortSpecification(s *SortSpecification) {
	r.node(s.Expression)
	if s.Ordering == Descending {
		r.write(" DESC")
	}
	switch s.NullOrdering {
	case NullsFirst:
		r.write(" NULLS FIRST")
	case NullsLast:
		r.write(" NULLS LAST")
	}
}

// VisitOrderBy renders ORDER BY.
func (r *Renderer) VisitOrderBy(o *OrderBy) {
	r.write("ORDER BY ")
	for i, item := range o.Items {
		if i > 0 {
			r.write(", ")
		}
		r.node(item)
	}
}

// VisitGroupBy renders GROUP BY.
func (r *Renderer) VisitGroupBy(g *GroupBy) {
	r.write("GROUP BY ")
	if g.Rollup {
		r.write("ROLLUP(")
		r.exprList(g.Elements)
		r.write(")")
		return
	}
	r.exprList(g.Elements)
}

// VisitLimit renders LIMIT [offset,] rows.
func (r *Renderer) VisitLimit(l *Limit) {
	r.write("LIMIT ")
	if l.Offset > 0 {
		r.write(strconv.Itoa(l.Offset), ", ")
	}
	r.write(strconv.Itoa(l.RowLimit))
}

// VisitSelect renders a query block.
func (r *Renderer) VisitSelect(s *Select) {
	r.write("SELECT ")
	if s.Distinct {
		r.write("DISTINCT ")
	}
	for i, dc := range s.DerivedColumns {
		if i > 0 {
			r.write(", ")
		}
		r.node(dc)
	}
	if len(s.From) > 0 {
		r.write(" FROM ")
		for i, t := range s.From {
			if i > 0 {
				r.write(", ")
			}
			r.node(t)
		}
	}
	if s.Where != nil {
		r.write(" WHERE ")
		r.node(s.Where)
	}
	if s.GroupBy != nil {
		r.write(" ")
		r.node(s.GroupBy)
	}
	if s.Having != nil {
		r.write(" HAVING ")
		r.node(s.Having)
	}
	r.orderLimit(s.OrderBy, s.Limit)
}

func (r *Renderer) orderLimit(o *OrderBy, l *Limit) {
	if o != nil {
		r.write(" ")
		r.node(o)
	}
	if l != nil {
		r.write(" ")
		r.node(l)
	}
}

// VisitSetQuery renders a set operation.
func (r *Renderer) VisitSetQuery(s *SetQuery) {
	r.setOperand(s.Left, false)
	r.write(" ", s.Operation.String(), " ")
	if s.All {
		r.write("ALL ")
	}
	r.setOperand(s.Right, true)
	r.orderLimit(s.OrderBy, s.Limit)
}

func (r *Renderer) setOperand(q QueryExpression, right bool) {
	needsParens := false
	switch q := q.(type) {
	case *SetQuery:
		needsParens = right || q.OrderBy != nil || q.Limit != nil
	case *Select:
		needsParens = q.OrderBy != nil || q.Limit != nil
	}
	if needsParens {
		r.subquery(q)
		return
	}
	r.node(q)
}

// VisitExpressionValueSource renders VALUES (...).
func (r *Renderer) VisitExpressionValueSource(e *ExpressionValueSource) {
	r.write("VALUES (")
	r.exprList(e.Values)
	r.write(")")
}

// VisitInsert renders INSERT or UPSERT.
func (r *Renderer) VisitInsert(i *Insert) {
	if i.Upsert {
		r.write("UPSERT INTO ")
	} else {
		r.write("INSERT INTO ")
	}
	r.write(tableName(i.Table), " (")
	for idx, c := range i.Columns {
		if idx > 0 {
			r.write(", ")
		}
		r.write(columnName(c))
	}
	r.write(") ")
	r.node(i.ValueSource)
}

// VisitSetClause renders column = value with an unqualified column.
func (r *Renderer) VisitSetClause(s *SetClause) {
	r.write(columnName(s.Column), " = ")
	r.node(s.Value)
}

// VisitUpdate renders UPDATE.
func (r *Renderer) VisitUpdate(u *Update) {
	r.write("UPDATE ", tableName(u.Table), " SET ")
	for i, s := range u.Changes {
		if i > 0 {
			r.write(", ")
		}
		r.node(s)
	}
	if u.Where != nil {
		r.write(" WHERE ")
		r.node(u.Where)
	}
}

// VisitDelete renders DELETE.
func (r *Renderer) VisitDelete(d *Delete) {
	r.write("DELETE FROM ", tableName(d.Table))
	if d.Where != nil {
		r.write(" WHERE ")
		r.node(d.Where)
	}
}

// VisitBatchedUpdates renders BEGIN stmt; ... END.
func (r *Renderer) VisitBatchedUpdates(b *BatchedUpdates) {
	r.write("BEGIN ")
	for _, u := range b.Updates {
		r.node(u)
		r.write("; ")
	}
	r.write("END")
}

// VisitArgument renders the argument expression.
func (r *Renderer) VisitArgument(a *Argument) {
	r.node(a.Expression)
}

// VisitCall renders EXEC name(inputs).
func (r *Renderer) VisitCall(c *Call) {
	name := c.Name
	if c.Metadata != nil {
		name = c.Metadata.SourceName()
	}
	r.write("EXEC ", QuoteName(name), "(")
	first := true
	for _, a := range c.Arguments {
		if a.Direction != metadata.DirectionIn && a.Direction != metadata.DirectionInOut {
			continue
		}
		if !first {
			r.write(", ")
		}
		first = false
		r.node(a)
	}
	r.write(")")
}

// QuoteName quotes each dot-separated part of name that is a reserved word
// or not a plain identifier.
func QuoteName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if needsQuoting(p) {
			parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
		}
	}
	return strings.Join(parts, ".")
}

func needsQuoting(part string) bool {
	if part == "" || IsReservedWord(part) {
		return true
	}
	for i, ch := range part {
		switch {
		case ch == '_', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9' && i > 0:
		default:
			return true
		}
	}
	return false
}

// Verify interface compliance.
var _ Visitor = (*Renderer)(nil)
