package bridge

import (
	"fmt"

	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
	"github.com/txn2/fedquery/pkg/query"
)

func (tr *translation) insert(i *query.Insert) (*lom.Insert, error) {
	table, err := tr.namedTable(i.Group)
	if err != nil {
		return nil, err
	}
	result := &lom.Insert{Table: table, Upsert: i.Upsert, ParameterValues: i.ParameterValues}
	for _, v := range i.Variables {
		col, err := tr.element(v)
		if err != nil {
			return nil, err
		}
		result.Columns = append(result.Columns, col)
	}
	width := len(result.Columns)

	if i.Query != nil {
		q, err := tr.queryCommand(i.Query)
		if err != nil {
			return nil, err
		}
		if n := len(q.ProjectedQuery().DerivedColumns); n != width {
			return nil, fmt.Errorf("%d columns, query projects %d: %w", width, n, ErrInsertArity)
		}
		result.ValueSource = q
		return result, nil
	}

	if len(i.Values) != width {
		return nil, fmt.Errorf("%d columns, %d values: %w", width, len(i.Values), ErrInsertArity)
	}
	values, err := tr.expressions(i.Values)
	if err != nil {
		return nil, err
	}
	for n, row := range i.ParameterValues {
		if len(row) != width {
			return nil, fmt.Errorf("%d columns, parameter row %d has %d values: %w", width, n, len(row), ErrInsertArity)
		}
	}
	result.ValueSource = &lom.ExpressionValueSource{Values: values}
	return result, nil
}

func (tr *translation) update(u *query.Update) (*lom.Update, error) {
	table, err := tr.namedTable(u.Group)
	if err != nil {
		return nil, err
	}
	result := &lom.Update{Table: table, ParameterValues: u.ParameterValues}
	for _, change := range u.Changes {
		col, err := tr.element(change.Symbol)
		if err != nil {
			return nil, err
		}
		value, err := tr.expression(change.Value)
		if err != nil {
			return nil, err
		}
		result.Changes = append(result.Changes, &lom.SetClause{Column: col, Value: value})
	}
	if result.Where, err = tr.optionalCriteria(u.Criteria); err != nil {
		return nil, err
	}
	return result, nil
}

func (tr *translation) delete(d *query.Delete) (*lom.Delete, error) {
	table, err := tr.namedTable(d.Group)
	if err != nil {
		return nil, err
	}
	where, err := tr.optionalCriteria(d.Criteria)
	if err != nil {
		return nil, err
	}
	return &lom.Delete{Table: table, Where: where, ParameterValues: d.ParameterValues}, nil
}

func (tr *translation) batchedUpdate(b *query.BatchedUpdate) (*lom.BatchedUpdates, error) {
	result := &lom.BatchedUpdates{SingleResult: b.SingleResult}
	for _, cmd := range b.Commands {
		translated, err := tr.command(cmd)
		if err != nil {
			return nil, err
		}
		result.Updates = append(result.Updates, translated)
	}
	return result, nil
}

// call builds a procedure call. Arguments exclude the return value, which
// becomes the call's return type, and must match the declared parameters
// one for one.
func (tr *translation) call(sp *query.StoredProcedure) (*lom.Call, error) {
	proc := sp.Metadata
	if proc == nil && tr.catalog != nil {
		var err error
		if proc, err = tr.catalog.Procedure(tr.ctx, sp.ProcedureName); err != nil {
			return nil, fmt.Errorf("resolving procedure %s: %w", sp.ProcedureName, err)
		}
	}

	result := &lom.Call{Name: sp.ProcedureName, Metadata: proc}
	if result.Name == "" && proc != nil {
		result.Name = proc.FullName()
	}

	var declared []*metadata.ProcedureParameter
	if proc != nil {
		for _, p := range proc.Parameters {
			if p.Direction != metadata.DirectionReturn {
				declared = append(declared, p)
			}
		}
		if ret := proc.ReturnParameter(); ret != nil {
			result.ReturnType = ret.Type
		}
	}

	for _, param := range sp.Parameters {
		if param.Direction == metadata.DirectionReturn {
			if param.Type != "" {
				result.ReturnType = param.Type
			}
			continue
		}
		arg, err := tr.argument(param, len(result.Arguments), declared)
		if err != nil {
			return nil, err
		}
		result.Arguments = append(result.Arguments, arg)
	}

	if proc != nil && len(result.Arguments) != proc.DeclaredParameterCount() {
		return nil, fmt.Errorf("%s: %d arguments, %d declared: %w",
			result.Name, len(result.Arguments), proc.DeclaredParameterCount(), ErrArgumentCount)
	}
	return result, nil
}

func (tr *translation) argument(param *query.SPParameter, pos int, declared []*metadata.ProcedureParameter) (*lom.Argument, error) {
	md := param.Metadata
	if md == nil && pos < len(declared) {
		md = declared[pos]
	}
	arg := &lom.Argument{Direction: param.Direction, Metadata: md, DataType: param.Type}
	if md != nil {
		arg.Direction = md.Direction
		if arg.DataType == "" {
			arg.DataType = md.Type
		}
	}
	if param.Expression != nil && arg.Direction != metadata.DirectionOut {
		expr, err := tr.expression(param.Expression)
		if err != nil {
			return nil, err
		}
		arg.Expression = expr
	}
	return arg, nil
}
