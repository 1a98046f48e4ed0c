package sqldb

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/txn2/fedquery/pkg/lom"
	"github.com/txn2/fedquery/pkg/metadata"
)

// ErrMissingParameterValues is returned when a command has bind parameters
// but no parameter rows.
var ErrMissingParameterValues = errors.New("command has parameters but no parameter values")

// Statement is one source statement with its bind arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Renderer turns language objects into source statements.
type Renderer struct {
	Placeholder sq.PlaceholderFormat
}

// PlaceholderFor returns the bind placeholder format of a database/sql
// driver.
func PlaceholderFor(driver string) sq.PlaceholderFormat {
	switch driver {
	case "postgres", "pgx", "pgx/v5":
		return sq.Dollar
	default:
		return sq.Question
	}
}

func (r Renderer) placeholder() sq.PlaceholderFormat {
	if r.Placeholder == nil {
		return sq.Dollar
	}
	return r.Placeholder
}

// Query renders a query expression.
func (r Renderer) Query(q lom.QueryExpression) (Statement, error) {
	sql, args := (&lom.Renderer{Bind: true}).Render(q)
	for _, a := range args {
		if _, ok := a.(lom.ParameterMarker); ok {
			return Statement{}, ErrMissingParameterValues
		}
	}
	return r.statement(sql, args)
}

// Updates renders an update command. Commands with parameter rows yield one
// statement per row, and batched updates yield one statement per member.
func (r Renderer) Updates(cmd lom.Command) ([]Statement, error) {
	switch c := cmd.(type) {
	case *lom.BatchedUpdates:
		var out []Statement
		for _, u := range c.Updates {
			stmts, err := r.Updates(u)
			if err != nil {
				return nil, err
			}
			out = append(out, stmts...)
		}
		return out, nil
	case *lom.Insert:
		return r.bound(c, c.ParameterValues)
	case *lom.Update:
		return r.bound(c, c.ParameterValues)
	case *lom.Delete:
		return r.bound(c, c.ParameterValues)
	default:
		return nil, fmt.Errorf("unsupported update command %T", cmd)
	}
}

func (r Renderer) bound(cmd lom.Command, rows [][]any) ([]Statement, error) {
	sql, args := (&lom.Renderer{Bind: true}).Render(cmd)
	if !hasMarkers(args) {
		stmt, err := r.statement(sql, args)
		if err != nil {
			return nil, err
		}
		return []Statement{stmt}, nil
	}
	if len(rows) == 0 {
		return nil, ErrMissingParameterValues
	}

	out := make([]Statement, 0, len(rows))
	for i, row := range rows {
		resolved := make([]any, len(args))
		for j, a := range args {
			m, ok := a.(lom.ParameterMarker)
			if !ok {
				resolved[j] = a
				continue
			}
			if int(m) >= len(row) {
				return nil, fmt.Errorf("parameter row %d has %d values, need index %d", i, len(row), int(m))
			}
			resolved[j] = row[m]
		}
		stmt, err := r.statement(sql, resolved)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

// Call renders a procedure call as a select over the function, passing IN
// and INOUT arguments in declaration order.
func (r Renderer) Call(c *lom.Call) (Statement, error) {
	name := c.Name
	if c.Metadata != nil {
		name = c.Metadata.SourceName()
	}

	var args []any
	for _, a := range c.Arguments {
		if a.Direction != metadata.DirectionIn && a.Direction != metadata.DirectionInOut {
			continue
		}
		sql, exprArgs := (&lom.Renderer{Bind: true}).Render(a.Expression)
		switch {
		case sql == "?" && len(exprArgs) == 1:
			args = append(args, exprArgs[0])
		case sql == "NULL":
			args = append(args, nil)
		default:
			return Statement{}, fmt.Errorf("argument %s of %s must be a literal", argName(a), c.Name)
		}
	}

	sql, _, err := sq.Select("*").
		From(fmt.Sprintf("%s(%s)", lom.QuoteName(name), sq.Placeholders(len(args)))).
		PlaceholderFormat(r.placeholder()).
		ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("building call to %s: %w", name, err)
	}
	return Statement{SQL: sql, Args: args}, nil
}

func (r Renderer) statement(sql string, args []any) (Statement, error) {
	out, err := r.placeholder().ReplacePlaceholders(sql)
	if err != nil {
		return Statement{}, fmt.Errorf("replacing placeholders: %w", err)
	}
	return Statement{SQL: out, Args: args}, nil
}

func hasMarkers(args []any) bool {
	for _, a := range args {
		if _, ok := a.(lom.ParameterMarker); ok {
			return true
		}
	}
	return false
}

func argName(a *lom.Argument) string {
	if a.Metadata != nil {
		return a.Metadata.Name
	}
	return "?"
}
